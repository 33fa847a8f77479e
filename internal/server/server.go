// Package server exposes the engine as a read-only JSON API.
package server

import (
	"errors"
	"runtime"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/KaramelBytes/solarcmp/internal/dataset"
	"github.com/KaramelBytes/solarcmp/internal/engine"
	"github.com/KaramelBytes/solarcmp/internal/stats"
)

const HeaderRequestID = "X-Request-ID"

// Config holds the HTTP-facing settings.
type Config struct {
	HistogramBins int
}

type controller struct {
	engine *engine.Engine
	conf   Config
}

// New builds the fiber app serving e under /api.
func New(e *engine.Engine, conf Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "solarcmp",
		ReadTimeout:           time.Second * 20,
		WriteTimeout:          time.Second * 20,
		ErrorHandler:          ErrorHandler,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		DisableStartupMessage: true,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e any) {
			buf := make([]byte, 4096)
			buf = buf[:runtime.Stack(buf, false)]
			log.Error().Msgf("panic: %v\n%s\n", e, buf)
		},
	}))
	app.Use(requestLogger)

	c := &controller{engine: e, conf: conf}
	api := app.Group("/api")
	api.Get("/sources", c.getSources)
	api.Get("/metrics", c.getMetrics)
	api.Get("/summary", c.getSummary)
	api.Get("/compare", c.getCompare)
	api.Get("/best", c.getBest)
	api.Get("/boxplot", c.getBoxPlot)
	api.Get("/histogram", c.getHistogram)
	api.Get("/report", c.getReport)
	return app
}

func requestLogger(ctx *fiber.Ctx) error {
	start := time.Now()
	id := uuid.NewString()
	ctx.Set(HeaderRequestID, id)
	err := ctx.Next()
	if err != nil {
		// the error handler runs after us, resolve the status here
		if herr := ctx.App().ErrorHandler(ctx, err); herr != nil {
			_ = ctx.SendStatus(fiber.StatusInternalServerError)
		}
	}
	log.Info().
		Str("component", "httpreq").
		Str("request_id", id).
		Str("method", ctx.Method()).
		Str("path", ctx.Path()).
		Int("status", ctx.Response().StatusCode()).
		Dur("duration", time.Since(start)).
		Msg("received request")
	return nil
}

// ErrorHandler renders every error as an APIError body.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		log.Warn().
			Err(err).
			Str("method", ctx.Method()).
			Str("path", ctx.Path()).
			Msg(apiErr.Message)
		return ctx.Status(apiErr.StatusCode).JSON(apiErr)
	}

	re := ErrInternalError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		re = NewAPIError(fe.Code, "UNKNOWN_ERROR", fe.Message)
	}
	log.Error().
		Err(err).
		Str("method", ctx.Method()).
		Str("path", ctx.Path()).
		Int("status", re.StatusCode).
		Msg("request failed")
	return ctx.Status(re.StatusCode).JSON(re)
}

// request parses the metric and sources query parameters.
// metric defaults to GHI; sources is a comma-separated list, empty means all.
func request(ctx *fiber.Ctx) ([]dataset.SourceID, dataset.Metric, error) {
	metric := dataset.GHI
	if raw := ctx.Query("metric"); raw != "" {
		m, err := dataset.ParseMetric(raw)
		if err != nil {
			return nil, 0, ErrInvalidRequest.WithMessage("invalid metric %q: use one of GHI, DNI, DHI", raw)
		}
		metric = m
	}
	var sel []dataset.SourceID
	for _, part := range strings.Split(ctx.Query("sources"), ",") {
		if s := strings.TrimSpace(part); s != "" {
			sel = append(sel, dataset.SourceID(s))
		}
	}
	return lo.Uniq(sel), metric, nil
}

func (c *controller) loadDataset() (*dataset.Dataset, error) {
	ds, err := c.engine.LoadUnifiedDataset()
	if err != nil {
		return nil, ErrDatasetUnavailable.WithMessage("the unified dataset could not be loaded: %v", err)
	}
	return ds, nil
}

func (c *controller) getSources(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"sources": sourceStrings(c.engine.ListAvailableSources())})
}

func (c *controller) getMetrics(ctx *fiber.Ctx) error {
	type metricView struct {
		Name  string `json:"name"`
		Label string `json:"label"`
		Unit  string `json:"unit"`
	}
	metrics := lo.Map(c.engine.ListAvailableMetrics(), func(m dataset.Metric, _ int) metricView {
		return metricView{Name: m.String(), Label: m.Label(), Unit: dataset.Unit}
	})
	return ctx.JSON(fiber.Map{"metrics": metrics})
}

func (c *controller) getSummary(ctx *fiber.Ctx) error {
	sel, metric, err := request(ctx)
	if err != nil {
		return err
	}
	ds, err := c.loadDataset()
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{
		"metric":    metric.String(),
		"unit":      dataset.Unit,
		"summaries": NewSummaryViews(c.engine.FilterAndSummarize(ds, sel, metric)),
	})
}

func (c *controller) getCompare(ctx *fiber.Ctx) error {
	sel, metric, err := request(ctx)
	if err != nil {
		return err
	}
	ds, err := c.loadDataset()
	if err != nil {
		return err
	}
	res, err := c.engine.CompareGroups(ds, sel, metric)
	if err != nil {
		return translate(err)
	}
	return ctx.JSON(NewComparisonView(res))
}

func (c *controller) getBest(ctx *fiber.Ctx) error {
	sel, metric, err := request(ctx)
	if err != nil {
		return err
	}
	ds, err := c.loadDataset()
	if err != nil {
		return err
	}
	best, err := c.engine.BestPerforming(ds, sel, metric)
	if err != nil {
		return translate(err)
	}
	return ctx.JSON(NewBestView(metric, best))
}

func (c *controller) getBoxPlot(ctx *fiber.Ctx) error {
	sel, metric, err := request(ctx)
	if err != nil {
		return err
	}
	ds, err := c.loadDataset()
	if err != nil {
		return err
	}
	filtered := dataset.Filter(ds, sel)
	if filtered.Len() == 0 {
		return ErrEmptyDataset
	}
	return ctx.JSON(fiber.Map{
		"metric": metric.String(),
		"boxes":  NewBoxViews(stats.BoxPlot(filtered, metric)),
	})
}

func (c *controller) getHistogram(ctx *fiber.Ctx) error {
	sel, metric, err := request(ctx)
	if err != nil {
		return err
	}
	bins := ctx.QueryInt("bins", c.conf.HistogramBins)
	if bins < 0 || bins > 1000 {
		return ErrInvalidRequest.WithMessage("bins must be between 0 and 1000, got %d", bins)
	}
	ds, err := c.loadDataset()
	if err != nil {
		return err
	}
	_, hist, err := c.engine.Distribution(ds, sel, metric, bins)
	if err != nil {
		return translate(err)
	}
	return ctx.JSON(NewHistogramView(hist))
}

func (c *controller) getReport(ctx *fiber.Ctx) error {
	sel, metric, err := request(ctx)
	if err != nil {
		return err
	}
	r, err := c.engine.BuildReport(sel, metric)
	if err != nil {
		return ErrDatasetUnavailable.WithMessage("the unified dataset could not be loaded: %v", err)
	}
	return ctx.JSON(NewReportView(r))
}
