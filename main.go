package main

import "github.com/KaramelBytes/solarcmp/cmd"

func main() {
	cmd.Execute()
}
