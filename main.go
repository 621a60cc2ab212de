package main

import "github.com/agentic-research/fmsx/cmd"

func main() {
	cmd.Execute()
}
