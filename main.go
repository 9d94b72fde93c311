package main

import "github.com/agentic-research/yxflow/cmd"

func main() {
	cmd.Execute()
}
