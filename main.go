package main

import "agentgift-economy/cli"

func main() {
	cli.Execute()
}
