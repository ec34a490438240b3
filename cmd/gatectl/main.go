package main

import "github.com/fernandezvara/gatekit/internal/cli"

func main() {
	cli.Execute()
}
