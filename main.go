package main

import "crossdep/internal/cli"

func main() {
	cli.Execute()
}
