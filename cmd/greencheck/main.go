package main

import "greencheck/internal/cli"

func main() {
	cli.Execute()
}
