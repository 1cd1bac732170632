package main

import "playout/internal/cli"

func main() {
	cli.Execute()
}
