package main

import "github.com/benw5483/rectifierr/internal/cli"

func main() {
	cli.Execute()
}
