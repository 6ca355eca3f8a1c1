package main

import "github.com/pfrederiksen/sportshub/internal/cli"

func main() {
	cli.Execute()
}
