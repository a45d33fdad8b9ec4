package main

import (
	"github.com/0xAF/owrx-markers/internal/cli"
)

func main() {
	cli.Execute()
}
