package main

import (
	"os"

	"lazyresolve/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
