package main

import (
	"os"

	"github.com/harun/jsonlfmt/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
