package main

import (
	"os"

	"tasket/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
