package main

import (
	"os"

	"github.com/hannajonsd/sqli-reachability/cli"
)

func main() {
	os.Exit(cli.Execute())
}
