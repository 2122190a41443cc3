package main

import (
	"errors"
	"os"

	"github.com/ppiankov/sqlsleuth/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		var ee *cli.ExitError
		if errors.As(err, &ee) {
			os.Exit(ee.Code)
		}
		os.Exit(1)
	}
}
