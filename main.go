package main

import (
	"os"

	"github.com/presslane/pressgang/cmd"
	"github.com/presslane/pressgang/internal/logutil"
)

func main() {
	if err := cmd.Execute(); err != nil {
		logutil.Errorf("%v", err)
		os.Exit(1)
	}
}
