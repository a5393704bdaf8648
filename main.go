package main

import (
	"os"

	"github.com/bardcheck/bardscan/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCodeFor(err))
	}
}
