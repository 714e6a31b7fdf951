package main

import (
	"os"

	"github.com/ldeneuve/felicare/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
