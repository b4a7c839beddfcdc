package main

import (
	"os"

	"condorbot/cmd/condorbot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
