package main

import (
	"os"

	"github.com/catherinevee/importmgr/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
