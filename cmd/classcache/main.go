// Package main provides the entry point for the classcache CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/classcache/cmd/classcache/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
