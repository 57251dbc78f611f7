package main

import (
	"os"

	"github.com/Sudhamsh17/equal-weighted-index-100/cmd/index100/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
