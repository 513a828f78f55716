package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/testboard/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "testboard: %v\n", err)
		os.Exit(1)
	}
}
