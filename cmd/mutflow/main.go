package main

import (
	"fmt"
	"os"

	"github.com/anschnapp/mutflow/cmd/mutflow/app"
)

func main() {
	if err := app.NewMutflowCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
