package main

import (
	"fmt"
	"os"

	"github.com/tillberg/autorestart"

	"github.com/marquee-ai/marquee/internal/cli"
)

func main() {
	go autorestart.RestartOnChange()

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "marquee: %v\n", err)
		os.Exit(1)
	}
}
