package main

import (
	"context"
	"fmt"
	"os"

	"github.com/imagefeed/backend/internal/app"
)

const usage = `usage: imagefeed <command>

commands:
  serve                  run the HTTP API
  migrate [up|down|status]
  seed <name>            apply seeds/<name>_seed.sql
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := app.Run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "imagefeed: %v\n", err)
		os.Exit(1)
	}
}
