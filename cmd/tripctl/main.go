// Command tripctl is a terminal client for the trip API: plans, items,
// participants, invites, and trip forecasts.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kjstillabower/trip-planner/internal/config"
	"github.com/kjstillabower/trip-planner/internal/observability"
)

func main() {
	err := run(deps{
		out:        os.Stdout,
		errOut:     os.Stderr,
		loadConfig: config.Load,
		newLogger:  observability.NewCLILogger,
		now:        time.Now,
	}, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}
