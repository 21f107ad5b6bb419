package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
)

func main() {
	a := mustBootstrapTaxiAPI()
	err := a.Run()
	a.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("taxi-api stopped", "error", err.Error())
		os.Exit(1)
	}
}
