package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/alexisbeaulieu97/tunebatch/internal/infrastructure/logging"
)

func main() {
	startup := logging.NewStartupLog(0)
	early := startup.Logger().With("component", "startup")

	if err := godotenv.Load(".env"); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			early.Warn(context.Background(), "failed to load .env", "error", err)
		}
	} else {
		early.Debug(context.Background(), "loaded environment from .env")
	}

	if err := newRootCmd(startup).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
