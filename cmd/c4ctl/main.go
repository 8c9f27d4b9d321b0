package main

import (
	"os"

	"connect4engine/pkg/logger"
)

func main() {
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	if err := newRootCmd().Execute(); err != nil {
		logger.Sync()
		os.Exit(1)
	}
}
