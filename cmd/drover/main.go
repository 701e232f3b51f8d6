package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Pick up ANTHROPIC_API_KEY from a local .env if present.
	_ = godotenv.Load()

	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
