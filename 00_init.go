package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

func init() {
	// Load .env file before anything else
	var err error
	if path := os.Getenv("ENV_FILE"); path != "" {
		err = godotenv.Load(path)
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		log.Printf("No .env file found: %v", err)
	}
}
