package main

import (
	"context"
	"log"
	"os"

	"metapanel/adapters/postgres"
	"metapanel/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	if len(os.Args) > 1 {
		os.Setenv("DATABASE_URL", os.Args[1])
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := postgres.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to panel store: %v", err)
	}
	defer db.Close()

	if err := postgres.Migrate(context.Background(), db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Panel-store schema up to date")
}
