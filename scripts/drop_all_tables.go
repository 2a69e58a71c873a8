package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"casefile/internal/repository/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}
	if os.Getenv("ENVIRONMENT") == "prod" {
		log.Fatal("refusing to drop tables in prod")
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = db.Close() }() // Error ignored: script exiting

	if err := postgres.ResetMigrations(context.Background(), db); err != nil {
		log.Fatalf("Failed to drop tables: %v", err)
	}

	fmt.Println("All editing tables dropped")
}
