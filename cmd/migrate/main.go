package main

import (
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/homedeskhq/homedesk/internal/config"
	"github.com/homedeskhq/homedesk/internal/repository"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var db *sqlx.DB
	var schema string

	switch cfg.Database.Driver {
	case "sqlite":
		db, err = sqlx.Open("sqlite", cfg.Database.Path)
		schema = repository.SQLiteSchema
	case "postgres":
		pg := repository.PostgresConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}
		db, err = sqlx.Open("postgres", pg.DSN())
		schema = repository.PostgresSchema
	default:
		log.Fatalf("Unknown database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("Running database migrations...")
	if _, err := db.Exec(schema); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations completed successfully")
}
