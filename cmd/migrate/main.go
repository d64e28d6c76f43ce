package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"guesswho/internal/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Applies the schema migrations under db/migrations against DATABASE_URL.
// With -down it rolls back one step instead, for recovering from a bad
// migration during development.
func main() {
	down := flag.Bool("down", false, "roll back the most recent migration instead of applying")
	source := flag.String("source", "file://db/migrations", "migration source URL")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("no .env loaded: %v", err)
	}
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	m, err := migrate.New(*source, dsn)
	if err != nil {
		log.Fatalf("migrate init: %v", err)
	}
	if *down {
		if err := m.Steps(-1); err != nil {
			log.Fatalf("rollback: %v", err)
		}
		log.Println("rolled back one migration")
		return
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migrate up: %v", err)
	}
	version, dirty, _ := m.Version()
	log.Printf("schema up to date version=%d dirty=%t", version, dirty)
}
