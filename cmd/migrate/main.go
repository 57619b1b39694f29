package main

import (
	"errors"
	"log"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
)

// Applies schema migrations against DB_URL. Run with no argument (or "up")
// to migrate forward, "down" to roll everything back.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("migrate: no .env file, using process environment")
	}

	dbUrl := os.Getenv("DB_URL")
	if dbUrl == "" {
		log.Fatal("migrate: DB_URL is not set")
	}

	dir, err := findMigrationsDir()
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}

	m, err := migrate.New("file://"+dir, dbUrl)
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}

	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}

	switch direction {
	case "down":
		err = m.Down()
	default:
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migrate %s: %v", direction, err)
	}
	log.Printf("migrate %s: done (dir=%s)", direction, dir)
}

// findMigrationsDir walks up from the working directory so the tool works
// from the repo root, cmd/migrate, or a build output directory.
func findMigrationsDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for current := cwd; ; current = filepath.Dir(current) {
		candidate := filepath.Join(current, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return filepath.Abs(candidate)
		}
		if filepath.Dir(current) == current {
			return "", errors.New("no migrations directory found above " + cwd)
		}
	}
}
