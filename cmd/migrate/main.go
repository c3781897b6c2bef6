package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"pollbox/config"
	"pollbox/pkg/database"

	"github.com/jackc/pgx/v5/pgxpool"
)

const usage = `
Pollbox - Database CLI Tool

Usage:
  migrate [command] [flags]

Commands:
  up          Apply all up migrations
  down        Apply all down migrations (drops every poll table)
  status      Show database connection status and pending files

Flags:
  -migrations string   Path to migrations directory (default "migrations")

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go status
  go run cmd/migrate/main.go -migrations ./migrations down
`

func main() {
	migrationsDir := flag.String("migrations", "migrations", "Path to migrations directory")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	cfg := config.LoadConfig()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	switch command {
	case "up":
		runMigrations(ctx, pool, *migrationsDir, database.Up)
	case "down":
		runMigrations(ctx, pool, *migrationsDir, database.Down)
	case "status":
		showStatus(ctx, pool, *migrationsDir)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool, dir string, direction database.Direction) {
	log.Printf("Running %s migrations from %s", direction, dir)
	if err := database.ApplyMigrations(ctx, pool, dir, direction, log.Printf); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migrations completed successfully")
}

func showStatus(ctx context.Context, pool *pgxpool.Pool, dir string) {
	if err := database.HealthCheck(ctx, pool); err != nil {
		log.Fatalf("Database unreachable: %v", err)
	}
	fmt.Println("Database connection: OK")

	var tables int
	err := pool.QueryRow(ctx, `
		SELECT count(*) FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name IN ('poll_meta', 'poll_responses', 'vote')
	`).Scan(&tables)
	if err != nil {
		log.Fatalf("Failed to inspect schema: %v", err)
	}
	fmt.Printf("Poll tables present: %d/3\n", tables)

	files, err := database.MigrationFiles(dir, database.Up)
	if err != nil {
		log.Fatalf("Failed to list migrations: %v", err)
	}
	for _, f := range files {
		fmt.Printf("  %s\n", f)
	}
}
