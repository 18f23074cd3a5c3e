// Command verify_ledger replays the audit history of one record and compares it
// with the row as currently stored.
//
//	verify_ledger -table time_entries -id 42
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sjperalta/parktime-api/internal/audit"
	"github.com/sjperalta/parktime-api/internal/config"
	"github.com/sjperalta/parktime-api/internal/database"
	"github.com/sjperalta/parktime-api/internal/repository"
	"github.com/sjperalta/parktime-api/internal/services"
	"github.com/sjperalta/parktime-api/pkg/logger"
)

func main() {
	table := flag.String("table", "time_entries", "audited table")
	id := flag.Uint("id", 0, "record id")
	flag.Parse()

	if *id == 0 {
		log.Fatal("-id is required")
	}

	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Setup(cfg.Environment)

	db, err := database.Connect(cfg.Database, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	repos := repository.NewRepositories(db)
	svcs := services.NewServices(repos, cfg, nil)

	rec, err := load(ctx, repos, *table, uint(*id))
	if err != nil {
		log.Fatalf("Failed to load %s %d: %v", *table, *id, err)
	}

	drift, err := svcs.Audit.Verify(ctx, rec)
	if err != nil {
		log.Fatalf("Failed to verify %s %d: %v", *table, *id, err)
	}
	if len(drift) > 0 {
		log.Printf("%s %d: ledger disagrees with stored row on %s", *table, *id, strings.Join(drift, ", "))
		os.Exit(1)
	}
	log.Printf("%s %d: ledger is consistent", *table, *id)
}

func load(ctx context.Context, repos *repository.Repositories, table string, id uint) (audit.Auditable, error) {
	switch table {
	case "time_entries":
		return repos.TimeEntry.FindByID(ctx, id, true)
	case "employees":
		return repos.Employee.FindByID(ctx, id)
	case "work_codes":
		return repos.WorkCode.FindByID(ctx, id)
	}
	return nil, errors.New("unsupported table, expected time_entries, employees or work_codes")
}
