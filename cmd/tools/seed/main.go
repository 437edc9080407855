// Seeds a local database with demo analytics data.
package main

import (
	"context"
	"flag"
	"log"

	"proplens/internal/config"
	"proplens/internal/database"
	"proplens/internal/logging"
	"proplens/internal/seeder"
)

func main() {
	domain := flag.String("domain", "demo.example.com", "website domain to seed")
	email := flag.String("email", "demo@example.com", "owner email for the demo user")
	count := flag.Int("events", 500, "number of occurrences to generate")
	flag.Parse()

	cfg := config.GetConfig()
	logger := logging.NewLogger(cfg)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := dbManager.MigrateDatabase(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	s := seeder.NewSeeder(dbManager.GetConnection(), logger, *count)

	if cfg.AnalyticsBackend == config.ClickHouseBackend {
		conn, err := database.ConnectColumnar(context.Background(), cfg.ClickHouseDSN, logger)
		if err != nil {
			log.Fatalf("Failed to connect columnar store: %v", err)
		}
		defer conn.Close()
		s.Columnar = conn
	}

	if err := s.Seed(context.Background(), *domain, *email); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
