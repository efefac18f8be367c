package main

import (
	"context"
	"fmt"
	"os"

	"mentorcrm_backend/internal/schemacheck"
	"mentorcrm_backend/platform/config"
	"mentorcrm_backend/platform/db"
	"mentorcrm_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting schema conformance check")

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	checker := schemacheck.New(pool)
	results := checker.Check(ctx, schemacheck.DefaultRules())

	broken := 0
	for _, result := range results {
		line := fmt.Sprintf("%-24s %s", result.Rule.Table, result.Status)
		if result.Detail != "" {
			line += "  (" + result.Detail + ")"
		}
		fmt.Println(line)

		if result.Status == schemacheck.StatusMissing || result.Status == schemacheck.StatusError {
			broken++
		}
	}

	if broken > 0 {
		log.Error("schema check failed", "broken", broken, "tables", len(results))
		os.Exit(1)
	}
	log.Info("schema check passed", "tables", len(results))
}
