package main

import (
	"os"
	"strings"

	"github.com/nimasrn/store-ledger/internal/config"
	"github.com/nimasrn/store-ledger/pkg/logger"
	"github.com/nimasrn/store-ledger/pkg/pg"
)

// usage: cli [migrate|status] --env=.env --dir=./migrations
func main() {
	err := config.Load(getEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dir := getMigrationPath()
	if dir == "" {
		os.Exit(1)
	}

	switch command() {
	case "status":
		err = pg.MigrationStatus(config.Get().PostgresWrite(), dir)
	default:
		err = pg.Migrate(config.Get().PostgresWrite(), dir)
	}
	if err != nil {
		logger.Error("migration: failed", "error", err)
		os.Exit(1)
	}
}

func command() string {
	for _, v := range os.Args[1:] {
		if !strings.HasPrefix(v, "--") {
			return v
		}
	}
	return "migrate"
}

func getEnvPath() string {
	if v, ok := flagValue("--env="); ok {
		if _, err := os.Stat(v); err != nil {
			logger.Error("failed to open the passed env file", "path", v, "error", err)
			return ""
		}
		return v
	}
	if _, err := os.Stat(".env"); err != nil {
		return ""
	}
	return ".env"
}

func getMigrationPath() string {
	dir := "./migrations"
	if v, ok := flagValue("--dir="); ok {
		dir = v
	}
	if _, err := os.Stat(dir); err != nil {
		logger.Error("migration directory not found", "dir", dir, "error", err)
		return ""
	}
	return dir
}

func flagValue(prefix string) (string, bool) {
	for _, v := range os.Args {
		if strings.HasPrefix(v, prefix) {
			return strings.TrimPrefix(v, prefix), true
		}
	}
	return "", false
}
