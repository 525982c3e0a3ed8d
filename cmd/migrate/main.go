package main

import (
	"bufio"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"invest/internal/config"
	"invest/internal/db"
	"invest/internal/logging"
)

const migrationsGlob = "migrations/*.sql"

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.AppEnv, cfg.LogLevel)
	ctx := context.Background()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer database.Close()

	if _, err := database.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (filename text primary key, applied_at timestamptz default now())`); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure schema_migrations")
	}

	files, err := filepath.Glob(migrationsGlob)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to read migrations")
	}
	sort.Strings(files)

	applied := 0
	for _, file := range files {
		filename := filepath.Base(file)
		var exists bool
		if err := database.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`, filename); err != nil {
			logger.Fatal().Err(err).Msg("failed to read migration state")
		}
		if exists {
			continue
		}
		if err := applyFile(ctx, database, file); err != nil {
			logger.Fatal().Err(err).Str("file", filename).Msg("failed to apply migration")
		}
		if _, err := database.ExecContext(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, filename); err != nil {
			logger.Fatal().Err(err).Str("file", filename).Msg("failed to record migration")
		}
		logger.Info().Str("file", filename).Msg("migration applied")
		applied++
	}
	logger.Info().Int("applied", applied).Int("total", len(files)).Msg("migrations up to date")
}

func applyFile(ctx context.Context, db execer, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	for _, stmt := range upStatements(string(content)) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// upStatements returns the statements before the Down marker. Statements end
// at the first line containing a semicolon.
func upStatements(sqlText string) []string {
	up, _, _ := strings.Cut(sqlText, "-- +migrate Down")
	var statements []string
	var current strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(up))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		current.WriteString(line)
		current.WriteRune('\n')
		if strings.Contains(line, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		statements = append(statements, current.String())
	}
	return statements
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
