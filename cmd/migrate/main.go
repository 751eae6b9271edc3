package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/davidleathers/outbound-pacing-backend/internal/infrastructure/config"
	"github.com/davidleathers/outbound-pacing-backend/internal/infrastructure/database"
	"github.com/davidleathers/outbound-pacing-backend/internal/infrastructure/telemetry"
)

const defaultMigrationsDir = "internal/infrastructure/database/migrations"

func main() {
	var (
		action     = flag.String("action", "up", "Migration action: up, down, status, create")
		name       = flag.String("name", "", "Migration name (for create action)")
		steps      = flag.Int("steps", 0, "Number of migrations to run (0 = all)")
		dir        = flag.String("dir", defaultMigrationsDir, "Migrations directory (for create action)")
		configPath = flag.String("config", "", "Path to configuration file")
	)
	flag.Parse()

	if *action == "create" {
		if *name == "" {
			log.Fatal("migration name is required for create action")
		}
		up, down, err := createMigration(*dir, *name)
		if err != nil {
			log.Fatalf("create failed: %v", err)
		}
		fmt.Printf("created %s\ncreated %s\n", up, down)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := telemetry.SetupLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to setup logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(context.Background(), cfg.Database, *action, *steps, logger); err != nil {
		logger.Fatal("migration failed", zap.String("action", *action), zap.Error(err))
	}
}

func run(ctx context.Context, dbCfg config.DatabaseConfig, action string, steps int, logger *zap.Logger) error {
	pool, err := database.NewPool(ctx, dbCfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	mg, err := database.NewMigrator(pool, logger)
	if err != nil {
		return err
	}
	defer mg.Close()

	switch action {
	case "up":
		return mg.Up(steps)
	case "down":
		return mg.Down(steps)
	case "status":
		v, dirty, err := mg.Version()
		if err != nil {
			return err
		}
		logger.Info("schema status", zap.Uint("version", v), zap.Bool("dirty", dirty))
		return nil
	default:
		return fmt.Errorf("unknown action %q", action)
	}
}

var migrationFile = regexp.MustCompile(`^(\d+)_[a-z0-9_]+\.(up|down)\.sql$`)

var migrationName = regexp.MustCompile(`^[a-z0-9_]+$`)

// createMigration writes an empty up/down pair numbered after the highest
// existing version in dir.
func createMigration(dir, name string) (string, string, error) {
	if !migrationName.MatchString(name) {
		return "", "", fmt.Errorf("migration name %q must be lower_snake_case", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create migrations directory: %w", err)
	}

	next, err := nextVersion(dir)
	if err != nil {
		return "", "", err
	}

	base := fmt.Sprintf("%06d_%s", next, name)
	up := filepath.Join(dir, base+".up.sql")
	down := filepath.Join(dir, base+".down.sql")
	for _, f := range []string{up, down} {
		content := fmt.Sprintf("-- %s\n", filepath.Base(f))
		if err := os.WriteFile(f, []byte(content), 0o644); err != nil {
			return "", "", fmt.Errorf("failed to create migration file: %w", err)
		}
	}
	return up, down, nil
}

func nextVersion(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var versions []int
	for _, e := range entries {
		m := migrationFile.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		v, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, err
		}
		versions = append(versions, v)
	}
	if len(versions) == 0 {
		return 1, nil
	}
	sort.Ints(versions)
	return versions[len(versions)-1] + 1, nil
}
