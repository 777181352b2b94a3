// Command migrate manages the billing schema. Migrations are embedded in the
// binary; -path switches to a directory on disk while authoring new ones.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/hungrytum/franchise-billing/internal/infrastructure/config"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/logger"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/migration"
	"github.com/hungrytum/franchise-billing/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "migrations"

var errUsage = errors.New("bad arguments")

// schemaCommand runs against a connected Migrator
type schemaCommand struct {
	usage string
	run   func(m *migration.Migrator, args []string, log *zap.Logger) error
}

var schemaCommands = map[string]schemaCommand{
	"up": {"up", func(m *migration.Migrator, _ []string, _ *zap.Logger) error {
		return m.Up()
	}},
	"down": {"down", func(m *migration.Migrator, _ []string, _ *zap.Logger) error {
		return m.Down()
	}},
	"step": {"step <n>", func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		n, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Steps(n)
	}},
	"goto": {"goto <version>", func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		n, err := intArg(args)
		if err != nil || n < 0 {
			return errUsage
		}
		return m.GoTo(uint(n))
	}},
	"force": {"force <version>", func(m *migration.Migrator, args []string, log *zap.Logger) error {
		n, err := intArg(args)
		if err != nil {
			return err
		}
		log.Warn("Forcing schema version without running migrations", zap.Int("version", n))
		return m.Force(n)
	}},
	"version": {"version", func(m *migration.Migrator, _ []string, log *zap.Logger) error {
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		if version == 0 {
			log.Info("Schema is empty")
			return nil
		}
		log.Info("Schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	}},
	"drop": {"drop -confirm", func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		if !slices.Contains(args, "-confirm") && !slices.Contains(args, "--confirm") {
			return fmt.Errorf("%w: drop deletes every billing table, pass -confirm", errUsage)
		}
		return m.Drop()
	}},
}

func main() {
	path := flag.String("path", "", "Read migrations from this directory instead of the embedded set")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	name, rest := args[0], args[1:]

	log, err := logger.New(logger.Config{Level: *logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	switch name {
	case "create":
		err = create(sourceDir(*path), rest, log)
	case "list":
		err = list(sourceDir(*path), log)
	default:
		cmd, ok := schemaCommands[name]
		if !ok {
			log.Error("Unknown command", zap.String("command", name))
			printUsage()
			os.Exit(1)
		}
		err = runSchema(cmd, *path, rest, log)
		if errors.Is(err, errUsage) {
			log.Fatal("Usage: migrate "+cmd.usage, zap.Error(err))
		}
	}
	if err != nil {
		log.Fatal("Migration command failed", zap.String("command", name), zap.Error(err))
	}
}

func runSchema(cmd schemaCommand, path string, args []string, log *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("reach billing database: %w", err)
	}

	var m *migration.Migrator
	if path != "" {
		m, err = migration.New(db, path, log)
	} else {
		m, err = migration.NewEmbedded(db, migrations.FS, log)
	}
	if err != nil {
		return err
	}
	defer m.Close()

	return cmd.run(m, args, log)
}

func create(dir string, args []string, log *zap.Logger) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: migrate create <name> [description]", errUsage)
	}
	description := ""
	if len(args) > 1 {
		description = args[1]
	}
	mf, err := migration.CreateMigration(dir, args[0], description)
	if err != nil {
		return err
	}
	log.Info("Migration created",
		zap.Uint("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func list(dir string, log *zap.Logger) error {
	names, err := migration.ListMigrations(dir)
	if err != nil {
		return err
	}
	log.Info("Migrations on disk", zap.String("dir", dir), zap.Int("count", len(names)))
	for _, name := range names {
		fmt.Println("  -", name)
	}
	return nil
}

func intArg(args []string) (int, error) {
	if len(args) == 0 {
		return 0, errUsage
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", errUsage, args[0])
	}
	return n, nil
}

// sourceDir is where create writes and list reads migration files
func sourceDir(path string) string {
	if path == "" {
		path = defaultMigrationsDir
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Franchise billing schema migrations

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (negative rolls back)
  goto <version>        Migrate to a specific version
  version               Show the current schema version
  force <version>       Set the version without migrating (clears dirty)
  drop -confirm         Drop every billing table
  create <name> [desc]  Write a new up/down migration pair
  list                  List migrations on disk

Flags:
  -path string          Read migrations from a directory (default: embedded set)
  -log-level string     debug, info, warn or error (default: info)

The database is configured through config.toml or FEES_DATABASE_HOST,
FEES_DATABASE_PORT, FEES_DATABASE_USER, FEES_DATABASE_PASSWORD,
FEES_DATABASE_DBNAME and FEES_DATABASE_SSLMODE.`)
}
