// Command migrate manages the registrations schema in postgres.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/maisgenetica/backend/internal/infrastructure/config"
	"github.com/maisgenetica/backend/internal/infrastructure/logger"
	"github.com/maisgenetica/backend/internal/infrastructure/migration"
	"github.com/maisgenetica/backend/migrations"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "migrations"

// fileCommands never touch the database
var fileCommands = map[string]func(*cli, []string) error{
	"create": (*cli).create,
	"list":   (*cli).list,
}

var dbCommands = map[string]func(*cli, *migration.Migrator, []string) error{
	"up":      func(_ *cli, m *migration.Migrator, _ []string) error { return m.Up() },
	"down":    func(_ *cli, m *migration.Migrator, _ []string) error { return m.Down() },
	"step":    (*cli).step,
	"version": (*cli).version,
	"force":   (*cli).force,
}

type cli struct {
	dir    string
	source fs.FS
	log    *zap.Logger
}

func main() {
	dir := flag.String("path", "", "read migrations from this directory instead of the embedded set")
	level := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	log, err := logger.New(logger.Config{Level: *level, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	c := &cli{dir: *dir, source: migrations.FS, log: log}
	if *dir != "" {
		c.source = os.DirFS(*dir)
	}

	if err := c.run(args[0], args[1:]); err != nil {
		log.Error("migrate failed", zap.String("command", args[0]), zap.Error(err))
		os.Exit(1)
	}
}

func (c *cli) run(command string, args []string) error {
	if fn, ok := fileCommands[command]; ok {
		return fn(c, args)
	}
	fn, ok := dbCommands[command]
	if !ok {
		usage()
		return fmt.Errorf("unknown command %q", command)
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := migration.NewWithSource(db, c.source, c.log)
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(c, m, args)
}

func openDatabase() (*sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if d := cfg.Database.Driver; d != "" && d != "postgres" {
		return nil, fmt.Errorf("driver %q has no SQL migrations; the server creates sqlite schemas itself", d)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func (c *cli) create(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: migrate create <name> [description]")
	}
	dir := c.dir
	if dir == "" {
		dir = defaultMigrationsDir
	}
	var description string
	if len(args) > 1 {
		description = args[1]
	}
	mf, err := migration.CreateMigration(dir, args[0], description)
	if err != nil {
		return err
	}
	c.log.Info("migration created",
		zap.Uint("version", mf.Version),
		zap.String("up", mf.UpPath),
		zap.String("down", mf.DownPath))
	return nil
}

func (c *cli) list(_ []string) error {
	list, err := migration.ListMigrations(c.source)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		c.log.Info("no migrations found")
	}
	for _, m := range list {
		fmt.Printf("%06d  %s\n", m.Version, m.Name)
	}
	return nil
}

func (c *cli) step(m *migration.Migrator, args []string) error {
	n, err := intArg(args, "migrate step <n>")
	if err != nil {
		return err
	}
	return m.Steps(n)
}

func (c *cli) version(m *migration.Migrator, _ []string) error {
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	c.log.Info("schema version", zap.Uint("version", v), zap.Bool("dirty", dirty))
	return nil
}

func (c *cli) force(m *migration.Migrator, args []string) error {
	v, err := intArg(args, "migrate force <version>")
	if err != nil {
		return err
	}
	c.log.Warn("forcing schema version", zap.Int("version", v))
	return m.Force(v)
}

func intArg(args []string, syntax string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("usage: %s", syntax)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", args[0])
	}
	return n, nil
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: migrate [-path dir] [-log-level level] <command> [args]

  up                    apply pending migrations
  down                  roll back every migration
  step <n>              move n migrations (negative rolls back)
  version               print the applied version
  force <version>       mark a version as applied after a failed run
  create <name> [desc]  write an empty up/down pair into -path (default ./migrations)
  list                  list migrations in the source

Database settings come from config.toml and MAISGEN_DATABASE_* variables.
`)
}
