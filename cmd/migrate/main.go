// migrate applies the embedded schema migrations to DATABASE_URL.
package main

import (
	"errors"
	"fmt"

	"github.com/alecthomas/kong"

	"ztcp-auth/internal/config"
	"ztcp-auth/internal/db/migrate"
)

var version = "dev"

type globals struct {
	DatabaseURL string
}

type upCmd struct{}

func (upCmd) Run(g *globals) error { return apply(g.DatabaseURL, migrate.Up) }

type downCmd struct{}

func (downCmd) Run(g *globals) error { return apply(g.DatabaseURL, migrate.Down) }

type versionCmd struct{}

func (versionCmd) Run(g *globals) error {
	v, dirty, err := migrate.Version(g.DatabaseURL)
	if err != nil {
		return err
	}
	fmt.Printf("version %d (dirty=%t)\n", v, dirty)
	return nil
}

var cli struct {
	DatabaseURL string           `help:"Postgres DSN; overrides DATABASE_URL." name:"database-url"`
	Version     kong.VersionFlag `help:"Print the build version."`

	Up            upCmd      `cmd:"" default:"1" help:"Apply all pending migrations."`
	Down          downCmd    `cmd:"" help:"Roll back all migrations."`
	SchemaVersion versionCmd `cmd:"" name:"schema-version" help:"Print the applied schema version."`
}

func apply(dsn string, dir migrate.Direction) error {
	if err := migrate.Run(dsn, string(dir)); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Description("Run database migrations for the auth service."),
		kong.Vars{"version": version})

	dsn := cli.DatabaseURL
	if dsn == "" {
		cfg, err := config.Load()
		ctx.FatalIfErrorf(err)
		dsn = cfg.DatabaseURL
	}
	if dsn == "" {
		ctx.Fatalf("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	ctx.FatalIfErrorf(ctx.Run(&globals{DatabaseURL: dsn}))
}
