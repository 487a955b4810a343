// seed provisions a principal with a password and roles for local development.
// Idempotent: an existing principal keeps its id; its password is reset and missing roles are added.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"ztcp-auth/internal/config"
	"ztcp-auth/internal/db"
	"ztcp-auth/internal/logging"
	"ztcp-auth/internal/principal/domain"
	"ztcp-auth/internal/principal/repository"
	"ztcp-auth/internal/security"
)

var cli struct {
	Name           string   `help:"Login name." default:"alice"`
	FullName       string   `help:"Display name." default:"Alice Example"`
	Password       string   `help:"Password to set." env:"SEED_PASSWORD" default:"password123"`
	Roles          []string `help:"Roles to assign." default:"admin"`
	ServiceAccount bool     `help:"Create a service account (cannot log in interactively)."`
}

// store is the subset of the principal repository used for provisioning.
type store interface {
	GetByName(ctx context.Context, name string) (*domain.Principal, error)
	Create(ctx context.Context, p *domain.Principal, passwordHash string) error
	SetPasswordHash(ctx context.Context, id, passwordHash string) error
	EnsureRole(ctx context.Context, name string) (*domain.Role, error)
	AssignRole(ctx context.Context, principalID, roleID string) error
}

func main() {
	kctx := kong.Parse(&cli, kong.Description("Create a development principal."))

	cfg, err := config.Load()
	kctx.FatalIfErrorf(err)
	if cfg.DatabaseURL == "" {
		kctx.Fatalf("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	kctx.FatalIfErrorf(err)

	ctx := logger.WithContext(context.Background())
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	kctx.FatalIfErrorf(err)
	defer pool.Close()

	id, err := seed(ctx, repository.NewPostgresRepository(pool), security.NewHasher(cfg.BcryptCost))
	if err != nil {
		pool.Close()
		kctx.FatalIfErrorf(err)
	}
	fmt.Fprintf(os.Stdout, "principal %s (%s) ready\n", cli.Name, id)
}

func seed(ctx context.Context, repo store, hasher *security.Hasher) (string, error) {
	hash, err := hasher.Hash([]byte(cli.Password))
	if err != nil {
		return "", err
	}
	p, err := repo.GetByName(ctx, cli.Name)
	if err != nil {
		return "", err
	}
	if p == nil {
		p = &domain.Principal{Name: cli.Name, FullName: cli.FullName, Active: true, IsServiceAccount: cli.ServiceAccount}
		if err := repo.Create(ctx, p, hash); err != nil {
			return "", err
		}
		zerolog.Ctx(ctx).Info().Str("principal_id", p.ID).Msg("principal created")
	} else if err := repo.SetPasswordHash(ctx, p.ID, hash); err != nil {
		return "", err
	}
	for _, name := range cli.Roles {
		role, err := repo.EnsureRole(ctx, name)
		if err != nil {
			return "", err
		}
		if err := repo.AssignRole(ctx, p.ID, role.ID); err != nil {
			return "", err
		}
	}
	return p.ID, nil
}
