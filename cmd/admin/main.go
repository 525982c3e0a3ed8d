// Command admin provisions accounts and mints access tokens. The HTTP API has
// no signup or login; operators use this tool instead.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"invest/internal/auth"
	"invest/internal/config"
	"invest/internal/db"
	"invest/internal/logging"
	"invest/internal/models"
	"invest/internal/retry"
	"invest/internal/store"
	"invest/internal/validator"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const usage = `usage: admin <command> [flags]

commands:
  create    create an account (-email -username -name -password -role)
  token     mint an access token (-email or -id, -ttl)
  set-role  change an account role (-email or -id, -role)
`

type accountStore interface {
	Create(ctx context.Context, tx store.Execer, input store.AccountInput) error
	GetByID(ctx context.Context, userID string) (models.Account, error)
	GetByEmail(ctx context.Context, email string) (models.Account, error)
	SetRole(ctx context.Context, tx store.Execer, userID, role string) (int64, error)
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cfg := config.Load()
	logger := logging.New(cfg.AppEnv, cfg.LogLevel)

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer database.Close()

	txRunner := db.NewTxRunner(database, retry.DefaultPolicy())
	accounts := store.NewAccountStore(database)
	audit := store.NewAuditStore(database)
	ctx := context.Background()

	switch os.Args[1] {
	case "create":
		input, err := parseCreate(os.Args[2:])
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid arguments")
		}
		err = txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
			if err := accounts.Create(ctx, tx, input); err != nil {
				return err
			}
			return audit.Log(ctx, tx, "", "create_account", "user", input.ID, fmt.Sprintf(`{"role":%q}`, input.Role))
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create account")
		}
		logger.Info().Str("user_id", input.ID).Str("email", input.Email).Str("role", input.Role).Msg("account created")
		fmt.Println(input.ID)
	case "token":
		token, err := mintToken(ctx, accounts, cfg, os.Args[2:])
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to mint token")
		}
		fmt.Println(token)
	case "set-role":
		account, role, err := parseSetRole(ctx, accounts, os.Args[2:])
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid arguments")
		}
		err = txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
			if _, err := accounts.SetRole(ctx, tx, account.ID, string(role)); err != nil {
				return err
			}
			return audit.Log(ctx, tx, "", "set_role", "user", account.ID, fmt.Sprintf(`{"from":%q,"to":%q}`, account.Role, role))
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to set role")
		}
		logger.Info().Str("user_id", account.ID).Str("role", string(role)).Msg("role updated")
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func parseCreate(args []string) (store.AccountInput, error) {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	username := fs.String("username", "", "unique username")
	name := fs.String("name", "", "full name")
	password := fs.String("password", "", "optional password, at least 8 characters")
	role := fs.String("role", string(auth.RoleUser), "user, agent or admin")
	if err := fs.Parse(args); err != nil {
		return store.AccountInput{}, err
	}

	input := store.AccountInput{
		ID:       uuid.NewString(),
		Email:    validator.NormalizeEmail(*email),
		Username: strings.TrimSpace(*username),
		FullName: strings.TrimSpace(*name),
	}
	if err := validator.Account(input.Email, input.Username, input.FullName, *password); err != nil {
		return store.AccountInput{}, err
	}
	parsed, err := auth.ParseRole(*role)
	if err != nil {
		return store.AccountInput{}, err
	}
	input.Role = string(parsed)
	if *password != "" {
		hash, err := auth.HashPassword(*password)
		if err != nil {
			return store.AccountInput{}, err
		}
		input.PasswordHash = &hash
	}
	return input, nil
}

func lookup(ctx context.Context, accounts accountStore, email, id string) (models.Account, error) {
	var (
		account models.Account
		err     error
	)
	switch {
	case id != "":
		account, err = accounts.GetByID(ctx, id)
	case email != "":
		account, err = accounts.GetByEmail(ctx, validator.NormalizeEmail(email))
	default:
		return models.Account{}, errors.New("one of -email or -id is required")
	}
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, errors.New("account not found")
	}
	return account, err
}

func mintToken(ctx context.Context, accounts accountStore, cfg config.Config, args []string) (string, error) {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	id := fs.String("id", "", "account id")
	ttl := fs.Duration("ttl", cfg.TokenTTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if *ttl <= 0 || *ttl > 30*24*time.Hour {
		return "", fmt.Errorf("ttl %s out of range", *ttl)
	}
	account, err := lookup(ctx, accounts, *email, *id)
	if err != nil {
		return "", err
	}
	return auth.GenerateToken(cfg.JWTSecret, account.ID, *ttl)
}

func parseSetRole(ctx context.Context, accounts accountStore, args []string) (models.Account, auth.Role, error) {
	fs := flag.NewFlagSet("set-role", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	id := fs.String("id", "", "account id")
	role := fs.String("role", "", "user, agent or admin")
	if err := fs.Parse(args); err != nil {
		return models.Account{}, "", err
	}
	parsed, err := auth.ParseRole(*role)
	if err != nil {
		return models.Account{}, "", err
	}
	account, err := lookup(ctx, accounts, *email, *id)
	if err != nil {
		return models.Account{}, "", err
	}
	return account, parsed, nil
}
