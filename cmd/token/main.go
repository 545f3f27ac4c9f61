// Command token mints access and refresh tokens for an existing user, or
// bootstraps the first admin account and prints its tokens.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/campusattend/attendance/internal/auth"
	"github.com/campusattend/attendance/internal/config"
	"github.com/campusattend/attendance/internal/logger"
	"github.com/campusattend/attendance/internal/model"
	"github.com/campusattend/attendance/internal/repository"
	"github.com/campusattend/attendance/internal/store"
	"github.com/campusattend/attendance/internal/user"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "token:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := pflag.NewFlagSet("token", pflag.ContinueOnError)
	subject := fs.StringP("user", "u", "", "user id to mint tokens for")
	createAdmin := fs.Bool("create-admin", false, "create an admin user first (needs --email and --name)")
	email := fs.String("email", "", "email for --create-admin")
	name := fs.String("name", "", "display name for --create-admin")
	accessTTL := fs.Duration("access-ttl", cfg.AccessTTL, "access token lifetime")
	refreshTTL := fs.Duration("refresh-ttl", cfg.RefreshTTL, "refresh token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cfg.StorageBackend != "sql" {
		return fmt.Errorf("STORAGE_BACKEND=%s: tokens can only be minted against the sql store", cfg.StorageBackend)
	}
	db, err := store.NewDB(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := repository.Migrate(ctx, db); err != nil {
		return err
	}
	lg, _, err := logger.New(logger.Options{Level: "warn"})
	if err != nil {
		return err
	}
	users := user.NewService(repository.NewSQLStore(db).Users, lg)

	var u model.User
	if *createAdmin {
		u, err = users.Bootstrap(ctx, user.CreateInput{Email: *email, Name: *name, Role: model.RoleAdmin})
	} else if *subject == "" {
		return fmt.Errorf("--user or --create-admin is required")
	} else {
		u, err = users.Lookup(ctx, *subject)
	}
	if err != nil {
		return err
	}

	pair, err := auth.Issue(u.ID, string(u.Role), cfg.JWTIssuer, cfg.JWTSigningKey, *accessTTL, *refreshTTL)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"user_id":       u.ID,
		"role":          u.Role,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_at":    pair.AccessExp.Unix(),
	})
}
