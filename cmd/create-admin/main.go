// create-admin creates an admin account, or resets the password and the
// managed blocks of an existing one.  Admins cannot register through
// the API.
//
//	create-admin --email admin@campus.edu --password s3cret --manages A,B
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/iliyamo/campus-hall-booking/internal/config"
	"github.com/iliyamo/campus-hall-booking/internal/database"
	"github.com/iliyamo/campus-hall-booking/internal/model"
	"github.com/iliyamo/campus-hall-booking/internal/repository"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		email, password, name string
		manages               []string
	)
	flags := pflag.NewFlagSet("create-admin", pflag.ContinueOnError)
	flags.StringVar(&email, "email", "", "admin email address (required)")
	flags.StringVar(&password, "password", "", "admin password, at least 8 characters (required)")
	flags.StringVar(&name, "name", "Admin", "display name used in emails")
	flags.StringSliceVar(&manages, "manages", nil, "hall blocks the admin may manage, e.g. A,B,PG")
	if err := flags.Parse(args); err != nil {
		return err
	}

	u, err := adminFrom(email, password, name, manages)
	if err != nil {
		return err
	}

	_ = godotenv.Load()
	cfg := config.Load()
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	if err := repository.NewUserRepo(db).UpsertAdmin(ctx, u, password, cfg.BcryptCost); err != nil {
		return fmt.Errorf("save admin: %w", err)
	}
	fmt.Printf("admin %s ready (manages %s)\n", u.Email, strings.Join(u.Manages, ","))
	return nil
}

// adminFrom validates the flags and builds the account.
func adminFrom(email, password, name string, manages []string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return model.User{}, errors.New("--email is required")
	}
	if len(password) < 8 {
		return model.User{}, errors.New("--password must be at least 8 characters")
	}
	var blocks []string
	for _, b := range manages {
		if b = strings.TrimSpace(b); b != "" {
			blocks = append(blocks, b)
		}
	}
	return model.User{
		Email:      email,
		FirstName:  strings.TrimSpace(name),
		Role:       model.RoleAdmin,
		IsActive:   true,
		IsVerified: true,
		Manages:    blocks,
	}, nil
}
