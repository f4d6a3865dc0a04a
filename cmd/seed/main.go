// Command seed creates the initial CRM accounts. Without -file it creates the
// default administrator. Existing emails are left untouched.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"crm_backend/internal/auth/password"
	"crm_backend/internal/auth/repository"
	"crm_backend/migrations"
	"crm_backend/platform/config"
	"crm_backend/platform/db"
	"crm_backend/platform/logger"
)

func main() {
	seedPath := flag.String("file", "", "YAML file listing the users to create")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users := defaultSeed(getEnv("SEED_ADMIN_PASSWORD", "admin123"))
	if *seedPath != "" {
		data, err := os.ReadFile(*seedPath)
		if err != nil {
			log.Error("failed to read seed file", "path", *seedPath, "error", err)
			os.Exit(1)
		}
		if users, err = parseSeed(data); err != nil {
			log.Error("invalid seed file", "path", *seedPath, "error", err)
			os.Exit(1)
		}
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, migrations.FS); err != nil {
		log.Error("failed to run database migrations", "error", err)
		os.Exit(1)
	}

	repo := repository.New(pool)
	created := 0
	for _, u := range users {
		if _, err := repo.GetUserByEmail(ctx, u.Email); err == nil {
			log.Info("user already exists", "email", u.Email)
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			log.Error("failed to look up user", "email", u.Email, "error", err)
			os.Exit(1)
		}

		hash, err := password.Hash(u.Password)
		if err != nil {
			log.Error("failed to hash password", "email", u.Email, "error", err)
			os.Exit(1)
		}
		if _, err := repo.CreateUser(ctx, repository.NewUser{
			Name:         u.Name,
			Email:        u.Email,
			PasswordHash: hash,
			Role:         u.Role,
			IsActive:     true,
		}); err != nil {
			log.Error("failed to create user", "email", u.Email, "error", err)
			os.Exit(1)
		}
		created++
		log.Info("user created", "email", u.Email, "role", u.Role)
	}

	log.Info("seed complete", "created", created, "total", len(users))
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}
