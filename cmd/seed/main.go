package main

import (
	"context"
	"fmt"
	"os"

	"github.com/zfogg/plaza/internal/config"
	"github.com/zfogg/plaza/internal/database"
	"github.com/zfogg/plaza/internal/logger"
	"github.com/zfogg/plaza/internal/seed"
)

func main() {
	config.LoadDotEnv()
	logger.InitializeConsole(os.Getenv("LOG_LEVEL"))
	defer logger.Close()

	command := "dev"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "dev", "test", "clean", "verify":
	default:
		fmt.Println("Usage: seed [dev|test|clean]")
		fmt.Println("  dev   - Seed development database with realistic data")
		fmt.Println("  test  - Seed a small fixed set of accounts")
		fmt.Println("  clean - Remove all seeded accounts and their content")
		fmt.Println("  verify - Print record counts and top hashtags")
		os.Exit(1)
	}

	db, err := database.Initialize(config.DatabaseURL(), false)
	if err != nil {
		logger.FatalWithErr("Failed to connect to database", err)
	}
	defer database.Close()

	if err := database.Migrate(db); err != nil {
		logger.FatalWithErr("Failed to run migrations", err)
	}

	ctx := context.Background()
	seeder := seed.NewSeeder(db, 0)

	switch command {
	case "dev":
		err = seeder.SeedDev(ctx)
	case "test":
		err = seeder.SeedTest(ctx)
	case "clean":
		err = seeder.Clean(ctx)
	case "verify":
		var sum *seed.Summary
		if sum, err = seeder.Verify(ctx); err == nil {
			sum.Print(os.Stdout)
		}
	}
	if err != nil {
		logger.FatalWithErr("Seed "+command+" failed", err)
	}
	logger.Log.Info("Seed " + command + " finished")
}
