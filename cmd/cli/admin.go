package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/zfogg/plaza/internal/config"
	"github.com/zfogg/plaza/internal/database"
	"github.com/zfogg/plaza/internal/otp"
	"github.com/zfogg/plaza/internal/repository"
	"github.com/zfogg/plaza/internal/search"
	"gorm.io/gorm"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Maintenance tasks run directly against the database",
	Long: `Admin commands connect to the database named by DATABASE_URL (or the
DB_* variables) instead of going through the API.`,
}

func openDB() (*gorm.DB, error) {
	return database.Initialize(config.DatabaseURL(), false)
}

// withDB runs fn with a database connection and a timeout
func withDB(timeout time.Duration, fn func(ctx context.Context, db *gorm.DB) error) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return fn(ctx, db)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(5*time.Minute, func(ctx context.Context, db *gorm.DB) error {
			if err := database.Migrate(db.WithContext(ctx)); err != nil {
				return err
			}
			printSuccess("Schema up to date")
			return nil
		})
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Account moderation",
}

func setBlocked(blocked bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return withDB(30*time.Second, func(ctx context.Context, db *gorm.DB) error {
			user, err := repository.NewUserRepository(db).SetBlocked(ctx, args[0], blocked)
			if err != nil {
				return err
			}
			state := "unblocked"
			if blocked {
				state = "blocked"
			}
			printSuccess("@%s is now %s", user.Username, state)
			return nil
		})
	}
}

var blockCmd = &cobra.Command{
	Use:   "block <email>",
	Short: "Block an account; its tokens stop working immediately",
	Args:  cobra.ExactArgs(1),
	RunE:  setBlocked(true),
}

var unblockCmd = &cobra.Command{
	Use:   "unblock <email>",
	Short: "Lift a block",
	Args:  cobra.ExactArgs(1),
	RunE:  setBlocked(false),
}

var otpPurgeCmd = &cobra.Command{
	Use:   "otp-purge",
	Short: "Delete expired signup codes from the database store",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(time.Minute, func(ctx context.Context, db *gorm.DB) error {
			n, err := otp.NewDBStore(db).Purge(ctx)
			if err != nil {
				return err
			}
			printSuccess("Purged %d expired codes", n)
			return nil
		})
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Create the Elasticsearch indices and rebuild them from the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		esURL := os.Getenv("ELASTICSEARCH_URL")
		if esURL == "" {
			return fmt.Errorf("ELASTICSEARCH_URL is not set")
		}
		es, err := search.NewClient(esURL, nil)
		if err != nil {
			return err
		}

		return withDB(time.Hour, func(ctx context.Context, db *gorm.DB) error {
			if err := es.Ping(ctx); err != nil {
				return err
			}
			if err := es.InitializeIndices(ctx); err != nil {
				return err
			}
			stats, err := search.Reindex(ctx, db, search.NewElasticIndexer(es))
			if err != nil {
				return err
			}
			printSuccess("Indexed %d users and %d posts", stats.Users, stats.Posts)
			if stats.Failed > 0 {
				printError("%d documents failed; see the log for details", stats.Failed)
			}
			return nil
		})
	},
}

func init() {
	userCmd.AddCommand(blockCmd, unblockCmd)
	adminCmd.AddCommand(migrateCmd, userCmd, otpPurgeCmd, reindexCmd)
}
