package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zfogg/plaza/internal/client"
	"github.com/zfogg/plaza/internal/config"
	"github.com/zfogg/plaza/internal/logger"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "plaza",
	Short: "Plaza CLI - browse feeds, search and administer a Plaza server",
	Long: `Plaza CLI talks to a Plaza server over its HTTP API, and runs
maintenance tasks directly against the database.

Settings are read from ~/.config/plaza/cli/config.toml and PLAZA_* environment
variables. Run "plaza login" once to store a token.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.LoadDotEnv()
		if err := initConfig(); err != nil {
			return err
		}
		logger.InitializeConsole(viper.GetString("log.level"))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ~/.config/plaza/cli/config.toml)")
	rootCmd.PersistentFlags().String("api", "", "API server URL")
	rootCmd.PersistentFlags().String("token", "", "Authentication token")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format: text or json")
	_ = viper.BindPFlag("api.base_url", rootCmd.PersistentFlags().Lookup("api"))
	_ = viper.BindPFlag("auth.token", rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("output"))

	rootCmd.AddCommand(loginCmd, whoamiCmd, feedCmd, searchCmd, followCmd, unfollowCmd, suggestionsCmd, storiesCmd)
	rootCmd.AddCommand(adminCmd)
}

func initConfig() error {
	viper.SetDefault("api.base_url", "http://localhost:8787")
	viper.SetDefault("api.timeout", 30)
	viper.SetDefault("output.format", "text")
	viper.SetDefault("log.level", "warn")

	viper.SetEnvPrefix("plaza")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if configFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		configFile = filepath.Join(home, ".config", "plaza", "cli", "config.toml")
	}
	viper.SetConfigFile(configFile)
	viper.SetConfigType("toml")
	// a missing file is fine, a broken one is not
	if _, err := os.Stat(configFile); err != nil {
		return nil
	}
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", configFile, err)
	}
	return nil
}

// saveSetting writes key to the config file, creating it if needed
func saveSetting(key, value string) error {
	viper.Set(key, value)
	if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
		return err
	}
	return viper.WriteConfigAs(configFile)
}

func apiClient() *client.Client {
	timeout := time.Duration(viper.GetInt("api.timeout")) * time.Second
	return client.New(viper.GetString("api.base_url"), viper.GetString("auth.token"), timeout)
}

func requireToken() error {
	if viper.GetString("auth.token") == "" {
		return fmt.Errorf("not logged in: run \"plaza login\" or set PLAZA_AUTH_TOKEN")
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
