/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/josephgoksu/ReportWing/internal/app"
	"github.com/josephgoksu/ReportWing/internal/config"
	"github.com/josephgoksu/ReportWing/internal/logger"
	"github.com/spf13/viper"
)

// InitConfig reads in config file and ENV variables if set.
func InitConfig() {
	// A missing .env is fine.
	_ = godotenv.Load()

	viper.SetEnvPrefix(config.EnvPrefix)                   // e.g., REPORTWING_LLM_PROVIDER
	viper.AutomaticEnv()                                   // Read in environment variables that match
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // Replace dots with underscores in env var names
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if dir, err := config.GetGlobalConfigDir(); err == nil {
			viper.AddConfigPath(dir)
		}
		viper.SetConfigName(config.ConfigName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	} else {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
			if verbose {
				fmt.Fprintln(os.Stderr, "No config file found. Using defaults and environment variables.")
			}
		case cfgFile != "" && errors.Is(err, os.ErrNotExist):
			fmt.Fprintln(os.Stderr, "Error: Specified config file not found:", cfgFile)
		default:
			fmt.Fprintln(os.Stderr, "Error reading config file:", viper.ConfigFileUsed(), "-", err)
		}
	}

	logger.SetBasePath(config.GetCacheDir(viper.GetViper()))
}

// openContext loads and validates the settings and builds the app context
// every report command runs against.
func openContext() (*app.Context, error) {
	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	level := settings.Log.Level
	if verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Options{Level: level, Format: settings.Log.Format})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return app.NewContext(settings, app.WithLogger(log))
}
