// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	configDir       = pflag.String("config", ".", "Directory containing config.toml")
	validLogLevels  = []string{"debug", "info", "warn", "error", "fatal"}
	validDBDrivers  = []string{"sqlite", "postgres"}
	minStaleAfter   = time.Hour
	minCleanupEvery = time.Minute
)

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(*configDir)

	v.AutomaticEnv()

	bindEnvs()
	setDefaults()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); ok {
			return errors.New("config.toml file is missing")
		}

		return fmt.Errorf("failed to read config file, %w", err)
	}

	if v.GetString("jwt.secret") == "" {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	return validate()
}

func bindEnvs() {
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.cors", "host_cors")

	v.BindEnv("db.driver", "db_driver")
	v.BindEnv("db.dsn", "db_dsn")

	v.BindEnv("s3.endpoint", "s3_endpoint")
	v.BindEnv("s3.region", "s3_region")
	v.BindEnv("s3.access_key_id", "s3_access_key_id")
	v.BindEnv("s3.secret_access_key", "s3_secret_access_key")
	v.BindEnv("s3.bucket", "s3_bucket")
	v.BindEnv("s3.path_style", "s3_path_style")

	v.BindEnv("jwt.secret", "jwt_secret")

	v.BindEnv("security.rate_limit", "security_rate_limit")

	v.BindEnv("upload.cleanup_interval", "upload_cleanup_interval")
	v.BindEnv("upload.stale_after", "upload_stale_after")
	v.BindEnv("upload.presign_expiry", "upload_presign_expiry")
}

func setDefaults() {
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.cors", []string{"http://localhost:5173"})

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "drive.db")

	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.path_style", false)

	v.SetDefault("security.rate_limit", 10)

	// Stuck uploads are checked twice a day and given half a day to finish
	v.SetDefault("upload.cleanup_interval", 12*time.Hour)
	v.SetDefault("upload.stale_after", 12*time.Hour)
	v.SetDefault("upload.presign_expiry", time.Hour)
}

func validate() error {
	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if !slices.Contains(validDBDrivers, v.GetString("db.driver")) {
		return errors.New("invalid database driver provided")
	}

	if v.GetString("db.dsn") == "" {
		return errors.New("database dsn can't be empty")
	}

	if v.GetString("s3.access_key_id") == "" {
		return errors.New("access key id can't be empty")
	}
	if v.GetString("s3.secret_access_key") == "" {
		return errors.New("secret access key can't be empty")
	}
	if v.GetString("s3.bucket") == "" {
		return errors.New("bucket can't be empty")
	}

	if v.GetInt("security.rate_limit") <= 0 {
		return errors.New("security.rate_limit must be bigger than 0")
	}

	if v.GetDuration("upload.cleanup_interval") < minCleanupEvery {
		return fmt.Errorf("upload.cleanup_interval can't be shorter than %s", minCleanupEvery)
	}

	if v.GetDuration("upload.stale_after") < minStaleAfter {
		return fmt.Errorf("upload.stale_after can't be shorter than %s", minStaleAfter)
	}

	expiry := v.GetDuration("upload.presign_expiry")
	if expiry <= 0 || expiry > 7*24*time.Hour {
		return errors.New("upload.presign_expiry must be between 0 and 7 days")
	}

	return nil
}
