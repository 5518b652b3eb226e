// Package db opens the metadata database and keeps its schema up to date
package db

import (
	"bitwise74/drive-api/internal/model"
	"bitwise74/drive-api/pkg/util"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New opens the database configured under db.driver and db.dsn
func New() (*gorm.DB, error) {
	driver := viper.GetString("db.driver")
	dsn := viper.GetString("db.dsn")

	// If running in a docker container don't allow the sqlite file to be created.
	// The host should instead mount it using volumes
	if driver == "sqlite" && util.IsRunningInDocker() {
		if _, err := os.Stat(dsn); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("SQLite database file not mounted, please use docker volumes to mount it to /app/%s", dsn)
		}
	}

	return Open(driver, dsn)
}

// Open connects to the database and migrates every table the upload engine
// needs. Unique constraint violations are translated to gorm.ErrDuplicatedKey.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s database, %w", driver, err)
	}

	err = db.AutoMigrate(model.Folder{}, model.File{}, model.Upload{}, model.Part{})
	if err != nil {
		return nil, fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return db, nil
}
