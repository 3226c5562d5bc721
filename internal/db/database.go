package database

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"raja-mantri-server/internal/entities"
)

// Open connects to the sqlite database at path and migrates the coordinator
// schema. The handle is returned to the caller instead of being kept as a
// package global so tests can use disposable databases.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(&entities.Room{}, &entities.Member{}, &entities.RoomCounter{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	log.Info().Str("path", path).Msg("DB init finished")
	return db, nil
}
