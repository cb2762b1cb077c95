package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/simbo/paintCSS/internal/domain"
)

// MigrateDB creates or updates the users and surfaces tables.
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}
	err := db.Set("gorm:table_options", "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_general_ci").
		AutoMigrate(&domain.User{}, &domain.Surface{})
	if err != nil {
		return fmt.Errorf("auto-migrate tables: %w", err)
	}
	logrus.Info("Database migration completed successfully")
	return nil
}
