package database

import (
	"gorm.io/gorm"

	"github.com/meetcute/meetcute-auth/internal/domain"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.User{})
}
