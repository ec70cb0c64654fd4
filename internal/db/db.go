package db

import (
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/atelierhq/commission-platform/internal/directory"
	"github.com/atelierhq/commission-platform/internal/revision"
)

func Connect(dsn string) *gorm.DB {
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	return gdb
}

// Migrate creates/updates the durable tables. WizardSession state lives in
// redis only and has no table here.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&directory.Actor{},
		&directory.Project{},
		&revision.Revision{},
		&revision.Message{},
		&revision.Attachment{},
	)
}
