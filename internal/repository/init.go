package repository

import (
	"gorm.io/gorm"

	"github.com/unimailhq/unimail/interfaces"
	"github.com/unimailhq/unimail/internal/models"
)

type Repositories struct {
	MailAccountRepository  interfaces.MailAccountRepository
	AccountTokenRepository interfaces.AccountTokenRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		MailAccountRepository:  NewMailAccountRepository(db),
		AccountTokenRepository: NewAccountTokenRepository(db),
	}
}

func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.MailAccount{},
		&models.AccountToken{},
	)
}
