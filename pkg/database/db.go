package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Options carries the connection settings for the durable record store.
type Options struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
}

// Connect opens a postgres connection. The handle is injected into every
// repository at construction; there is no package-level singleton.
func Connect(opts Options) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		opts.Host, opts.User, opts.Password, opts.Name, opts.Port,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	return db, nil
}
