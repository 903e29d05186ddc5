package main

import (
	"context"
	"log"

	"anoa.com/campuspulse/internal/bootstrap"
	"anoa.com/campuspulse/internal/config"
	"anoa.com/campuspulse/internal/entity"
	scopeRepository "anoa.com/campuspulse/internal/modules/scope/repository"
	"anoa.com/campuspulse/internal/server"
	"anoa.com/campuspulse/pkg/database"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.Connect(database.Options{
		Host:     cfg.DBHost,
		User:     cfg.DBUser,
		Password: cfg.DBPass,
		Name:     cfg.DBName,
		Port:     cfg.DBPort,
	})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	if err := migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	if cfg.AppEnv == "development" {
		scopes := scopeRepository.NewScopeRepository(db)
		if err := bootstrap.SeedColleges(context.Background(), scopes); err != nil {
			log.Fatalf("failed to seed colleges: %v", err)
		}
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("invalid REDIS_URL: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)

	srv := server.NewServer(cfg, db, redisClient)

	log.Printf("🚀 campuspulse listening on :%s", cfg.Port)
	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.College{},
		&entity.ScopePeriodRollup{},
		&entity.UserPeriodRecord{},
		&entity.Content{},
		&entity.ContentLike{},
		&entity.Comment{},
		&entity.CommentLike{},
		&entity.Recommendation{},
	)
}
