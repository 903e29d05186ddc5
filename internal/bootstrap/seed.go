package bootstrap

import (
	"context"
	"errors"
	"log"

	"anoa.com/campuspulse/internal/entity"
	"anoa.com/campuspulse/internal/modules/scope/repository"
	"gorm.io/gorm"
)

// SeedColleges inserts the development colleges if they are not present.
// Production tenants are provisioned by the platform, not seeded here.
func SeedColleges(ctx context.Context, scopes repository.ScopeRepository) error {
	defaultColleges := []entity.College{
		{Name: "College of Engineering", Slug: "engineering"},
		{Name: "College of Business", Slug: "business"},
		{Name: "College of Arts and Sciences", Slug: "arts-sciences"},
	}

	for _, college := range defaultColleges {
		_, err := scopes.FindBySlug(ctx, college.Slug)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := scopes.Create(ctx, &college); err != nil {
			return err
		}
		log.Printf("✅ Seeded college %q (%s)", college.Name, college.ID)
	}

	return nil
}
