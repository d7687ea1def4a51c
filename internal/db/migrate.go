package db

import (
	"log"
	"time"

	"design-review-server/internal/auth"
	"design-review-server/internal/domain"
)

// Migrate runs database migrations
func Migrate() {
	err := AppDb.AutoMigrate(
		&domain.Project{},
		&domain.Version{},
		&domain.File{},
		&domain.Annotation{},
		&domain.Reply{},
		&auth.ReviewLink{},
	)

	if err != nil {
		log.Fatal(err)
	}

	log.Println("Database schema migrated successfully")
}

// SeedData seeds the database with initial data (for development only)
func SeedData() {
	var count int64
	AppDb.Model(&domain.Project{}).Count(&count)
	if count > 0 {
		return
	}

	project := domain.Project{
		Name:   "Demo Project",
		Status: domain.ProjectDraft,
		Versions: []domain.Version{
			{
				Label:     "V1",
				Status:    domain.VersionDraft,
				CreatedAt: time.Now().UTC(),
				Files: []domain.File{
					{MediaType: "image/png", CreatedAt: time.Now().UTC()},
					{MediaType: "application/pdf", CreatedAt: time.Now().UTC()},
				},
			},
		},
	}

	if err := AppDb.Create(&project).Error; err != nil {
		log.Printf("Error seeding demo project: %v", err)
		return
	}
	log.Printf("Created demo project %d", project.ID)
}
