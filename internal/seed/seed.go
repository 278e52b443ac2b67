// Package seed loads the reference content CesiZen ships with.
package seed

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"example.com/cesizen/internal/domain"
	"example.com/cesizen/internal/listing"
)

//go:embed seed.yaml
var defaultData []byte

// Data is the seed document.
type Data struct {
	BreathingExercises []domain.BreathingExercise `yaml:"breathing_exercises"`
	ContentCategories  []Category                 `yaml:"content_categories"`
	Diagnostic         []DiagnosticCategory       `yaml:"diagnostic"`
}

// Category is a content category to create.
type Category struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// DiagnosticCategory groups the life events of one questionnaire section.
type DiagnosticCategory struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Questions   []Question `yaml:"questions"`
}

// Question is one scored life event.
type Question struct {
	Title  string `yaml:"title"`
	Points int    `yaml:"points"`
}

// Parse decodes a seed document.
func Parse(raw []byte) (Data, error) {
	var data Data
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return Data{}, fmt.Errorf("parse seed: %w", err)
	}
	return data, nil
}

// Default returns the embedded seed document.
func Default() (Data, error) {
	return Parse(defaultData)
}

// Services are the domain services the seeder writes through.
type Services struct {
	Users      *domain.UserService
	Content    *domain.ContentService
	Diagnostic *domain.DiagnosticService
	Breathing  *domain.BreathingService
}

// Options controls the optional administrator account.
type Options struct {
	AdminEmail    string
	AdminPassword string
}

// Run applies data. Breathing exercises are upserted every time; categories and the questionnaire are
// only created while their collections are empty, so administrator edits survive restarts.
func Run(ctx context.Context, svc Services, data Data, opts Options, logger logrus.FieldLogger) error {
	log := logger.WithField("component", "seed")

	for _, exercise := range data.BreathingExercises {
		if err := svc.Breathing.Save(ctx, exercise); err != nil {
			return fmt.Errorf("seed breathing exercise %s: %w", exercise.ID, err)
		}
	}

	categories, err := svc.Content.ListCategories(ctx, listing.Query{Page: 1, Limit: 1})
	if err != nil {
		return err
	}
	if categories.Total == 0 {
		for _, c := range data.ContentCategories {
			if _, err := svc.Content.CreateCategory(ctx, domain.CategoryInput{Name: c.Name, Description: c.Description}); err != nil {
				return fmt.Errorf("seed category %s: %w", c.Name, err)
			}
		}
		log.WithField("count", len(data.ContentCategories)).Info("content categories seeded")
	}

	existing, err := svc.Diagnostic.ListCategories(ctx)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		if err := seedDiagnostic(ctx, svc.Diagnostic, data.Diagnostic); err != nil {
			return err
		}
		log.WithField("categories", len(data.Diagnostic)).Info("diagnostic questionnaire seeded")
	}

	if opts.AdminEmail != "" && opts.AdminPassword != "" {
		created, err := svc.Users.EnsureAdmin(ctx, opts.AdminEmail, opts.AdminPassword)
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		if created {
			log.WithField("email", opts.AdminEmail).Info("super admin created")
		}
	}
	return nil
}

func seedDiagnostic(ctx context.Context, svc *domain.DiagnosticService, sections []DiagnosticCategory) error {
	var inputs []domain.QuestionInput
	for i, section := range sections {
		category, err := svc.CreateCategory(ctx, domain.DiagnosticCategoryInput{
			Name:        section.Name,
			Description: section.Description,
			Position:    i + 1,
		})
		if err != nil {
			return fmt.Errorf("seed diagnostic category %s: %w", section.Name, err)
		}
		for _, q := range section.Questions {
			inputs = append(inputs, domain.QuestionInput{Title: q.Title, Points: q.Points, CategoryID: category.ID})
		}
	}
	if len(inputs) == 0 {
		return nil
	}
	if _, err := svc.Configure(ctx, inputs); err != nil {
		return fmt.Errorf("seed diagnostic questions: %w", err)
	}
	return nil
}
