package service

import (
	"context"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

const MaxTaxonomyNameLen = 100

type TaxonomyService struct {
	repo repository.TaxonomyRepository
}

func NewTaxonomyService(repo repository.TaxonomyRepository) *TaxonomyService {
	return &TaxonomyService{repo: repo}
}

// ListCategories returns every category with its post count, ordered by name.
func (s *TaxonomyService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *TaxonomyService) ListTags(ctx context.Context) ([]models.Tag, error) {
	return s.repo.ListTags(ctx)
}

func (s *TaxonomyService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name, err := validateTaxonomyName(name)
	if err != nil {
		return nil, err
	}
	category := &models.Category{Name: name}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *TaxonomyService) CreateTag(ctx context.Context, name string) (*models.Tag, error) {
	name, err := validateTaxonomyName(name)
	if err != nil {
		return nil, err
	}
	tag := &models.Tag{Name: name}
	if err := s.repo.CreateTag(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

func validateTaxonomyName(name string) (string, error) {
	name = strings.TrimSpace(name)
	fields := validation.Fields{}
	fields.Required("name", name)
	fields.MaxLength("name", name, MaxTaxonomyNameLen)
	return name, fields.Err()
}
