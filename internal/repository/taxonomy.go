package repository

import (
	"context"

	"inkwell/internal/cache"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// TaxonomyRepository reads and writes categories and tags.
type TaxonomyRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListTags(ctx context.Context) ([]models.Tag, error)
	GetCategory(ctx context.Context, id uint) (*models.Category, error)
	TagsByIDs(ctx context.Context, ids []uint) ([]models.Tag, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	CreateTag(ctx context.Context, tag *models.Tag) error
}

type taxonomyRepository struct {
	db *gorm.DB
}

// NewTaxonomyRepository returns a TaxonomyRepository backed by db.
func NewTaxonomyRepository(db *gorm.DB) TaxonomyRepository {
	return &taxonomyRepository{db: db}
}

// ListCategories returns every category with the number of posts filed under it.
func (r *taxonomyRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := make([]models.Category, 0)
	err := cache.Aside(ctx, cache.CategoriesKey, &categories, cache.TaxonomyTTL, func() error {
		return r.db.WithContext(ctx).
			Select("categories.*, (SELECT COUNT(*) FROM posts WHERE posts.category_id = categories.id) AS post_count").
			Order("categories.name ASC, categories.id ASC").
			Find(&categories).Error
	})
	return categories, err
}

func (r *taxonomyRepository) ListTags(ctx context.Context) ([]models.Tag, error) {
	tags := make([]models.Tag, 0)
	err := cache.Aside(ctx, cache.TagsKey, &tags, cache.TaxonomyTTL, func() error {
		return r.db.WithContext(ctx).Order("name ASC, id ASC").Find(&tags).Error
	})
	return tags, err
}

func (r *taxonomyRepository) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, translateError(err, "Category", id)
	}
	return &category, nil
}

// TagsByIDs returns the tags that exist among ids. Callers compare lengths to detect unknown ids.
func (r *taxonomyRepository) TagsByIDs(ctx context.Context, ids []uint) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(ids))
	if len(ids) == 0 {
		return tags, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&tags).Error
	return tags, err
}

func (r *taxonomyRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return err
	}
	cache.InvalidateTaxonomy(ctx)
	return nil
}

func (r *taxonomyRepository) CreateTag(ctx context.Context, tag *models.Tag) error {
	if err := r.db.WithContext(ctx).Create(tag).Error; err != nil {
		return err
	}
	cache.InvalidateTaxonomy(ctx)
	return nil
}
