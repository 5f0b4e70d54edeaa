package seed

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"inkwell/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed fixtures/taxonomy.yml
var defaultTaxonomy []byte

// TaxonomyFixture lists the category and tag names to ensure exist.
type TaxonomyFixture struct {
	Categories []string `yaml:"categories"`
	Tags       []string `yaml:"tags"`
}

// LoadTaxonomy reads a fixture file. An empty path returns the built-in fixture.
func LoadTaxonomy(path string) (*TaxonomyFixture, error) {
	data := defaultTaxonomy
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read taxonomy fixture: %w", err)
		}
		data = b
	}
	return ParseTaxonomy(data)
}

// ParseTaxonomy decodes a YAML fixture, dropping blank and duplicate names.
func ParseTaxonomy(data []byte) (*TaxonomyFixture, error) {
	var fx TaxonomyFixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse taxonomy fixture: %w", err)
	}
	fx.Categories = cleanNames(fx.Categories)
	fx.Tags = cleanNames(fx.Tags)
	return &fx, nil
}

func cleanNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || len(n) > 100 {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// EnsureTaxonomy creates any fixture category or tag not already present by name.
// It is safe to run on every start.
func EnsureTaxonomy(db *gorm.DB, fx *TaxonomyFixture) ([]models.Category, []models.Tag, error) {
	categories := make([]models.Category, 0, len(fx.Categories))
	tags := make([]models.Tag, 0, len(fx.Tags))

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, name := range fx.Categories {
			var c models.Category
			if err := tx.Where(models.Category{Name: name}).FirstOrCreate(&c).Error; err != nil {
				return fmt.Errorf("category %q: %w", name, err)
			}
			categories = append(categories, c)
		}
		for _, name := range fx.Tags {
			var t models.Tag
			if err := tx.Where(models.Tag{Name: name}).FirstOrCreate(&t).Error; err != nil {
				return fmt.Errorf("tag %q: %w", name, err)
			}
			tags = append(tags, t)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return categories, tags, nil
}
