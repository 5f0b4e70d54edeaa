package seed

import (
	"context"
	"fmt"
	"log"

	"inkwell/internal/models"

	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	NumUsers        int
	NumPosts        int
	CommentsPerPost int
	// LikeRatio is the share of users that like each post, from 0 to 1.
	LikeRatio float64
	MaxViews  int
	MaxDays   int
	// TaxonomyPath points at a YAML fixture; empty uses the built-in one.
	TaxonomyPath string
	ShouldClean  bool
	DryRun       bool
	FastHash     bool
	RandSeed     int64
}

func (o Options) maxViews() int {
	if o.MaxViews < 0 {
		return 0
	}
	return o.MaxViews
}

// Summary counts what a run created.
type Summary struct {
	Users      int
	Categories int
	Tags       int
	Posts      int
	Comments   int
	Likes      int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d users, %d categories, %d tags, %d posts, %d comments, %d likes",
		s.Users, s.Categories, s.Tags, s.Posts, s.Comments, s.Likes)
}

// Seed populates the database with demo users, taxonomy, posts, comments and likes.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	log.Printf("🌱 Starting database seeding with %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean && !opts.DryRun {
		if err := ClearData(db); err != nil {
			return nil, fmt.Errorf("failed to clear existing data: %w", err)
		}
	}

	fixture, err := LoadTaxonomy(opts.TaxonomyPath)
	if err != nil {
		return nil, err
	}
	var (
		categories []models.Category
		tags       []models.Tag
	)
	if !opts.DryRun {
		categories, tags, err = EnsureTaxonomy(db, fixture)
		if err != nil {
			return nil, fmt.Errorf("failed to seed taxonomy: %w", err)
		}
	}
	summary := &Summary{Categories: len(categories), Tags: len(tags)}
	log.Printf("✓ %d categories and %d tags available", len(categories), len(tags))

	f, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser(ctx)
		if err != nil {
			log.Printf("Failed to create user: %v", err)
			continue
		}
		users = append(users, u)
	}
	summary.Users = len(users)
	log.Printf("✓ %d users created", len(users))
	if len(users) == 0 {
		return summary, nil
	}

	for i := 0; i < opts.NumPosts; i++ {
		author := users[i%len(users)]
		post, err := f.CreatePost(ctx, author, categories, tags)
		if err != nil {
			return nil, fmt.Errorf("failed to create post: %w", err)
		}
		summary.Posts++

		for _, commenter := range f.Pick(users, opts.CommentsPerPost) {
			if _, err := f.CreateComment(ctx, commenter, post); err != nil {
				return nil, fmt.Errorf("failed to create comment: %w", err)
			}
			summary.Comments++
		}

		likers := int(float64(len(users)) * opts.LikeRatio)
		for _, liker := range f.Pick(users, likers) {
			if err := f.Like(ctx, liker, post); err != nil {
				return nil, fmt.Errorf("failed to like post: %w", err)
			}
			summary.Likes++
		}

		if (i+1)%100 == 0 {
			log.Printf("Created %d posts...", i+1)
		}
	}

	log.Printf("🎉 Database seeding completed: %s", summary)
	return summary, nil
}

// ClearData removes every row the seeder can create, children first.
func ClearData(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	return db.Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"post_likes", "post_tags", "comments", "posts", "profiles", "users", "tags", "categories"} {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}
