// Package seed creates demo and test data for the blog database. It is meant
// for development and tests only.
package seed

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password every seeded account can log in with.
const DemoPassword = "inkwell-demo-pass"

// Factory builds domain entities with fake content and persists them through the repositories.
type Factory struct {
	faker    *gofakeit.Faker
	opts     Options
	users    repository.UserRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	// bcrypt hash of DemoPassword shared by every seeded user
	passwordHash string
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a Factory bound to db. A zero opts.RandSeed seeds from the clock.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	cost := bcrypt.DefaultCost
	if opts.FastHash {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}
	return &Factory{
		faker:        gofakeit.New(seed),
		opts:         opts,
		users:        repository.NewUserRepository(db),
		posts:        repository.NewPostRepository(db),
		comments:     repository.NewCommentRepository(db),
		passwordHash: string(hash),
		nextID:       1000,
	}, nil
}

// CreateUser persists a user with a profile. Overrides run before the save.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	first, last := f.faker.FirstName(), f.faker.LastName()
	user := &models.User{
		Username:  usernameFrom(first, last, f.faker.Number(100, 999)),
		FirstName: first,
		LastName:  last,
		Email:     f.faker.Email(),
		Password:  f.passwordHash,
		Profile:   &models.Profile{Bio: f.faker.Sentence(12)},
	}
	if len(user.Username) > 150 {
		user.Username = user.Username[:150]
	}
	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s", user.Username)
		return user, nil
	}
	if err := f.users.CreateWithProfile(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// usernameFrom keeps only the characters signup accepts.
func usernameFrom(first, last string, n int) string {
	var b strings.Builder
	for _, r := range strings.ToLower(first + "_" + last) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return fmt.Sprintf("%s%d", strings.Trim(b.String(), "_"), n)
}

// BuildPost fills a post for author without saving it. The creation time is spread over
// the last opts.MaxDays days so the feed has a realistic order.
func (f *Factory) BuildPost(author *models.User, categories []models.Category, tags []models.Tag) *models.Post {
	title := strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 8)), ".")
	if len(title) > 100 {
		title = strings.TrimSpace(title[:100])
	}
	post := &models.Post{
		Title:   title,
		Content: f.faker.Paragraph(f.faker.Number(2, 6), f.faker.Number(3, 8), f.faker.Number(8, 16), "\n\n"),
		UserID:  author.ID,
	}

	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	post.CreatedAt = time.Now().
		Add(-time.Duration(f.faker.Number(0, maxDays-1)) * 24 * time.Hour).
		Add(-time.Duration(f.faker.Number(0, 23*60)) * time.Minute)
	post.UpdatedAt = post.CreatedAt

	// Roughly one post in five stays uncategorized.
	if len(categories) > 0 && f.faker.Number(1, 5) > 1 {
		id := categories[f.faker.Number(0, len(categories)-1)].ID
		post.CategoryID = &id
	}
	if len(tags) > 0 {
		picked := map[uint]bool{}
		for i := f.faker.Number(0, min(3, len(tags))); i > 0; i-- {
			t := tags[f.faker.Number(0, len(tags)-1)]
			if !picked[t.ID] {
				picked[t.ID] = true
				post.Tags = append(post.Tags, t)
			}
		}
	}
	return post
}

// CreatePost builds and saves a post, then bumps its view count to a random value.
func (f *Factory) CreatePost(ctx context.Context, author *models.User, categories []models.Category, tags []models.Tag) (*models.Post, error) {
	post := f.BuildPost(author, categories, tags)
	if f.opts.DryRun {
		f.nextID++
		post.ID = f.nextID
		log.Printf("[dry-run] CreatePost: user=%d title=%q", post.UserID, post.Title)
		return post, nil
	}
	if err := f.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	for i := f.faker.Number(0, f.opts.maxViews()); i > 0; i-- {
		if err := f.posts.IncrementViewCount(ctx, post.ID); err != nil {
			return nil, err
		}
		post.ViewCount++
	}
	return post, nil
}

// CreateComment saves a comment by author on post.
func (f *Factory) CreateComment(ctx context.Context, author *models.User, post *models.Post) (*models.Comment, error) {
	comment := &models.Comment{
		Content: f.faker.Sentence(f.faker.Number(5, 20)),
		UserID:  author.ID,
		PostID:  post.ID,
	}
	if f.opts.DryRun {
		return comment, nil
	}
	if err := f.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// Like records that user likes post. Liking twice would unlike, so callers pick distinct pairs.
func (f *Factory) Like(ctx context.Context, user *models.User, post *models.Post) error {
	if f.opts.DryRun {
		return nil
	}
	_, err := f.posts.ToggleLike(ctx, post.ID, user.ID)
	return err
}

// Pick returns n distinct users chosen at random, or all of them when n is larger.
func (f *Factory) Pick(users []*models.User, n int) []*models.User {
	if n >= len(users) {
		return users
	}
	shuffled := append([]*models.User(nil), users...)
	f.faker.ShuffleAnySlice(shuffled)
	return shuffled[:n]
}
