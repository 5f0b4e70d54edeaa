package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// fixture bundles an in-memory database with the repositories under test.
type fixture struct {
	db       *gorm.DB
	posts    PostRepository
	comments CommentRepository
	users    UserRepository
	taxonomy TaxonomyRepository
	subs     SubscriberRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	return &fixture{
		db:       db,
		posts:    NewPostRepository(db),
		comments: NewCommentRepository(db),
		users:    NewUserRepository(db),
		taxonomy: NewTaxonomyRepository(db),
		subs:     NewSubscriberRepository(db),
	}
}

func (f *fixture) user(t *testing.T, username, first, last string) *models.User {
	t.Helper()
	u := &models.User{Username: username, FirstName: first, LastName: last, Password: "hash"}
	require.NoError(t, f.users.CreateWithProfile(context.Background(), u))
	return u
}

func (f *fixture) category(t *testing.T, name string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name}
	require.NoError(t, f.taxonomy.CreateCategory(context.Background(), c))
	return c
}

func (f *fixture) tag(t *testing.T, name string) models.Tag {
	t.Helper()
	tag := models.Tag{Name: name}
	require.NoError(t, f.taxonomy.CreateTag(context.Background(), &tag))
	return tag
}

type postOpt func(*models.Post)

func inCategory(c *models.Category) postOpt {
	return func(p *models.Post) { p.CategoryID = &c.ID }
}

func withTags(tags ...models.Tag) postOpt {
	return func(p *models.Post) { p.Tags = tags }
}

func createdAt(ts time.Time) postOpt {
	return func(p *models.Post) { p.CreatedAt = ts }
}

func withContent(content string) postOpt {
	return func(p *models.Post) { p.Content = content }
}

func (f *fixture) post(t *testing.T, author *models.User, title string, opts ...postOpt) *models.Post {
	t.Helper()
	p := &models.Post{Title: title, Content: "body of " + title, UserID: author.ID}
	for _, opt := range opts {
		opt(p)
	}
	require.NoError(t, f.posts.Create(context.Background(), p))
	return p
}

// postsOver creates n posts one minute apart, oldest first.
func (f *fixture) postsOver(t *testing.T, author *models.User, n int) []*models.Post {
	t.Helper()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	out := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, f.post(t, author, fmt.Sprintf("Post %02d", i), createdAt(base.Add(time.Duration(i)*time.Minute))))
	}
	return out
}

func postIDs(posts []*models.Post) []uint {
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}
