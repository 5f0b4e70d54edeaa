package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/email"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testPassword = "Corr3ct-Horse-Battery"

// recordingSender keeps every message instead of delivering it.
type recordingSender struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type env struct {
	db            *gorm.DB
	images        *ImageService
	users         *UserService
	posts         *PostService
	comments      *CommentService
	taxonomy      *TaxonomyService
	subscriptions *SubscriptionService
	sender        *recordingSender
	postRepo      repository.PostRepository
	commentRepo   repository.CommentRepository
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	images := NewImageService(&config.Config{MediaRoot: t.TempDir(), ImageMaxUploadSizeMB: 1})

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	taxonomyRepo := repository.NewTaxonomyRepository(db)
	sender := &recordingSender{}

	return &env{
		db:            db,
		images:        images,
		users:         NewUserService(userRepo, images),
		posts:         NewPostService(postRepo, commentRepo, taxonomyRepo, images),
		comments:      NewCommentService(commentRepo, postRepo),
		taxonomy:      NewTaxonomyService(taxonomyRepo),
		subscriptions: NewSubscriptionService(repository.NewSubscriberRepository(db), sender, "https://example.com/channel"),
		sender:        sender,
		postRepo:      postRepo,
		commentRepo:   commentRepo,
	}
}

func (e *env) register(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := e.users.Register(context.Background(), RegisterInput{
		Username:        username,
		Password:        testPassword,
		PasswordConfirm: testPassword,
	})
	require.NoError(t, err)
	return u
}

func (e *env) createPost(t *testing.T, author *models.User, title string) *models.Post {
	t.Helper()
	p, err := e.posts.CreatePost(context.Background(), PostInput{
		UserID:  author.ID,
		Title:   title,
		Content: "Some words about " + title,
	})
	require.NoError(t, err)
	return p
}

func requireCode(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}
