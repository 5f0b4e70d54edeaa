package service

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/testutil"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_Register(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	user, err := e.users.Register(ctx, RegisterInput{
		Username:        "grace",
		Email:           "grace@example.com",
		Password:        testPassword,
		PasswordConfirm: testPassword,
	})
	require.NoError(t, err)
	require.NotNil(t, user.Profile)
	assert.Equal(t, models.DefaultProfileImage, user.Profile.Image)
	assert.NotEqual(t, testPassword, user.Password)

	_, err = e.users.Register(ctx, RegisterInput{Username: "grace", Password: testPassword, PasswordConfirm: testPassword})
	appErr := requireCode(t, err, models.CodeValidation)
	assert.Equal(t, "A user with that username already exists.", appErr.Fields["username"])
}

func TestUserService_RegisterValidation(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"missing username", RegisterInput{Password: testPassword, PasswordConfirm: testPassword}, "username"},
		{"bad username", RegisterInput{Username: "-bad", Password: testPassword, PasswordConfirm: testPassword}, "username"},
		{"bad email", RegisterInput{Username: "ok_user", Email: "nope", Password: testPassword, PasswordConfirm: testPassword}, "email"},
		{"weak password", RegisterInput{Username: "ok_user", Password: "short", PasswordConfirm: "short"}, "password1"},
		{"mismatch", RegisterInput{Username: "ok_user", Password: testPassword, PasswordConfirm: testPassword + "x"}, "password2"},
		{"missing confirmation", RegisterInput{Username: "ok_user", Password: testPassword}, "password2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.users.Register(context.Background(), tt.in)
			appErr := requireCode(t, err, models.CodeValidation)
			assert.Contains(t, appErr.Fields, tt.field)
		})
	}
}

func TestUserService_Authenticate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	registered := e.register(t, "ada")

	user, err := e.users.Authenticate(ctx, "ada", testPassword)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, err = e.users.Authenticate(ctx, "ada", "wrong")
	requireCode(t, err, models.CodeUnauthorized)

	_, err = e.users.Authenticate(ctx, "nobody", testPassword)
	requireCode(t, err, models.CodeUnauthorized)
}

func TestUserService_UpdateProfileBio(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.register(t, "writer")

	updated, err := e.users.UpdateProfile(ctx, UpdateProfileInput{UserID: user.ID, FirstName: "Ann", LastName: "Writer", Bio: "I write."})
	require.NoError(t, err)
	assert.Equal(t, "I write.", updated.Profile.Bio)
	assert.Equal(t, "Ann Writer", updated.FullName())

	updated, err = e.users.UpdateProfile(ctx, UpdateProfileInput{UserID: user.ID, FirstName: "Anne", Email: "anne@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "I write.", updated.Profile.Bio, "empty bio keeps the stored bio")
	assert.Equal(t, "Anne", updated.FirstName)
	assert.Equal(t, "", updated.LastName)
	assert.Equal(t, "anne@example.com", updated.Email)

	updated, err = e.users.UpdateProfile(ctx, UpdateProfileInput{UserID: user.ID, Bio: "Rewritten."})
	require.NoError(t, err)
	assert.Equal(t, "Rewritten.", updated.Profile.Bio)
}

func TestUserService_UpdateProfileValidation(t *testing.T) {
	e := newEnv(t)
	user := e.register(t, "writer")

	tests := []struct {
		name  string
		in    UpdateProfileInput
		field string
	}{
		{"long first name", UpdateProfileInput{FirstName: strings.Repeat("a", 151)}, "first_name"},
		{"long last name", UpdateProfileInput{LastName: strings.Repeat("a", 151)}, "last_name"},
		{"bad email", UpdateProfileInput{Email: "not-an-email"}, "email"},
		{"long bio", UpdateProfileInput{Bio: strings.Repeat("b", 501)}, "bio"},
		{"not an image", UpdateProfileInput{ImageFilename: "a.png", Image: []byte("text, not pixels")}, "image"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.UserID = user.ID
			_, err := e.users.UpdateProfile(context.Background(), tt.in)
			appErr := requireCode(t, err, models.CodeValidation)
			assert.Contains(t, appErr.Fields, tt.field)
		})
	}
}

func TestUserService_UpdateProfileAvatar(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.register(t, "painter")

	first, err := e.users.UpdateProfile(ctx, UpdateProfileInput{
		UserID:        user.ID,
		ImageFilename: "big.png",
		Image:         testutil.TransparentPNG(t, 800, 400),
	})
	require.NoError(t, err)
	firstImage := first.Profile.Image
	assert.True(t, strings.HasPrefix(firstImage, MediaKindAvatar+"/"))
	assert.Equal(t, "/media/"+firstImage, first.Profile.ImageURL)

	f, err := os.Open(filepath.Join(e.images.MediaRoot(), firstImage))
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(f)
	f.Close()
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 300, cfg.Width)
	assert.Equal(t, 150, cfg.Height)

	second, err := e.users.UpdateProfile(ctx, UpdateProfileInput{
		UserID:        user.ID,
		ImageFilename: "small.jpg",
		Image:         testutil.TinyJPEG(t, 50, 50),
	})
	require.NoError(t, err)
	assert.NotEqual(t, firstImage, second.Profile.Image)
	_, err = os.Stat(filepath.Join(e.images.MediaRoot(), firstImage))
	assert.True(t, os.IsNotExist(err), "previous avatar is removed")
}

func TestUserService_UpdateProfileThumbnailFailureKeepsSave(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.register(t, "sketcher")
	failures := observability.ImageProcessingFailures.WithLabelValues("avatar")
	before := promtestutil.ToFloat64(failures)

	updated, err := e.users.UpdateProfile(ctx, UpdateProfileInput{
		UserID:        user.ID,
		Bio:           "Half an image.",
		ImageFilename: "broken.png",
		Image:         testutil.TruncatedPNG(t, 64, 64),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(updated.Profile.Image, MediaKindAvatar+"/"))
	assert.Equal(t, "Half an image.", updated.Profile.Bio)
	assert.Equal(t, before+1, promtestutil.ToFloat64(failures))

	_, err = os.Stat(filepath.Join(e.images.MediaRoot(), updated.Profile.Image))
	assert.NoError(t, err, "the uploaded file stays in place")

	reloaded, err := e.users.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Profile.Image, reloaded.Profile.Image)
}

func TestUserService_GetProfileMissing(t *testing.T) {
	e := newEnv(t)
	_, err := e.users.GetProfile(context.Background(), 4242)
	requireCode(t, err, models.CodeNotFound)
}
