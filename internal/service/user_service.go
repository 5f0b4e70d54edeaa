package service

import (
	"context"
	"log/slog"
	"strings"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const invalidLoginMessage = "Please enter a correct username and password. Note that both fields may be case-sensitive."

type UserService struct {
	userRepo repository.UserRepository
	images   *ImageService
}

// RegisterInput is the signup form.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
}

// UpdateProfileInput is the combined user and profile form. An empty Bio leaves the current bio
// unchanged and an empty Image keeps the current avatar.
type UpdateProfileInput struct {
	UserID        uint
	FirstName     string
	LastName      string
	Email         string
	Bio           string
	ImageFilename string
	Image         []byte
}

func NewUserService(userRepo repository.UserRepository, images *ImageService) *UserService {
	return &UserService{userRepo: userRepo, images: images}
}

// Register creates the account and its profile. The returned user carries the profile.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	fields := validation.Fields{}
	fields.Required("username", username)
	if username != "" {
		fields.Check("username", validation.ValidateUsername(username))
	}
	fields.MaxLength("email", email, validation.MaxEmailLen)
	fields.OptionalEmail("email", email)
	fields.Required("password1", in.Password)
	if in.Password != "" {
		fields.Check("password1", validation.ValidatePassword(in.Password))
	}
	fields.Required("password2", in.PasswordConfirm)
	if in.PasswordConfirm != "" {
		fields.Check("password2", validation.ValidatePasswordConfirmation(in.Password, in.PasswordConfirm))
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: string(hashed),
	}
	if err := s.userRepo.CreateWithProfile(ctx, user); err != nil {
		if models.ErrorCode(err) == models.CodeConflict {
			return nil, models.NewFieldValidationError(map[string]string{
				"username": "A user with that username already exists.",
			})
		}
		return nil, err
	}
	if user.Profile != nil {
		user.Profile.ResolveImageURL(MediaURL)
	}
	return user, nil
}

// Authenticate checks a username and password pair. Unknown users and wrong passwords fail alike.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return nil, models.NewUnauthorizedError(invalidLoginMessage)
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, models.NewUnauthorizedError(invalidLoginMessage)
	}
	return user, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Profile == nil {
		user.Profile = &models.Profile{UserID: user.ID, Image: models.DefaultProfileImage}
	}
	user.Profile.ResolveImageURL(MediaURL)
	return user, nil
}

// UpdateProfile saves the user and profile forms together. A new avatar is thumbnailed after
// the save; a thumbnail failure is logged and does not fail the update.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.GetProfile(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(in.Email)
	fields := validation.Fields{}
	fields.MaxLength("first_name", in.FirstName, validation.MaxNameLen)
	fields.MaxLength("last_name", in.LastName, validation.MaxNameLen)
	fields.MaxLength("email", email, validation.MaxEmailLen)
	fields.OptionalEmail("email", email)
	fields.MaxLength("bio", in.Bio, validation.MaxBioLen)
	if err := fields.Err(); err != nil {
		return nil, err
	}

	var newImage string
	if len(in.Image) > 0 {
		newImage, err = s.images.StoreUpload(MediaKindAvatar, in.ImageFilename, in.Image)
		if err != nil {
			if appErr, ok := err.(*models.AppError); ok && appErr.Code == models.CodeValidation {
				return nil, models.NewFieldValidationError(map[string]string{"image": appErr.Message})
			}
			return nil, err
		}
	}

	previousImage := user.Profile.Image
	user.FirstName = in.FirstName
	user.LastName = in.LastName
	user.Email = email
	if in.Bio != "" {
		user.Profile.Bio = in.Bio
	}
	if newImage != "" {
		user.Profile.Image = newImage
	}

	if newImage != "" && previousImage != newImage {
		s.images.DeleteMedia(ctx, previousImage)
	}

	if err := s.userRepo.SaveProfile(ctx, user); err != nil {
		s.images.DeleteMedia(ctx, newImage)
		return nil, err
	}

	if newImage != "" {
		if err := s.images.ProcessAvatar(ctx, newImage); err != nil {
			observability.ImageProcessingFailures.WithLabelValues("avatar").Inc()
			middleware.Logger.WarnContext(ctx, "avatar thumbnail failed",
				slog.Uint64("user_id", uint64(user.ID)),
				slog.String("path", newImage),
				slog.String("error", err.Error()))
		}
	}

	return s.GetProfile(ctx, user.ID)
}
