package repository

import (
	"context"

	"inkwell/internal/cache"
	"inkwell/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines persistence operations for users and their profiles.
type UserRepository interface {
	// CreateWithProfile inserts the user and its profile in one transaction.
	CreateWithProfile(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// SaveProfile writes the user's names and email together with the profile's bio and image.
	SaveProfile(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateWithProfile(ctx context.Context, user *models.User) error {
	profile := user.Profile
	if profile == nil {
		profile = &models.Profile{}
	}
	if profile.Image == "" {
		profile.Image = models.DefaultProfileImage
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
			return err
		}
		profile.UserID = user.ID
		return tx.Create(profile).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("A user with that username already exists.")
		}
		return err
	}
	user.Profile = profile
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.ProfileKey(id), &user, cache.ProfileTTL, func() error {
		err := r.db.WithContext(ctx).Preload("Profile").First(&user, id).Error
		return translateError(err, "User", id)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername loads the user including the password hash; it bypasses the cache.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Profile").Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, translateError(err, "User", username)
	}
	return &user, nil
}

func (r *userRepository) SaveProfile(ctx context.Context, user *models.User) error {
	if user.Profile == nil {
		return models.NewNotFoundError("Profile", user.ID)
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(user).Select("FirstName", "LastName", "Email", "UpdatedAt").Updates(user)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("User", user.ID)
		}
		return tx.Model(user.Profile).
			Where("user_id = ?", user.ID).
			Select("Bio", "Image", "UpdatedAt").
			Updates(user.Profile).Error
	})
	if err == nil {
		cache.InvalidateProfile(ctx, user.ID)
	}
	return err
}
