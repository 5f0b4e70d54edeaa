package repository

import (
	"context"
	"strings"

	"inkwell/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriberRepository stores channel subscribers.
type SubscriberRepository interface {
	// GetOrCreate returns the subscriber for email, creating it if needed, and reports whether it was created.
	GetOrCreate(ctx context.Context, email string) (*models.Subscriber, bool, error)
	Count(ctx context.Context) (int64, error)
}

type subscriberRepository struct {
	db *gorm.DB
}

// NewSubscriberRepository returns a SubscriberRepository backed by db.
func NewSubscriberRepository(db *gorm.DB) SubscriberRepository {
	return &subscriberRepository{db: db}
}

func (r *subscriberRepository) GetOrCreate(ctx context.Context, email string) (*models.Subscriber, bool, error) {
	email = strings.TrimSpace(email)
	db := r.db.WithContext(ctx)

	sub := &models.Subscriber{Email: email, IsActive: true}
	res := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).Create(sub)
	if res.Error != nil && !isUniqueViolation(res.Error) {
		return nil, false, res.Error
	}
	if res.Error == nil && res.RowsAffected == 1 {
		return sub, true, nil
	}

	// Lost the insert to an existing row; read it back.
	var existing models.Subscriber
	if err := db.Where("email = ?", email).First(&existing).Error; err != nil {
		return nil, false, translateError(err, "Subscriber", email)
	}
	return &existing, false, nil
}

func (r *subscriberRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Subscriber{}).Count(&n).Error
	return n, err
}
