package models

import (
	"math"
	"strings"
	"time"

	"gorm.io/gorm"
)

// WordsPerMinute is the reading speed used for read time estimates.
const WordsPerMinute = 200

// Category groups posts under a single topic.
type Category struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"size:100;not null" json:"name"`
	PostCount int64  `gorm:"->;-:migration" json:"post_count,omitempty"`
}

// Tag is a free-form label; a post carries any number of them.
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100;not null" json:"name"`
}

// Post is a blog article.
type Post struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"size:100;not null" json:"title"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Image      string    `gorm:"size:255" json:"image,omitempty"`
	UserID     uint      `gorm:"not null;index" json:"author_id"`
	User       User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"author"`
	CategoryID *uint     `gorm:"index" json:"category_id"`
	Category   *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"`
	Tags       []Tag     `gorm:"many2many:post_tags;" json:"tags"`
	ViewCount  uint64    `gorm:"not null;default:0" json:"view_count"`
	// LikesCount is not persisted; computed at query time
	LikesCount int64 `gorm:"->;-:migration" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int64 `gorm:"->;-:migration" json:"comments_count"`
	// Liked reports whether the requesting user likes this post (computed)
	Liked     bool      `gorm:"->;-:migration" json:"liked"`
	ReadTime  int       `gorm:"-" json:"read_time"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AfterFind fills fields derived from persisted columns.
func (p *Post) AfterFind(_ *gorm.DB) error {
	p.ReadTime = ReadTime(p.Content)
	return nil
}

// ReadTime estimates reading time in whole minutes, never less than one.
func ReadTime(content string) int {
	words := len(strings.Fields(content))
	minutes := int(math.RoundToEven(float64(words) / WordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// PostLike is the join row recording that a user likes a post.
type PostLike struct {
	PostID    uint      `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
