package repository

import (
	"context"
	"strings"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/observability"

	sq "github.com/Masterminds/squirrel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// FeedPageSize is the number of posts per feed page.
const FeedPageSize = 9

// FeedFilter holds the optional list predicates. Category and Tag match names exactly;
// Query and Author are case-insensitive substring searches.
type FeedFilter struct {
	Category string `json:"category"`
	Tag      string `json:"tag"`
	Query    string `json:"q"`
	Author   string `json:"author"`
}

// Page is one page of a paginated feed.
type Page struct {
	Posts       []*models.Post `json:"posts"`
	Number      int            `json:"number"`
	NumPages    int            `json:"num_pages"`
	Count       int64          `json:"count"`
	PerPage     int            `json:"per_page"`
	HasNext     bool           `json:"has_next"`
	HasPrevious bool           `json:"has_previous"`
}

// HomeStats are the site-wide counters shown on the home page.
type HomeStats struct {
	TotalPosts    int64 `json:"total_posts"`
	TotalAuthors  int64 `json:"total_authors"`
	TotalComments int64 `json:"total_comments"`
}

// NumPages returns how many pages count items fill. An empty feed still has one page.
func NumPages(count int64, perPage int) int {
	if count <= 0 {
		return 1
	}
	return int((count + int64(perPage) - 1) / int64(perPage))
}

// ClampPage resolves a requested page number: values outside [1, numPages] land on the last page.
func ClampPage(requested, numPages int) int {
	if requested < 1 || requested > numPages {
		return numPages
	}
	return requested
}

// buildFeedFilter renders the filter as a "SELECT DISTINCT posts.id" subquery.
// It returns an empty string when no predicate is set. asciiFold matches the search terms to
// a LOWER() that only folds ASCII, as SQLite's does.
func buildFeedFilter(f FeedFilter, asciiFold bool) (string, []any, error) {
	f.Category = strings.TrimSpace(f.Category)
	f.Tag = strings.TrimSpace(f.Tag)
	f.Query = strings.TrimSpace(f.Query)
	f.Author = strings.TrimSpace(f.Author)
	if f.Category == "" && f.Tag == "" && f.Query == "" && f.Author == "" {
		return "", nil, nil
	}

	q := sq.Select("posts.id").Distinct().From("posts")

	if f.Category != "" {
		q = q.Join("categories filter_cat ON filter_cat.id = posts.category_id").
			Where(sq.Eq{"filter_cat.name": f.Category})
	}
	if f.Tag != "" {
		q = q.Join("post_tags filter_pt ON filter_pt.post_id = posts.id").
			Join("tags filter_tag ON filter_tag.id = filter_pt.tag_id").
			Where(sq.Eq{"filter_tag.name": f.Tag})
	}
	if f.Query != "" {
		pattern := containsPattern(f.Query, asciiFold)
		q = q.LeftJoin("categories search_cat ON search_cat.id = posts.category_id").
			LeftJoin("post_tags search_pt ON search_pt.post_id = posts.id").
			LeftJoin("tags search_tag ON search_tag.id = search_pt.tag_id").
			Where(sq.Or{
				ilike("posts.title", pattern),
				ilike("posts.content", pattern),
				ilike("search_tag.name", pattern),
				ilike("search_cat.name", pattern),
			})
	}
	if f.Author != "" {
		pattern := containsPattern(f.Author, asciiFold)
		q = q.Join("users filter_author ON filter_author.id = posts.user_id").
			Where(sq.Or{
				ilike("filter_author.username", pattern),
				ilike("filter_author.first_name", pattern),
				ilike("filter_author.last_name", pattern),
			})
	}

	return q.ToSql()
}

// ilike is a portable case-insensitive LIKE for Postgres and SQLite.
func ilike(column, pattern string) sq.Sqlizer {
	return sq.Expr("LOWER("+column+") LIKE ? ESCAPE '\\'", pattern)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(term string, asciiFold bool) string {
	if asciiFold {
		term = strings.Map(func(r rune) rune {
			if 'A' <= r && r <= 'Z' {
				return r + ('a' - 'A')
			}
			return r
		}, term)
	} else {
		term = strings.ToLower(term)
	}
	return "%" + likeEscaper.Replace(term) + "%"
}

// Feed returns one page of posts matching filter, newest first.
func (r *postRepository) Feed(ctx context.Context, filter FeedFilter, page int, viewerID uint) (*Page, error) {
	ctx, span := observability.StartSpan(ctx, "repository", "Feed", attribute.Int("page", page))
	defer observeFeed("list", time.Now())

	sub, args, err := buildFeedFilter(filter, r.db.Dialector.Name() == "sqlite")
	if err != nil {
		observability.EndSpan(span, err)
		return nil, err
	}
	scope := func(db *gorm.DB) *gorm.DB {
		if sub == "" {
			return db
		}
		return db.Where("posts.id IN ("+sub+")", args...)
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Scopes(scope).Count(&total).Error; err != nil {
		observability.EndSpan(span, err)
		return nil, err
	}

	numPages := NumPages(total, FeedPageSize)
	number := ClampPage(page, numPages)

	posts := make([]*models.Post, 0, FeedPageSize)
	err = r.applyPostDetails(r.db.WithContext(ctx), viewerID).
		Scopes(scope).
		Preload("User").
		Preload("Category").
		Preload("Tags").
		Order("posts.created_at DESC, posts.id DESC").
		Limit(FeedPageSize).
		Offset((number - 1) * FeedPageSize).
		Find(&posts).Error
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	return &Page{
		Posts:       posts,
		Number:      number,
		NumPages:    numPages,
		Count:       total,
		PerPage:     FeedPageSize,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
	}, nil
}

// Latest returns the most recently created posts.
func (r *postRepository) Latest(ctx context.Context, limit int) ([]*models.Post, error) {
	defer observeFeed("latest", time.Now())
	var posts []*models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx), 0).
		Preload("User").
		Preload("Category").
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

// Trending returns the most viewed posts, newest first among equal view counts.
func (r *postRepository) Trending(ctx context.Context, limit int) ([]*models.Post, error) {
	defer observeFeed("trending", time.Now())
	var posts []*models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx), 0).
		Preload("User").
		Preload("Category").
		Order("posts.view_count DESC, posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

// Stats returns site-wide counters, cached briefly.
func (r *postRepository) Stats(ctx context.Context) (*HomeStats, error) {
	var stats HomeStats
	err := cache.Aside(ctx, cache.HomeStatsKey, &stats, cache.HomeStatsTTL, func() error {
		db := r.db.WithContext(ctx)
		if err := db.Model(&models.Post{}).Count(&stats.TotalPosts).Error; err != nil {
			return err
		}
		if err := db.Model(&models.Post{}).Distinct("user_id").Count(&stats.TotalAuthors).Error; err != nil {
			return err
		}
		return db.Model(&models.Comment{}).Count(&stats.TotalComments).Error
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func observeFeed(kind string, start time.Time) {
	observability.FeedQueryLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
