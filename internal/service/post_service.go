package service

import (
	"context"
	"fmt"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const (
	HomeLatestLimit   = 3
	HomeTrendingLimit = 4
	MaxTitleLen       = 100
)

type PostService struct {
	postRepo     repository.PostRepository
	commentRepo  repository.CommentRepository
	taxonomyRepo repository.TaxonomyRepository
	images       *ImageService
}

// ListPostsInput carries the feed filters and the requested page.
type ListPostsInput struct {
	Filter        repository.FeedFilter
	Page          int
	CurrentUserID uint
}

// FeedResult is one page of the feed plus the taxonomy shown alongside it.
type FeedResult struct {
	Page       *repository.Page
	Categories []models.Category
	Tags       []models.Tag
}

// HomeResult is everything the landing page shows.
type HomeResult struct {
	Latest     []*models.Post
	Trending   []*models.Post
	Categories []models.Category
	Stats      *repository.HomeStats
}

// PostDetail is a single post with its discussion and the viewer's like state.
type PostDetail struct {
	Post       *models.Post
	Comments   []*models.Comment
	Categories []models.Category
	Tags       []models.Tag
	IsLiked    bool
	LikeCount  int64
}

// PostInput is the bound post form. PostID is only set for updates.
type PostInput struct {
	UserID        uint
	PostID        uint
	Title         string
	Content       string
	CategoryID    *uint
	TagIDs        []uint
	ImageFilename string
	Image         []byte
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

// LikeResult is the like state after a toggle.
type LikeResult struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}

func NewPostService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	taxonomyRepo repository.TaxonomyRepository,
	images *ImageService,
) *PostService {
	return &PostService{
		postRepo:     postRepo,
		commentRepo:  commentRepo,
		taxonomyRepo: taxonomyRepo,
		images:       images,
	}
}

func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) (*FeedResult, error) {
	page, err := s.postRepo.Feed(ctx, in.Filter, in.Page, in.CurrentUserID)
	if err != nil {
		return nil, err
	}
	categories, err := s.taxonomyRepo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	tags, err := s.taxonomyRepo.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	return &FeedResult{Page: page, Categories: categories, Tags: tags}, nil
}

func (s *PostService) Home(ctx context.Context) (*HomeResult, error) {
	latest, err := s.postRepo.Latest(ctx, HomeLatestLimit)
	if err != nil {
		return nil, err
	}
	trending, err := s.postRepo.Trending(ctx, HomeTrendingLimit)
	if err != nil {
		return nil, err
	}
	categories, err := s.taxonomyRepo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.postRepo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &HomeResult{Latest: latest, Trending: trending, Categories: categories, Stats: stats}, nil
}

// GetPostDetail records a view and returns the post as it stands after the view.
// Every call counts, including the author's own and repeated ones.
func (s *PostService) GetPostDetail(ctx context.Context, postID, currentUserID uint) (*PostDetail, error) {
	ctx, span := observability.StartSpan(ctx, "service", "GetPostDetail", attribute.Int("post_id", int(postID)))
	detail, err := s.getPostDetail(ctx, postID, currentUserID)
	observability.EndSpan(span, err)
	return detail, err
}

func (s *PostService) getPostDetail(ctx context.Context, postID, currentUserID uint) (*PostDetail, error) {
	if err := s.postRepo.IncrementViewCount(ctx, postID); err != nil {
		return nil, err
	}
	observability.PostViews.Inc()

	post, err := s.postRepo.GetByID(ctx, postID, currentUserID)
	if err != nil {
		return nil, err
	}
	if post.User.Profile != nil {
		post.User.Profile.ResolveImageURL(MediaURL)
	}
	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		if c.User.Profile != nil {
			c.User.Profile.ResolveImageURL(MediaURL)
		}
	}
	categories, err := s.taxonomyRepo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	tags, err := s.taxonomyRepo.ListTags(ctx)
	if err != nil {
		return nil, err
	}

	return &PostDetail{
		Post:       post,
		Comments:   comments,
		Categories: categories,
		Tags:       tags,
		IsLiked:    post.Liked,
		LikeCount:  post.LikesCount,
	}, nil
}

func (s *PostService) ToggleLike(ctx context.Context, userID, postID uint) (*LikeResult, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, 0); err != nil {
		return nil, err
	}
	liked, err := s.postRepo.ToggleLike(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	state := "unliked"
	if liked {
		state = "liked"
	}
	observability.LikeToggles.WithLabelValues(state).Inc()

	count, err := s.postRepo.LikeCount(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &LikeResult{Liked: liked, LikeCount: count}, nil
}

func (s *PostService) ListUserPosts(ctx context.Context, userID uint) ([]*models.Post, error) {
	return s.postRepo.ListByAuthor(ctx, userID, userID)
}

func (s *PostService) CreatePost(ctx context.Context, in PostInput) (*models.Post, error) {
	tags, err := s.validatePost(ctx, in)
	if err != nil {
		return nil, err
	}
	image, err := s.storePostImage(in)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:      strings.TrimSpace(in.Title),
		Content:    in.Content,
		Image:      image,
		UserID:     in.UserID,
		CategoryID: in.CategoryID,
		Tags:       tags,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		s.images.DeleteMedia(ctx, image)
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID, in.UserID)
}

// UpdatePost applies the form to a post owned by in.UserID. A missing image keeps the current one.
func (s *PostService) UpdatePost(ctx context.Context, in PostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}
	if post.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only update your own posts")
	}

	tags, err := s.validatePost(ctx, in)
	if err != nil {
		return nil, err
	}
	image, err := s.storePostImage(in)
	if err != nil {
		return nil, err
	}

	previousImage := post.Image
	post.Title = strings.TrimSpace(in.Title)
	post.Content = in.Content
	post.CategoryID = in.CategoryID
	post.Category = nil
	post.Tags = tags
	if image != "" {
		post.Image = image
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		s.images.DeleteMedia(ctx, image)
		return nil, err
	}
	if image != "" && previousImage != "" && previousImage != image {
		s.images.DeleteMedia(ctx, previousImage)
	}
	return s.postRepo.GetByID(ctx, post.ID, in.UserID)
}

func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return err
	}
	if post.UserID != in.UserID {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	if err := s.postRepo.Delete(ctx, in.PostID); err != nil {
		return err
	}
	s.images.DeleteMedia(ctx, post.Image)
	return nil
}

// validatePost checks the form fields and resolves the selected tags.
func (s *PostService) validatePost(ctx context.Context, in PostInput) ([]models.Tag, error) {
	fields := validation.Fields{}
	fields.Required("title", in.Title)
	fields.MaxLength("title", strings.TrimSpace(in.Title), MaxTitleLen)
	fields.Required("content", in.Content)

	if in.CategoryID != nil {
		if _, err := s.taxonomyRepo.GetCategory(ctx, *in.CategoryID); err != nil {
			if models.ErrorCode(err) != models.CodeNotFound {
				return nil, err
			}
			fields.Add("category", "Select a valid choice. That choice is not one of the available choices.")
		}
	}

	ids := uniqueIDs(in.TagIDs)
	tags, err := s.taxonomyRepo.TagsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(tags) != len(ids) {
		known := make(map[uint]bool, len(tags))
		for _, t := range tags {
			known[t.ID] = true
		}
		for _, id := range ids {
			if !known[id] {
				fields.Add("tag", fmt.Sprintf("Select a valid choice. %d is not one of the available choices.", id))
				break
			}
		}
	}

	if err := fields.Err(); err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *PostService) storePostImage(in PostInput) (string, error) {
	if len(in.Image) == 0 {
		return "", nil
	}
	rel, err := s.images.StoreUpload(MediaKindPostImage, in.ImageFilename, in.Image)
	if err != nil {
		if appErr, ok := err.(*models.AppError); ok && appErr.Code == models.CodeValidation {
			return "", models.NewFieldValidationError(map[string]string{"image": appErr.Message})
		}
		return "", err
	}
	return rel, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
