package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostService_DetailCountsEveryView(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.register(t, "author")
	reader := e.register(t, "reader")
	post := e.createPost(t, author, "Counting views")

	viewers := []uint{0, reader.ID, author.ID, reader.ID, 0}
	var last *PostDetail
	for _, viewer := range viewers {
		detail, err := e.posts.GetPostDetail(ctx, post.ID, viewer)
		require.NoError(t, err)
		last = detail
	}
	assert.Equal(t, uint64(len(viewers)), last.Post.ViewCount)
	assert.Equal(t, "/media/"+models.DefaultProfileImage, last.Post.User.Profile.ImageURL)
}

func TestPostService_DetailMissingPost(t *testing.T) {
	e := newEnv(t)
	_, err := e.posts.GetPostDetail(context.Background(), 999, 0)
	requireCode(t, err, models.CodeNotFound)
}

func TestPostService_DetailIncludesCommentsAndLikeState(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.register(t, "author")
	reader := e.register(t, "reader")
	post := e.createPost(t, author, "Discussed")

	_, err := e.comments.CreateComment(ctx, CreateCommentInput{UserID: reader.ID, PostID: post.ID, Content: "first"})
	require.NoError(t, err)
	_, err = e.comments.CreateComment(ctx, CreateCommentInput{UserID: author.ID, PostID: post.ID, Content: "second"})
	require.NoError(t, err)
	_, err = e.posts.ToggleLike(ctx, reader.ID, post.ID)
	require.NoError(t, err)

	detail, err := e.posts.GetPostDetail(ctx, post.ID, reader.ID)
	require.NoError(t, err)
	require.Len(t, detail.Comments, 2)
	assert.Equal(t, "first", detail.Comments[0].Content)
	assert.Equal(t, "second", detail.Comments[1].Content)
	assert.True(t, detail.IsLiked)
	assert.Equal(t, int64(1), detail.LikeCount)
	assert.Equal(t, int64(2), detail.Post.CommentsCount)

	anon, err := e.posts.GetPostDetail(ctx, post.ID, 0)
	require.NoError(t, err)
	assert.False(t, anon.IsLiked)
	assert.Equal(t, int64(1), anon.LikeCount)
}

func TestPostService_ToggleLikeRoundTrip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.register(t, "author")
	reader := e.register(t, "reader")
	post := e.createPost(t, author, "Likeable")

	res, err := e.posts.ToggleLike(ctx, reader.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, &LikeResult{Liked: true, LikeCount: 1}, res)

	res, err = e.posts.ToggleLike(ctx, author.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, &LikeResult{Liked: true, LikeCount: 2}, res)

	res, err = e.posts.ToggleLike(ctx, reader.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, &LikeResult{Liked: false, LikeCount: 1}, res)

	_, err = e.posts.ToggleLike(ctx, reader.ID, 12345)
	requireCode(t, err, models.CodeNotFound)
}

func TestPostService_CreatePostValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.register(t, "author")
	missing := uint(404)

	tests := []struct {
		name  string
		in    PostInput
		field string
	}{
		{"missing title", PostInput{Content: "body"}, "title"},
		{"blank title", PostInput{Title: "   ", Content: "body"}, "title"},
		{"title too long", PostInput{Title: strings.Repeat("t", MaxTitleLen+1), Content: "body"}, "title"},
		{"missing content", PostInput{Title: "Title"}, "content"},
		{"unknown category", PostInput{Title: "Title", Content: "body", CategoryID: &missing}, "category"},
		{"unknown tag", PostInput{Title: "Title", Content: "body", TagIDs: []uint{77}}, "tag"},
		{"not an image", PostInput{Title: "Title", Content: "body", ImageFilename: "x.png", Image: []byte("plain text")}, "image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.UserID = author.ID
			_, err := e.posts.CreatePost(ctx, tt.in)
			appErr := requireCode(t, err, models.CodeValidation)
			assert.Contains(t, appErr.Fields, tt.field)
		})
	}
}

func TestPostService_CreatePostWithTaxonomyAndImage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.register(t, "author")
	cat, err := e.taxonomy.CreateCategory(ctx, "Go")
	require.NoError(t, err)
	t1, err := e.taxonomy.CreateTag(ctx, "concurrency")
	require.NoError(t, err)
	t2, err := e.taxonomy.CreateTag(ctx, "generics")
	require.NoError(t, err)

	post, err := e.posts.CreatePost(ctx, PostInput{
		UserID:        author.ID,
		Title:         "  Channels  ",
		Content:       "Do not communicate by sharing memory.",
		CategoryID:    &cat.ID,
		TagIDs:        []uint{t1.ID, t2.ID, t1.ID},
		ImageFilename: "cover.png",
		Image:         testutil.TinyPNG(t, 20, 10),
	})
	require.NoError(t, err)

	assert.Equal(t, "Channels", post.Title)
	assert.Equal(t, author.ID, post.UserID)
	require.NotNil(t, post.Category)
	assert.Equal(t, "Go", post.Category.Name)
	assert.Len(t, post.Tags, 2)
	assert.True(t, strings.HasPrefix(post.Image, MediaKindPostImage+"/"))
	_, err = os.Stat(filepath.Join(e.images.MediaRoot(), post.Image))
	assert.NoError(t, err)
}

func TestPostService_OwnerChecks(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.register(t, "author")
	intruder := e.register(t, "intruder")
	post := e.createPost(t, author, "Mine")

	_, err := e.posts.UpdatePost(ctx, PostInput{UserID: intruder.ID, PostID: post.ID, Title: "Yours", Content: "x"})
	requireCode(t, err, models.CodeForbidden)

	err = e.posts.DeletePost(ctx, DeletePostInput{UserID: intruder.ID, PostID: post.ID})
	requireCode(t, err, models.CodeForbidden)

	updated, err := e.posts.UpdatePost(ctx, PostInput{UserID: author.ID, PostID: post.ID, Title: "Still mine", Content: "edited"})
	require.NoError(t, err)
	assert.Equal(t, "Still mine", updated.Title)
	assert.Equal(t, "edited", updated.Content)
}

func TestPostService_UpdateReplacesImage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.register(t, "author")

	post, err := e.posts.CreatePost(ctx, PostInput{
		UserID: author.ID, Title: "Pic", Content: "body",
		ImageFilename: "a.png", Image: testutil.TinyPNG(t, 4, 4),
	})
	require.NoError(t, err)
	oldImage := post.Image

	kept, err := e.posts.UpdatePost(ctx, PostInput{UserID: author.ID, PostID: post.ID, Title: "Pic", Content: "body"})
	require.NoError(t, err)
	assert.Equal(t, oldImage, kept.Image)

	replaced, err := e.posts.UpdatePost(ctx, PostInput{
		UserID: author.ID, PostID: post.ID, Title: "Pic", Content: "body",
		ImageFilename: "b.jpg", Image: testutil.TinyJPEG(t, 4, 4),
	})
	require.NoError(t, err)
	assert.NotEqual(t, oldImage, replaced.Image)
	_, err = os.Stat(filepath.Join(e.images.MediaRoot(), oldImage))
	assert.True(t, os.IsNotExist(err))
}

func TestPostService_DeleteCascadesComments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.register(t, "author")
	post := e.createPost(t, author, "Doomed")

	var ids []uint
	for i := 0; i < 3; i++ {
		c, err := e.comments.CreateComment(ctx, CreateCommentInput{UserID: author.ID, PostID: post.ID, Content: fmt.Sprintf("c%d", i)})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}

	require.NoError(t, e.posts.DeletePost(ctx, DeletePostInput{UserID: author.ID, PostID: post.ID}))

	for _, id := range ids {
		_, err := e.commentRepo.GetByID(ctx, id)
		requireCode(t, err, models.CodeNotFound)
	}
	_, err := e.posts.GetPostDetail(ctx, post.ID, 0)
	requireCode(t, err, models.CodeNotFound)
}

func TestPostService_ListPostsAndHome(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.register(t, "author")
	_, err := e.taxonomy.CreateCategory(ctx, "Go")
	require.NoError(t, err)
	for i := 0; i < 11; i++ {
		e.createPost(t, author, fmt.Sprintf("Post %02d", i))
	}

	feed, err := e.posts.ListPosts(ctx, ListPostsInput{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, feed.Page.Number)
	assert.Equal(t, 2, feed.Page.NumPages)
	assert.Len(t, feed.Page.Posts, 2)
	assert.Len(t, feed.Categories, 1)

	filtered, err := e.posts.ListPosts(ctx, ListPostsInput{Filter: repository.FeedFilter{Query: "post 07"}})
	require.NoError(t, err)
	require.Len(t, filtered.Page.Posts, 1)
	assert.Equal(t, "Post 07", filtered.Page.Posts[0].Title)

	home, err := e.posts.Home(ctx)
	require.NoError(t, err)
	assert.Len(t, home.Latest, HomeLatestLimit)
	assert.Len(t, home.Trending, HomeTrendingLimit)
	assert.Equal(t, int64(11), home.Stats.TotalPosts)
	assert.Equal(t, int64(1), home.Stats.TotalAuthors)

	mine, err := e.posts.ListUserPosts(ctx, author.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 11)
}
