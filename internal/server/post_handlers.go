package server

import (
	"strconv"
	"strings"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type postRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	CategoryID *uint  `json:"category_id"`
	TagIDs     []uint `json:"tag_ids"`
}

type commentRequest struct {
	Content string `json:"content" form:"content"`
}

// Home handles GET /api/
// @Summary Home page
// @Description Latest and trending posts, categories and site stats
// @Tags posts
// @Produce json
// @Success 200 {object} object{latest_posts=[]models.Post,trending_posts=[]models.Post,categories=[]models.Category}
// @Router / [get]
func (s *Server) Home(c *fiber.Ctx) error {
	home, err := s.postService.Home(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"latest_posts":   home.Latest,
		"trending_posts": home.Trending,
		"categories":     home.Categories,
		"total_posts":    home.Stats.TotalPosts,
		"total_authors":  home.Stats.TotalAuthors,
		"total_comments": home.Stats.TotalComments,
	})
}

// GetPosts handles GET /api/posts
// @Summary List posts
// @Description Filter by category and tag, search with q and author, 9 posts per page
// @Tags posts
// @Produce json
// @Param category query string false "Category name"
// @Param tag query string false "Tag name"
// @Param q query string false "Search text"
// @Param author query string false "Author name"
// @Param page query int false "Page number"
// @Success 200 {object} object{page=repository.Page}
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	filter := repository.FeedFilter{
		Category: c.Query("category"),
		Tag:      c.Query("tag"),
		Query:    c.Query("q"),
		Author:   c.Query("author"),
	}

	feed, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		Filter:        filter,
		Page:          parsePage(c),
		CurrentUserID: middleware.CurrentUserID(c),
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"page":           feed.Page,
		"categories":     feed.Categories,
		"tags":           feed.Tags,
		"search_query":   filter.Query,
		"category_query": filter.Category,
		"tag_query":      filter.Tag,
		"author_query":   filter.Author,
	})
}

// GetPost handles GET /api/posts/:id
// @Summary Post detail
// @Description Returns the post with comments and like state; every call counts as a view
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} object{post=models.Post,comments=[]models.Comment,is_liked=bool,like_count=int}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c)
	if err != nil {
		return nil
	}

	detail, err := s.postService.GetPostDetail(c.UserContext(), id, middleware.CurrentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"post":       detail.Post,
		"comments":   detail.Comments,
		"categories": detail.Categories,
		"tags":       detail.Tags,
		"is_liked":   detail.IsLiked,
		"like_count": detail.LikeCount,
	})
}

// CreateComment handles POST /api/posts/:id
// @Summary Comment on a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body commentRequest true "Comment"
// @Success 201 {object} object{comment=models.Comment,redirect=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c)
	if err != nil {
		return nil
	}

	var req commentRequest
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		UserID:  middleware.CurrentUserID(c),
		PostID:  postID,
		Content: req.Content,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	target := postPath(postID)
	c.Location(target)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"comment":  comment,
		"redirect": target,
	})
}

// GetComments handles GET /api/posts/:id/comments
// @Summary List a post's comments
// @Description Oldest first. Unlike the detail view this does not count a view.
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {array} models.Comment
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c)
	if err != nil {
		return nil
	}
	comments, err := s.commentService.ListComments(c.UserContext(), postID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(comments)
}

// ToggleLike handles POST /api/posts/:id/like
// @Summary Like or unlike a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} service.LikeResult
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	postID, err := s.parseID(c)
	if err != nil {
		return nil
	}

	res, err := s.postService.ToggleLike(c.UserContext(), middleware.CurrentUserID(c), postID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"liked":      res.Liked,
		"like_count": res.LikeCount,
		"redirect":   postPath(postID),
	})
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Description Accepts JSON or a multipart form with title, content, category, repeated tag and image
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param request body postRequest true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	in, err := bindPostInput(c)
	if err != nil {
		return respondServiceError(c, err)
	}
	in.UserID = middleware.CurrentUserID(c)

	post, err := s.postService.CreatePost(c.UserContext(), in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/posts/:id
// @Summary Update a post
// @Description Only the author may update; omitting the image keeps the current one
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body postRequest true "Post"
// @Success 200 {object} models.Post
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c)
	if err != nil {
		return nil
	}

	in, err := bindPostInput(c)
	if err != nil {
		return respondServiceError(c, err)
	}
	in.UserID = middleware.CurrentUserID(c)
	in.PostID = postID

	post, err := s.postService.UpdatePost(c.UserContext(), in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete a post
// @Description Only the author may delete; comments, likes and tag links go with it
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{message=string,redirect=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c)
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), service.DeletePostInput{
		UserID: middleware.CurrentUserID(c),
		PostID: postID,
	}); err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":  "Post deleted successfully",
		"redirect": "/posts",
	})
}

func postPath(id uint) string {
	return "/posts/" + strconv.FormatUint(uint64(id), 10)
}

// bindPostInput reads the post form from a JSON body or from form fields.
func bindPostInput(c *fiber.Ctx) (service.PostInput, error) {
	var in service.PostInput

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		var req postRequest
		if err := c.BodyParser(&req); err != nil {
			return in, models.NewValidationError("Invalid request body")
		}
		in.Title = req.Title
		in.Content = req.Content
		in.CategoryID = req.CategoryID
		in.TagIDs = req.TagIDs
		return in, nil
	}

	in.Title = c.FormValue("title")
	in.Content = c.FormValue("content")

	if raw := strings.TrimSpace(c.FormValue("category")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			return in, models.NewFieldValidationError(map[string]string{
				"category": "Select a valid choice. That choice is not one of the available choices.",
			})
		}
		categoryID := uint(id)
		in.CategoryID = &categoryID
	}

	var tagValues []string
	if form, err := c.MultipartForm(); err == nil {
		tagValues = form.Value["tag"]
	} else {
		for _, v := range c.Request().PostArgs().PeekMulti("tag") {
			tagValues = append(tagValues, string(v))
		}
	}
	tagIDs, err := parseIDList(tagValues)
	if err != nil {
		return in, err
	}
	in.TagIDs = tagIDs

	filename, content, err := formFile(c, "image")
	if err != nil {
		return in, models.NewInternalError(err)
	}
	in.ImageFilename = filename
	in.Image = content
	return in, nil
}
