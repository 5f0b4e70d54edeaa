package server

import (
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Profile sections selected with ?section=.
const (
	sectionProfile = "profile"
	sectionPosts   = "posts"
	sectionUpdate  = "update"
)

const (
	profileUpdatedMessage = "Your profile has been updated successfully!"
	profileInvalidMessage = "Please correct the errors below."
	profileFailureMessage = "An error occurred while updating your profile."
)

// profileForm is the update-form prefill.
type profileForm struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Bio       string `json:"bio"`
	Image     string `json:"image"`
	ImageURL  string `json:"image_url"`
}

func newProfileForm(u *models.User) profileForm {
	form := profileForm{FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
	if u.Profile != nil {
		form.Bio = u.Profile.Bio
		form.Image = u.Profile.Image
		form.ImageURL = u.Profile.ImageURL
	}
	return form
}

// GetProfile handles GET /api/profile
// @Summary Current user's profile
// @Description section=profile (default), posts for the user's own posts, or update for the form prefill
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Param section query string false "profile, posts or update"
// @Success 200 {object} object{section=string,user=models.User}
// @Router /profile [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := middleware.CurrentUserID(c)
	section := c.Query("section", sectionProfile)

	user, err := s.userService.GetProfile(ctx, userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	resp := fiber.Map{"section": section, "user": user}
	switch section {
	case sectionPosts:
		posts, err := s.postService.ListUserPosts(ctx, userID)
		if err != nil {
			return respondServiceError(c, err)
		}
		resp["posts"] = posts
	case sectionUpdate:
		resp["form"] = newProfileForm(user)
	}
	return c.JSON(resp)
}

// UpdateProfile handles POST /api/profile?section=update
// @Summary Update the current user's profile
// @Description Multipart form with first_name, last_name, email, bio and an optional image.
// @Description An empty bio keeps the stored bio; a missing image keeps the stored avatar.
// @Tags profile
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{status=string,message=string,user=models.User}
// @Failure 400 {object} object{status=string,message=string,fields=map[string]string}
// @Failure 500 {object} object{status=string,message=string}
// @Router /profile [post]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	if c.Query("section", sectionProfile) != sectionUpdate {
		return s.GetProfile(c)
	}

	filename, content, err := formFile(c, "image")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"section": sectionUpdate,
			"message": profileFailureMessage,
		})
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:        middleware.CurrentUserID(c),
		FirstName:     c.FormValue("first_name"),
		LastName:      c.FormValue("last_name"),
		Email:         c.FormValue("email"),
		Bio:           c.FormValue("bio"),
		ImageFilename: filename,
		Image:         content,
	})
	if err != nil {
		var fields map[string]string
		if appErr, ok := err.(*models.AppError); ok {
			fields = appErr.Fields
		}
		switch models.ErrorCode(err) {
		case models.CodeValidation:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"status":  "error",
				"section": sectionUpdate,
				"message": profileInvalidMessage,
				"fields":  fields,
			})
		case models.CodeNotFound:
			return respondServiceError(c, err)
		}
		middleware.Logger.ErrorContext(c.UserContext(), "error updating profile", "error", err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"section": sectionUpdate,
			"message": profileFailureMessage,
		})
	}

	c.Location("/profile")
	return c.JSON(fiber.Map{
		"status":   "success",
		"section":  sectionProfile,
		"message":  profileUpdatedMessage,
		"user":     user,
		"redirect": "/profile",
	})
}
