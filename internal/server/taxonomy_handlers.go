package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetCategories handles GET /api/categories
// @Summary List categories
// @Tags taxonomy
// @Produce json
// @Success 200 {array} models.Category
// @Router /categories [get]
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.taxonomyService.ListCategories(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(categories)
}

// GetTags handles GET /api/tags
// @Summary List tags
// @Tags taxonomy
// @Produce json
// @Success 200 {array} models.Tag
// @Router /tags [get]
func (s *Server) GetTags(c *fiber.Ctx) error {
	tags, err := s.taxonomyService.ListTags(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(tags)
}

// About handles GET /api/about
// @Summary About the blog
// @Tags taxonomy
// @Produce json
// @Success 200 {object} object{name=string,description=string,channel_url=string,subscribers=int}
// @Router /about [get]
func (s *Server) About(c *fiber.Ctx) error {
	subscribers, err := s.subscriptionService.CountSubscribers(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"name":        "Inkwell",
		"description": "A blog about writing software, with posts, comments and a companion video channel.",
		"channel_url": s.config.ChannelURL,
		"subscribers": subscribers,
	})
}
