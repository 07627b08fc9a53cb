package server

import (
	"handbook/internal/middleware"
	"handbook/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetFeed handles GET /api/feed
// @Summary Feed
// @Description Newest posts with author info; is_liked reflects the caller when a valid token is sent.
// @Tags feed
// @Produce json
// @Success 200 {array} models.FeedPost
// @Router /feed [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	posts, err := s.feedService.ListFeed(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(posts)
}

// CreatePost handles POST /api/feed
// @Summary Create post
// @Tags feed
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{content=string,imageUrl=string} true "Post"
// @Success 201 {object} models.FeedPost
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /feed [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req struct {
		Content  *string `json:"content" form:"content"`
		ImageURL *string `json:"imageUrl" form:"imageUrl"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.invalidBody(c)
	}

	post, err := s.feedService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:   middleware.UserID(c),
		Content:  req.Content,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// ToggleLike handles POST /api/feed/:id/like
// @Summary Like or unlike a post
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} object{liked=bool}
// @Failure 404 {object} models.ErrorResponse
// @Router /feed/{id}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	liked, err := s.feedService.ToggleLike(c.UserContext(), c.Params("id"), middleware.UserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"liked": liked})
}

// DeletePost handles DELETE /api/feed/:id
// @Summary Delete own post
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /feed/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	if err := s.feedService.DeletePost(c.UserContext(), c.Params("id"), middleware.UserID(c)); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}
