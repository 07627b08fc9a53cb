package server

import (
	"handbook/internal/middleware"
	"handbook/internal/observability"
	"handbook/internal/service"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Username      string `json:"username" form:"username"`
	Password      string `json:"password" form:"password"`
	Email         string `json:"email" form:"email"`
	DeviceID      string `json:"deviceId" form:"deviceId"`
	Instagram     string `json:"instagram" form:"instagram"`
	HabeshaStatus string `json:"habeshaStatus" form:"habeshaStatus"`
}

// Register handles POST /api/auth/register
// @Summary User registration
// @Description Register an account. Multipart requests may carry an avatar file.
// @Tags auth
// @Accept multipart/form-data
// @Produce json
// @Param username formData string true "Username"
// @Param password formData string true "Password"
// @Param email formData string false "Email"
// @Param deviceId formData string false "Device ID"
// @Param instagram formData string false "Instagram handle"
// @Param habeshaStatus formData string false "Habesha status"
// @Param avatar formData file false "Avatar image"
// @Success 201 {object} service.AuthResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return s.invalidBody(c)
	}

	avatar, err := readUpload(c, "avatar")
	if err != nil {
		return s.respondError(c, err)
	}

	result, err := s.userService.Register(c.UserContext(), service.RegisterInput{
		Username:        req.Username,
		Password:        req.Password,
		Email:           optionalString(req.Email),
		DeviceID:        optionalString(req.DeviceID),
		InstagramHandle: optionalString(req.Instagram),
		HabeshaStatus:   optionalString(req.HabeshaStatus),
		Avatar:          avatar,
	})
	if err != nil {
		observability.AuthAttempts.WithLabelValues("register", "failure").Inc()
		return s.respondError(c, err)
	}

	observability.AuthAttempts.WithLabelValues("register", "success").Inc()
	return c.Status(fiber.StatusCreated).JSON(result)
}

// Login handles POST /api/auth/login
// @Summary User login
// @Description Authenticate with username and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,password=string} true "Login credentials"
// @Success 200 {object} service.AuthResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username" form:"username"`
		Password string `json:"password" form:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.invalidBody(c)
	}

	result, err := s.userService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		observability.AuthAttempts.WithLabelValues("login", "failure").Inc()
		return s.respondError(c, err)
	}

	observability.AuthAttempts.WithLabelValues("login", "success").Inc()
	return c.JSON(result)
}

// GetMe handles GET /api/auth/me
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{user=models.User}
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	user, err := s.userService.Me(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

// GetUserProfile handles GET /api/auth/user/:id
// @Summary Public profile
// @Tags auth
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} object{user=models.PublicProfile}
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/user/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	profile, err := s.userService.PublicProfile(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"user": profile})
}

// UpdateProfile handles PUT /api/auth/profile
// @Summary Update profile
// @Description Replace the editable profile fields; an avatar file replaces the current picture.
// @Tags auth
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param instagram formData string false "Instagram handle"
// @Param habeshaStatus formData string false "Habesha status"
// @Param avatar formData file false "Avatar image"
// @Success 200 {object} object{user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/profile [put]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req struct {
		Instagram     string `json:"instagram" form:"instagram"`
		HabeshaStatus string `json:"habeshaStatus" form:"habeshaStatus"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.invalidBody(c)
	}

	avatar, err := readUpload(c, "avatar")
	if err != nil {
		return s.respondError(c, err)
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:          middleware.UserID(c),
		InstagramHandle: optionalString(req.Instagram),
		HabeshaStatus:   optionalString(req.HabeshaStatus),
		Avatar:          avatar,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}
