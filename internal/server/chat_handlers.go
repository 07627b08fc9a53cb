package server

import (
	"handbook/internal/service"

	"github.com/gofiber/fiber/v2"
)

type membershipRequest struct {
	UserID string `json:"userId" form:"userId"`
}

// GetChannels handles GET /api/chat/channels
// @Summary List channels
// @Description Announcement channels first, then by name.
// @Tags chat
// @Produce json
// @Success 200 {array} models.Channel
// @Router /chat/channels [get]
func (s *Server) GetChannels(c *fiber.Ctx) error {
	channels, err := s.chatService.ListChannels(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(channels)
}

// GetChannel handles GET /api/chat/channels/:id
// @Summary Get channel
// @Tags chat
// @Produce json
// @Param id path string true "Channel ID"
// @Success 200 {object} models.Channel
// @Failure 404 {object} models.ErrorResponse
// @Router /chat/channels/{id} [get]
func (s *Server) GetChannel(c *fiber.Ctx) error {
	ch, err := s.chatService.GetChannel(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(ch)
}

// CreateChannel handles POST /api/chat/channels
// @Summary Create channel
// @Tags chat
// @Accept json
// @Produce json
// @Param request body object{name=string,description=string,icon=string,emoji=string,isAnnouncement=bool} true "Channel"
// @Success 201 {object} models.Channel
// @Failure 400 {object} models.ErrorResponse
// @Router /chat/channels [post]
func (s *Server) CreateChannel(c *fiber.Ctx) error {
	var req struct {
		Name           string  `json:"name"`
		Description    *string `json:"description"`
		Icon           string  `json:"icon"`
		Emoji          *string `json:"emoji"`
		IsAnnouncement bool    `json:"isAnnouncement"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.invalidBody(c)
	}

	ch, err := s.chatService.CreateChannel(c.UserContext(), service.CreateChannelInput{
		Name:           req.Name,
		Icon:           req.Icon,
		Description:    req.Description,
		Emoji:          req.Emoji,
		IsAnnouncement: req.IsAnnouncement,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(ch)
}

// GetMessages handles GET /api/chat/channels/:id/messages
// @Summary Channel history
// @Description Up to limit messages older than before, oldest first.
// @Tags chat
// @Produce json
// @Param id path string true "Channel ID"
// @Param limit query int false "Page size (default 50, max 200)"
// @Param before query string false "Only messages created before this timestamp"
// @Success 200 {array} models.Message
// @Failure 400 {object} models.ErrorResponse
// @Router /chat/channels/{id}/messages [get]
func (s *Server) GetMessages(c *fiber.Ctx) error {
	messages, err := s.chatService.FetchMessages(c.UserContext(), c.Params("id"), c.Query("limit"), c.Query("before"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(messages)
}

// JoinChannel handles POST /api/chat/channels/:id/join
// @Summary Join channel
// @Tags chat
// @Accept json
// @Produce json
// @Param id path string true "Channel ID"
// @Param request body membershipRequest true "Member"
// @Success 200 {object} object{success=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /chat/channels/{id}/join [post]
func (s *Server) JoinChannel(c *fiber.Ctx) error {
	var req membershipRequest
	if err := c.BodyParser(&req); err != nil {
		return s.invalidBody(c)
	}
	if err := s.chatService.JoinChannel(c.UserContext(), c.Params("id"), req.UserID); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// LeaveChannel handles POST /api/chat/channels/:id/leave
// @Summary Leave channel
// @Tags chat
// @Accept json
// @Produce json
// @Param id path string true "Channel ID"
// @Param request body membershipRequest true "Member"
// @Success 200 {object} object{success=bool}
// @Failure 400 {object} models.ErrorResponse
// @Router /chat/channels/{id}/leave [post]
func (s *Server) LeaveChannel(c *fiber.Ctx) error {
	var req membershipRequest
	if err := c.BodyParser(&req); err != nil {
		return s.invalidBody(c)
	}
	if err := s.chatService.LeaveChannel(c.UserContext(), c.Params("id"), req.UserID); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// ResolveChatUser handles POST /api/chat/users
// @Summary Device identity
// @Description Returns the user bound to deviceId, creating one on first use.
// @Tags chat
// @Accept json
// @Produce json
// @Param request body object{username=string,deviceId=string} true "Device identity"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /chat/users [post]
func (s *Server) ResolveChatUser(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username" form:"username"`
		DeviceID string `json:"deviceId" form:"deviceId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.invalidBody(c)
	}

	user, err := s.chatService.ResolveOrCreateUser(c.UserContext(), req.Username, req.DeviceID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(user)
}

// GetUserChannels handles GET /api/chat/users/:userId/channels
// @Summary Joined channels
// @Tags chat
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {array} models.Channel
// @Router /chat/users/{userId}/channels [get]
func (s *Server) GetUserChannels(c *fiber.Ctx) error {
	channels, err := s.chatService.UserChannels(c.UserContext(), c.Params("userId"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(channels)
}
