package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"handbook/internal/database"
	"handbook/internal/ids"
	"handbook/internal/models"
	"handbook/internal/repository"
	"handbook/internal/validation"
)

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 200
	maxMessageLen       = 5000
	maxChannelNameLen   = 100
	usernameAttempts    = 10
)

// ChatService provides channel, membership and message business logic.
type ChatService struct {
	chatRepo repository.ChatRepository
	userRepo repository.UserRepository
	// randomSuffix picks the numeric part of a generated username.
	randomSuffix func() int
}

// CreateChannelInput is the input for creating a channel.
type CreateChannelInput struct {
	Name           string
	Icon           string
	Description    *string
	Emoji          *string
	IsAnnouncement bool
}

// SendMessageInput is the input for sending a message.
type SendMessageInput struct {
	ChannelID   string `json:"channelId"`
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	Content     string `json:"content"`
	MessageType string `json:"messageType"`
}

// NewChatService returns a new ChatService.
func NewChatService(chatRepo repository.ChatRepository, userRepo repository.UserRepository) *ChatService {
	return &ChatService{
		chatRepo:     chatRepo,
		userRepo:     userRepo,
		randomSuffix: func() int { return rand.IntN(10000) },
	}
}

func (s *ChatService) ListChannels(ctx context.Context) ([]models.Channel, error) {
	channels, err := s.chatRepo.ListChannels(ctx)
	if err != nil {
		return nil, models.NewInternalError("Failed to fetch channels", err)
	}
	return channels, nil
}

func (s *ChatService) GetChannel(ctx context.Context, id string) (*models.Channel, error) {
	ch, err := s.chatRepo.GetChannel(ctx, id)
	return ch, wrapErr(err, "Failed to fetch channel")
}

func (s *ChatService) CreateChannel(ctx context.Context, in CreateChannelInput) (*models.Channel, error) {
	if validation.AnyBlank(in.Name, in.Icon) {
		return nil, models.NewValidationError("Name and icon are required")
	}
	if err := checkLength("Name", in.Name, maxChannelNameLen); err != nil {
		return nil, err
	}

	ch := &models.Channel{
		ID:             ids.New(ids.PrefixChannel),
		Name:           strings.TrimSpace(in.Name),
		Description:    in.Description,
		Icon:           strings.TrimSpace(in.Icon),
		Emoji:          in.Emoji,
		IsAnnouncement: in.IsAnnouncement,
	}
	if err := s.chatRepo.CreateChannel(ctx, ch); err != nil {
		return nil, models.NewInternalError("Failed to create channel", err)
	}
	return ch, nil
}

// FetchMessages pages through a channel's history. rawLimit and rawBefore
// come straight from the query string.
func (s *ChatService) FetchMessages(ctx context.Context, channelID, rawLimit, rawBefore string) ([]models.Message, error) {
	limit, err := validation.ParseLimit(rawLimit, DefaultMessageLimit, MaxMessageLimit)
	if err != nil {
		return nil, models.NewValidationError("Invalid limit")
	}
	before, err := validation.ParseOptionalTimestamp(rawBefore)
	if err != nil {
		return nil, models.NewValidationError("Invalid before timestamp")
	}

	messages, err := s.chatRepo.FetchMessages(ctx, channelID, limit, before)
	if err != nil {
		return nil, models.NewInternalError("Failed to fetch messages", err)
	}
	return messages, nil
}

func (s *ChatService) JoinChannel(ctx context.Context, channelID, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return models.NewValidationError("userId is required")
	}
	_, err := s.chatRepo.JoinChannel(ctx, channelID, userID)
	return wrapErr(err, "Failed to join channel")
}

func (s *ChatService) LeaveChannel(ctx context.Context, channelID, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return models.NewValidationError("userId is required")
	}
	_, err := s.chatRepo.LeaveChannel(ctx, channelID, userID)
	return wrapErr(err, "Failed to leave channel")
}

func (s *ChatService) UserChannels(ctx context.Context, userID string) ([]models.Channel, error) {
	channels, err := s.chatRepo.UserChannels(ctx, userID)
	if err != nil {
		return nil, models.NewInternalError("Failed to fetch user channels", err)
	}
	return channels, nil
}

// ResolveOrCreateUser returns the user bound to deviceID, creating one on
// first sight. When the requested username is taken a random UserNNNN name
// is tried instead; after usernameAttempts the last candidate is used as is.
func (s *ChatService) ResolveOrCreateUser(ctx context.Context, username, deviceID string) (*models.User, error) {
	username = strings.TrimSpace(username)
	deviceID = strings.TrimSpace(deviceID)
	if username == "" || deviceID == "" {
		return nil, models.NewValidationError("Username and deviceId are required")
	}

	existing, err := s.userRepo.GetByDeviceID(ctx, deviceID)
	if err == nil {
		return existing, nil
	}
	if !models.IsCode(err, models.CodeNotFound) {
		return nil, models.NewInternalError("Failed to create user", err)
	}

	candidate := username
	taken, err := s.userRepo.UsernameExists(ctx, candidate)
	if err != nil {
		return nil, models.NewInternalError("Failed to create user", err)
	}
	for attempt := 0; taken && attempt < usernameAttempts; attempt++ {
		candidate = fmt.Sprintf("User%d", s.randomSuffix())
		if taken, err = s.userRepo.UsernameExists(ctx, candidate); err != nil {
			return nil, models.NewInternalError("Failed to create user", err)
		}
	}

	user := &models.User{
		ID:       ids.New(ids.PrefixChatUser),
		Username: candidate,
		DeviceID: &deviceID,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			// Another request may have registered the same device meanwhile.
			if existing, getErr := s.userRepo.GetByDeviceID(ctx, deviceID); getErr == nil {
				return existing, nil
			}
		}
		return nil, models.NewInternalError("Failed to create user", err)
	}
	return user, nil
}

// SendMessage persists a message and returns the stored row.
func (s *ChatService) SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	if validation.AnyBlank(in.ChannelID, in.UserID, in.Username, in.Content) {
		return nil, models.NewValidationError("channelId, userId, username and content are required")
	}
	if err := checkLength("Message", in.Content, maxMessageLen); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:          ids.New(ids.PrefixMessage),
		ChannelID:   in.ChannelID,
		UserID:      in.UserID,
		Username:    in.Username,
		Content:     in.Content,
		MessageType: in.MessageType,
	}
	if err := s.chatRepo.CreateMessage(ctx, msg); err != nil {
		return nil, models.NewInternalError("Failed to send message", err)
	}
	return msg, nil
}
