package service

import (
	"context"
	"log/slog"
	"strings"

	"handbook/internal/database"
	"handbook/internal/ids"
	"handbook/internal/middleware"
	"handbook/internal/models"
	"handbook/internal/repository"
)

const (
	maxUsernameLen = 50
	maxProfileLen  = 100
)

// UserService implements registration, login and profile management.
type UserService struct {
	userRepo repository.UserRepository
	auth     *AuthService
	avatars  *AvatarService
}

// RegisterInput is a registration request. Avatar holds the raw upload, if any.
type RegisterInput struct {
	Username        string
	Password        string
	Email           *string
	DeviceID        *string
	InstagramHandle *string
	HabeshaStatus   *string
	Avatar          []byte
}

// UpdateProfileInput replaces the editable profile fields. A nil Avatar keeps
// the current picture.
type UpdateProfileInput struct {
	UserID          string
	InstagramHandle *string
	HabeshaStatus   *string
	Avatar          []byte
}

// AuthResult is returned from register and login.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func NewUserService(userRepo repository.UserRepository, auth *AuthService, avatars *AvatarService) *UserService {
	return &UserService{userRepo: userRepo, auth: auth, avatars: avatars}
}

// Register creates an account. Once an avatar has been stored, any later
// failure deletes it again.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (result *AuthResult, err error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		return nil, models.NewValidationError("Username and password are required")
	}
	if err := checkLength("Username", in.Username, maxUsernameLen); err != nil {
		return nil, err
	}
	if err := checkProfileFields(in.InstagramHandle, in.HabeshaStatus); err != nil {
		return nil, err
	}

	var avatarURL *string
	if len(in.Avatar) > 0 {
		url, storeErr := s.avatars.Store(ctx, in.Avatar)
		if storeErr != nil {
			return nil, storeErr
		}
		avatarURL = &url
		defer func() {
			if err != nil {
				s.avatars.Delete(ctx, avatarURL)
			}
		}()
	}

	exists, err := s.userRepo.ExistsByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, models.NewInternalError("Registration failed", err)
	}
	if exists {
		return nil, models.NewConflictError("Username or email already exists")
	}

	hash, err := s.auth.HashPassword(in.Password)
	if err != nil {
		return nil, models.NewInternalError("Registration failed", err)
	}

	user := &models.User{
		ID:              ids.New(ids.PrefixUser),
		Username:        in.Username,
		Email:           in.Email,
		PasswordHash:    &hash,
		DeviceID:        in.DeviceID,
		AvatarURL:       avatarURL,
		InstagramHandle: in.InstagramHandle,
		HabeshaStatus:   in.HabeshaStatus,
	}
	if err = s.userRepo.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, models.NewConflictError("Username or email already exists")
		}
		return nil, models.NewInternalError("Registration failed", err)
	}

	token, err := s.auth.IssueToken(user.ID, user.Username)
	if err != nil {
		return nil, models.NewInternalError("Registration failed", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Login exchanges credentials for a token. Unknown users and wrong
// passwords are indistinguishable.
func (s *UserService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, models.NewValidationError("Username and password are required")
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewUnauthorizedError("Invalid credentials")
		}
		return nil, models.NewInternalError("Login failed", err)
	}
	if !s.auth.CheckPassword(user.PasswordHash, password) {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}

	token, err := s.auth.IssueToken(user.ID, user.Username)
	if err != nil {
		return nil, models.NewInternalError("Login failed", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Me loads the account behind a verified token.
func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	return user, wrapErr(err, "Failed to get user")
}

func (s *UserService) PublicProfile(ctx context.Context, userID string) (*models.PublicProfile, error) {
	profile, err := s.userRepo.GetPublicProfile(ctx, userID)
	return profile, wrapErr(err, "Failed to get user")
}

// UpdateProfile stores the new fields and, when a new avatar is uploaded,
// swaps it in and deletes the previous one.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	if err := checkProfileFields(in.InstagramHandle, in.HabeshaStatus); err != nil {
		return nil, err
	}

	current, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, wrapErr(err, "Failed to update profile")
	}

	update := repository.ProfileUpdate{
		InstagramHandle: in.InstagramHandle,
		HabeshaStatus:   in.HabeshaStatus,
	}
	if len(in.Avatar) > 0 {
		url, err := s.avatars.Store(ctx, in.Avatar)
		if err != nil {
			return nil, err
		}
		update.AvatarURL = &url
	}

	if err := s.userRepo.UpdateProfile(ctx, in.UserID, update); err != nil {
		s.avatars.Delete(ctx, update.AvatarURL)
		return nil, wrapErr(err, "Failed to update profile")
	}

	if update.AvatarURL != nil && current.AvatarURL != nil && *current.AvatarURL != *update.AvatarURL {
		if !s.avatars.Delete(ctx, current.AvatarURL) {
			middleware.Logger.WarnContext(ctx, "old avatar not deleted",
				slog.String("user_id", in.UserID),
				slog.String("avatar_url", *current.AvatarURL))
		}
	}

	user, err := s.userRepo.GetByID(ctx, in.UserID)
	return user, wrapErr(err, "Failed to update profile")
}

func checkProfileFields(instagram, habesha *string) error {
	if instagram != nil {
		if err := checkLength("Instagram handle", *instagram, maxProfileLen); err != nil {
			return err
		}
	}
	if habesha != nil {
		if err := checkLength("Habesha status", *habesha, maxProfileLen); err != nil {
			return err
		}
	}
	return nil
}
