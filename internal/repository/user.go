package repository

import (
	"context"

	"handbook/internal/cache"
	"handbook/internal/database"
	"handbook/internal/models"
)

const userColumns = "id, username, email, password_hash, device_id, avatar_url, instagram_handle, habesha_status, created_at"

// ProfileUpdate carries the editable profile fields. A nil AvatarURL keeps
// the stored avatar.
type ProfileUpdate struct {
	InstagramHandle *string
	HabeshaStatus   *string
	AvatarURL       *string
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByDeviceID(ctx context.Context, deviceID string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	ExistsByUsernameOrEmail(ctx context.Context, username string, email *string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) error
	GetPublicProfile(ctx context.Context, id string) (*models.PublicProfile, error)
}

type userRepository struct {
	db database.Store
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db database.Store) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
}

func (r *userRepository) GetByDeviceID(ctx context.Context, deviceID string) (*models.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE device_id = ?", deviceID)
}

func (r *userRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	row, found, err := r.db.Get(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.NewNotFoundError("User")
	}
	return userFromRow(row), nil
}

func (r *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, found, err := r.db.Get(ctx, "SELECT id FROM users WHERE username = ?", username)
	return found, err
}

// ExistsByUsernameOrEmail matches the username, or the email when one is given.
func (r *userRepository) ExistsByUsernameOrEmail(ctx context.Context, username string, email *string) (bool, error) {
	if email == nil || *email == "" {
		return r.UsernameExists(ctx, username)
	}
	_, found, err := r.db.Get(ctx, "SELECT id FROM users WHERE username = ? OR email = ?", username, *email)
	return found, err
}

// Create inserts the user and reloads it so CreatedAt reflects the stored default.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	_, err := r.db.Run(ctx,
		`INSERT INTO users (id, username, email, password_hash, device_id, avatar_url, instagram_handle, habesha_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.DeviceID,
		user.AvatarURL, user.InstagramHandle, user.HabeshaStatus,
	)
	if err != nil {
		return err
	}

	stored, err := r.GetByID(ctx, user.ID)
	if err != nil {
		return err
	}
	*user = *stored
	return nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) error {
	query := "UPDATE users SET instagram_handle = ?, habesha_status = ?"
	args := []any{update.InstagramHandle, update.HabeshaStatus}
	if update.AvatarURL != nil {
		query += ", avatar_url = ?"
		args = append(args, *update.AvatarURL)
	}
	query += " WHERE id = ?"
	args = append(args, id)

	res, err := r.db.Run(ctx, query, args...)
	if err != nil {
		return err
	}
	cache.InvalidateProfile(ctx, id)
	if res.Affected == 0 {
		return models.NewNotFoundError("User")
	}
	return nil
}

// GetPublicProfile returns the user's public fields with their post count.
func (r *userRepository) GetPublicProfile(ctx context.Context, id string) (*models.PublicProfile, error) {
	var profile models.PublicProfile
	err := cache.Aside(ctx, cache.ProfileKey(id), &profile, cache.ProfileTTL, func() error {
		row, found, err := r.db.Get(ctx,
			`SELECT u.id, u.username, u.avatar_url, u.instagram_handle, u.habesha_status, u.created_at,
			        (SELECT COUNT(*) FROM posts p WHERE p.user_id = u.id) AS post_count
			 FROM users u WHERE u.id = ?`, id)
		if err != nil {
			return err
		}
		if !found {
			return models.NewNotFoundError("User")
		}
		profile = models.PublicProfile{
			ID:              row.String("id"),
			Username:        row.String("username"),
			AvatarURL:       stringPtr(row.NullString("avatar_url")),
			InstagramHandle: stringPtr(row.NullString("instagram_handle")),
			HabeshaStatus:   stringPtr(row.NullString("habesha_status")),
			CreatedAt:       row.Time("created_at"),
			PostCount:       row.Int64("post_count"),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func userFromRow(row database.Row) *models.User {
	return &models.User{
		ID:              row.String("id"),
		Username:        row.String("username"),
		Email:           stringPtr(row.NullString("email")),
		PasswordHash:    stringPtr(row.NullString("password_hash")),
		DeviceID:        stringPtr(row.NullString("device_id")),
		AvatarURL:       stringPtr(row.NullString("avatar_url")),
		InstagramHandle: stringPtr(row.NullString("instagram_handle")),
		HabeshaStatus:   stringPtr(row.NullString("habesha_status")),
		CreatedAt:       row.Time("created_at"),
	}
}
