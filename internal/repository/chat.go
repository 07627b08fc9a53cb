package repository

import (
	"context"
	"slices"
	"time"

	"handbook/internal/cache"
	"handbook/internal/database"
	"handbook/internal/featureflags"
	"handbook/internal/models"
)

const (
	channelColumns = "id, name, description, icon, emoji, is_announcement, member_count, created_at"
	messageColumns = "id, channel_id, user_id, username, content, message_type, created_at"
)

// ChatRepository defines the interface for chat data operations
type ChatRepository interface {
	ListChannels(ctx context.Context) ([]models.Channel, error)
	GetChannel(ctx context.Context, id string) (*models.Channel, error)
	CreateChannel(ctx context.Context, ch *models.Channel) error
	UserChannels(ctx context.Context, userID string) ([]models.Channel, error)
	JoinChannel(ctx context.Context, channelID, userID string) (joined bool, err error)
	LeaveChannel(ctx context.Context, channelID, userID string) (left bool, err error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	FetchMessages(ctx context.Context, channelID string, limit int, before *time.Time) ([]models.Message, error)
}

// chatRepository implements ChatRepository
type chatRepository struct {
	db    database.Store
	flags *featureflags.Manager
	uow   unitOfWork
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db database.Store, flags *featureflags.Manager) ChatRepository {
	return &chatRepository{db: db, flags: flags, uow: unitOfWork{store: db, flags: flags}}
}

// ListChannels orders announcement channels first, then by name.
func (r *chatRepository) ListChannels(ctx context.Context) ([]models.Channel, error) {
	var channels []models.Channel
	err := cache.Aside(ctx, cache.ChannelListKey, &channels, cache.ChannelListTTL, func() error {
		rows, err := r.db.All(ctx, "SELECT "+channelColumns+" FROM channels ORDER BY is_announcement DESC, name ASC")
		if err != nil {
			return err
		}
		channels = channelsFromRows(rows)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return channels, nil
}

func (r *chatRepository) GetChannel(ctx context.Context, id string) (*models.Channel, error) {
	row, found, err := r.db.Get(ctx, "SELECT "+channelColumns+" FROM channels WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.NewNotFoundError("Channel")
	}
	ch := channelFromRow(row)
	return &ch, nil
}

// CreateChannel inserts the channel with a zero member count and reloads it.
func (r *chatRepository) CreateChannel(ctx context.Context, ch *models.Channel) error {
	_, err := r.db.Run(ctx,
		`INSERT INTO channels (id, name, description, icon, emoji, is_announcement, member_count)
		 VALUES (?, ?, ?, ?, ?, ?, 0)`,
		ch.ID, ch.Name, ch.Description, ch.Icon, ch.Emoji, ch.IsAnnouncement,
	)
	if err != nil {
		return err
	}
	cache.InvalidateChannels(ctx)

	stored, err := r.GetChannel(ctx, ch.ID)
	if err != nil {
		return err
	}
	*ch = *stored
	return nil
}

func (r *chatRepository) UserChannels(ctx context.Context, userID string) ([]models.Channel, error) {
	rows, err := r.db.All(ctx,
		`SELECT c.id, c.name, c.description, c.icon, c.emoji, c.is_announcement, c.member_count, c.created_at
		 FROM channels c
		 INNER JOIN channel_members cm ON c.id = cm.channel_id
		 WHERE cm.user_id = ?
		 ORDER BY c.is_announcement DESC, c.name ASC`, userID)
	if err != nil {
		return nil, err
	}
	return channelsFromRows(rows), nil
}

// JoinChannel records the membership and bumps member_count, but only on a
// fresh join: repeating the call is a no-op.
func (r *chatRepository) JoinChannel(ctx context.Context, channelID, userID string) (bool, error) {
	var joined bool
	err := r.uow.run(ctx, channelID, func(tx database.Executor) error {
		if err := channelExists(ctx, tx, channelID); err != nil {
			return err
		}

		res, err := tx.Run(ctx,
			`INSERT INTO channel_members (channel_id, user_id) VALUES (?, ?)
			 ON CONFLICT (channel_id, user_id) DO NOTHING`,
			channelID, userID)
		if err != nil {
			return err
		}
		if res.Affected == 0 {
			return nil
		}

		if _, err := tx.Run(ctx, "UPDATE channels SET member_count = member_count + 1 WHERE id = ?", channelID); err != nil {
			return err
		}
		joined = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if joined {
		cache.InvalidateChannels(ctx)
	}
	return joined, nil
}

// LeaveChannel deletes the membership and decrements member_count. The
// decrement happens even when no membership existed unless strict leave is
// enabled for the channel.
func (r *chatRepository) LeaveChannel(ctx context.Context, channelID, userID string) (bool, error) {
	strict := r.flags.Enabled(featureflags.StrictChannelLeave, channelID)

	var left bool
	err := r.uow.run(ctx, channelID, func(tx database.Executor) error {
		if err := channelExists(ctx, tx, channelID); err != nil {
			return err
		}

		res, err := tx.Run(ctx, "DELETE FROM channel_members WHERE channel_id = ? AND user_id = ?", channelID, userID)
		if err != nil {
			return err
		}
		left = res.Affected > 0
		if strict && !left {
			return nil
		}

		_, err = tx.Run(ctx, "UPDATE channels SET member_count = member_count - 1 WHERE id = ?", channelID)
		return err
	})
	if err != nil {
		return false, err
	}
	cache.InvalidateChannels(ctx)
	return left, nil
}

// CreateMessage inserts the message stamped with the store's CURRENT_TIMESTAMP
// and reloads it.
func (r *chatRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.MessageType == "" {
		msg.MessageType = models.DefaultMessageType
	}
	_, err := r.db.Run(ctx,
		`INSERT INTO messages (id, channel_id, user_id, username, content, message_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		msg.ID, msg.ChannelID, msg.UserID, msg.Username, msg.Content, msg.MessageType,
	)
	if err != nil {
		return err
	}

	stored, err := r.GetMessage(ctx, msg.ID)
	if err != nil {
		return err
	}
	*msg = *stored
	return nil
}

func (r *chatRepository) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	row, found, err := r.db.Get(ctx, "SELECT "+messageColumns+" FROM messages WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.NewNotFoundError("Message")
	}
	msg := messageFromRow(row)
	return &msg, nil
}

// FetchMessages returns the limit most recent messages older than before
// (when set), oldest first. To page backwards pass the created_at of the
// oldest message already seen.
func (r *chatRepository) FetchMessages(ctx context.Context, channelID string, limit int, before *time.Time) ([]models.Message, error) {
	query := "SELECT " + messageColumns + " FROM messages WHERE channel_id = ?"
	args := []any{channelID}
	if before != nil {
		query += " AND created_at < ?"
		args = append(args, database.CeilTimeArg(r.db.Dialect(), *before))
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.All(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, messageFromRow(row))
	}
	slices.Reverse(messages)
	return messages, nil
}

func channelExists(ctx context.Context, exec database.Executor, id string) error {
	_, found, err := exec.Get(ctx, "SELECT id FROM channels WHERE id = ?", id)
	if err != nil {
		return err
	}
	if !found {
		return models.NewNotFoundError("Channel")
	}
	return nil
}

func channelsFromRows(rows []database.Row) []models.Channel {
	out := make([]models.Channel, 0, len(rows))
	for _, row := range rows {
		out = append(out, channelFromRow(row))
	}
	return out
}

func channelFromRow(row database.Row) models.Channel {
	return models.Channel{
		ID:             row.String("id"),
		Name:           row.String("name"),
		Description:    stringPtr(row.NullString("description")),
		Icon:           row.String("icon"),
		Emoji:          stringPtr(row.NullString("emoji")),
		IsAnnouncement: row.Bool("is_announcement"),
		MemberCount:    row.Int64("member_count"),
		CreatedAt:      row.Time("created_at"),
	}
}

func messageFromRow(row database.Row) models.Message {
	return models.Message{
		ID:          row.String("id"),
		ChannelID:   row.String("channel_id"),
		UserID:      row.String("user_id"),
		Username:    row.String("username"),
		Content:     row.String("content"),
		MessageType: row.String("message_type"),
		CreatedAt:   row.Time("created_at"),
	}
}
