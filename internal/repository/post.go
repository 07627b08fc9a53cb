package repository

import (
	"context"

	"handbook/internal/cache"
	"handbook/internal/database"
	"handbook/internal/featureflags"
	"handbook/internal/models"
)

// FeedLimit is the number of posts returned by the feed.
const FeedLimit = 50

const feedSelect = `SELECT p.id, p.content, p.image_url, p.created_at, p.likes_count,
       u.id AS user_id, u.username, u.avatar_url,
       CASE WHEN pl.user_id IS NOT NULL THEN 1 ELSE 0 END AS is_liked
FROM posts p
JOIN users u ON p.user_id = u.id
LEFT JOIN post_likes pl ON p.id = pl.post_id AND pl.user_id = ?`

// PostRepository defines persistence operations for feed posts and likes.
type PostRepository interface {
	ListFeed(ctx context.Context, viewerID string, limit int) ([]models.FeedPost, error)
	GetFeedPost(ctx context.Context, id, viewerID string) (*models.FeedPost, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	Create(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, postID, userID string) (liked bool, err error)
}

type postRepository struct {
	db  database.Store
	uow unitOfWork
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db database.Store, flags *featureflags.Manager) PostRepository {
	return &postRepository{db: db, uow: unitOfWork{store: db, flags: flags}}
}

// ListFeed returns the newest posts with their authors. is_liked is relative
// to viewerID; an empty viewer sees every post as not liked.
func (r *postRepository) ListFeed(ctx context.Context, viewerID string, limit int) ([]models.FeedPost, error) {
	if limit <= 0 || limit > FeedLimit {
		limit = FeedLimit
	}
	rows, err := r.db.All(ctx, feedSelect+" ORDER BY p.created_at DESC, p.id DESC LIMIT ?", nullIfEmpty(viewerID), limit)
	if err != nil {
		return nil, err
	}

	posts := make([]models.FeedPost, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, feedPostFromRow(row))
	}
	return posts, nil
}

func (r *postRepository) GetFeedPost(ctx context.Context, id, viewerID string) (*models.FeedPost, error) {
	row, found, err := r.db.Get(ctx, feedSelect+" WHERE p.id = ?", nullIfEmpty(viewerID), id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.NewNotFoundError("Post")
	}
	post := feedPostFromRow(row)
	return &post, nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	row, found, err := r.db.Get(ctx, "SELECT id, user_id, content, image_url, likes_count, created_at FROM posts WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.NewNotFoundError("Post")
	}
	return &models.Post{
		ID:         row.String("id"),
		UserID:     row.String("user_id"),
		Content:    stringPtr(row.NullString("content")),
		ImageURL:   stringPtr(row.NullString("image_url")),
		LikesCount: row.Int64("likes_count"),
		CreatedAt:  row.Time("created_at"),
	}, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	_, err := r.db.Run(ctx,
		"INSERT INTO posts (id, user_id, content, image_url) VALUES (?, ?, ?, ?)",
		post.ID, post.UserID, post.Content, post.ImageURL,
	)
	if err != nil {
		return err
	}
	cache.InvalidateProfile(ctx, post.UserID)
	return nil
}

// Delete removes the post; its likes cascade.
func (r *postRepository) Delete(ctx context.Context, id string) error {
	post, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := r.db.Run(ctx, "DELETE FROM posts WHERE id = ?", id); err != nil {
		return err
	}
	cache.InvalidateProfile(ctx, post.UserID)
	return nil
}

// ToggleLike removes the user's like if present, otherwise adds one, and
// moves likes_count in the same direction. The counter never drops below zero.
func (r *postRepository) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	var liked bool
	err := r.uow.run(ctx, postID, func(tx database.Executor) error {
		if _, found, err := tx.Get(ctx, "SELECT id FROM posts WHERE id = ?", postID); err != nil {
			return err
		} else if !found {
			return models.NewNotFoundError("Post")
		}

		_, exists, err := tx.Get(ctx, "SELECT id FROM post_likes WHERE post_id = ? AND user_id = ?", postID, userID)
		if err != nil {
			return err
		}

		if exists {
			if _, err := tx.Run(ctx, "DELETE FROM post_likes WHERE post_id = ? AND user_id = ?", postID, userID); err != nil {
				return err
			}
			if _, err := tx.Run(ctx,
				"UPDATE posts SET likes_count = CASE WHEN likes_count > 0 THEN likes_count - 1 ELSE 0 END WHERE id = ?",
				postID); err != nil {
				return err
			}
			liked = false
			return nil
		}

		if _, err := tx.Run(ctx, "INSERT INTO post_likes (post_id, user_id) VALUES (?, ?)", postID, userID); err != nil {
			return err
		}
		if _, err := tx.Run(ctx, "UPDATE posts SET likes_count = likes_count + 1 WHERE id = ?", postID); err != nil {
			return err
		}
		liked = true
		return nil
	})
	return liked, err
}

func feedPostFromRow(row database.Row) models.FeedPost {
	return models.FeedPost{
		ID:         row.String("id"),
		Content:    stringPtr(row.NullString("content")),
		ImageURL:   stringPtr(row.NullString("image_url")),
		CreatedAt:  row.Time("created_at"),
		LikesCount: row.Int64("likes_count"),
		UserID:     row.String("user_id"),
		Username:   row.String("username"),
		AvatarURL:  stringPtr(row.NullString("avatar_url")),
		IsLiked:    row.Bool("is_liked"),
	}
}
