package service

import (
	"context"
	"strings"

	"handbook/internal/ids"
	"handbook/internal/models"
	"handbook/internal/repository"
)

const maxPostContentLen = 5000

// FeedService manages posts and likes.
type FeedService struct {
	postRepo repository.PostRepository
}

type CreatePostInput struct {
	UserID   string
	Content  *string
	ImageURL *string
}

func NewFeedService(postRepo repository.PostRepository) *FeedService {
	return &FeedService{postRepo: postRepo}
}

// ListFeed returns the newest posts; is_liked is relative to viewerID,
// which may be empty for anonymous viewers.
func (s *FeedService) ListFeed(ctx context.Context, viewerID string) ([]models.FeedPost, error) {
	posts, err := s.postRepo.ListFeed(ctx, viewerID, repository.FeedLimit)
	if err != nil {
		return nil, models.NewInternalError("Failed to fetch feed", err)
	}
	return posts, nil
}

func (s *FeedService) CreatePost(ctx context.Context, in CreatePostInput) (*models.FeedPost, error) {
	content := trimmedOrNil(in.Content)
	imageURL := trimmedOrNil(in.ImageURL)
	if content == nil && imageURL == nil {
		return nil, models.NewValidationError("Post must have content or image")
	}
	if content != nil {
		if err := checkLength("Content", *content, maxPostContentLen); err != nil {
			return nil, err
		}
	}

	post := &models.Post{
		ID:       ids.New(ids.PrefixPost),
		UserID:   in.UserID,
		Content:  content,
		ImageURL: imageURL,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, models.NewInternalError("Failed to create post", err)
	}

	created, err := s.postRepo.GetFeedPost(ctx, post.ID, in.UserID)
	if err != nil {
		return nil, wrapErr(err, "Failed to create post")
	}
	created.IsLiked = false
	return created, nil
}

// ToggleLike flips the requester's like and reports the new state.
func (s *FeedService) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	liked, err := s.postRepo.ToggleLike(ctx, postID, userID)
	return liked, wrapErr(err, "Failed to toggle like")
}

// DeletePost removes a post owned by requesterID.
func (s *FeedService) DeletePost(ctx context.Context, postID, requesterID string) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return wrapErr(err, "Failed to delete post")
	}
	if post.UserID != requesterID {
		return models.NewForbiddenError("Not authorized to delete this post")
	}
	return wrapErr(s.postRepo.Delete(ctx, postID), "Failed to delete post")
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
