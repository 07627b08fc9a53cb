package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"handbook/internal/database"
	"handbook/internal/ids"
	"handbook/internal/middleware"
	"handbook/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DemoPassword is the password of every generated demo account.
const DemoPassword = "password123"

var habeshaStatuses = []string{
	"Ethiopian", "Eritrean", "Ethiopian-American", "Eritrean-Canadian", "Habesha in the UK", "Visiting home",
}

// BuildUser constructs a demo user without persisting it.
func (s *Seeder) BuildUser(n int, passwordHash string) models.User {
	username := fmt.Sprintf("%s_%d", gofakeit.Username(), n)
	email := fmt.Sprintf("%s@example.com", username)
	instagram := "@" + username
	status := habeshaStatuses[s.rnd.Intn(len(habeshaStatuses))]
	return models.User{
		ID:              ids.New(ids.PrefixUser),
		Username:        username,
		Email:           &email,
		PasswordHash:    &passwordHash,
		InstagramHandle: &instagram,
		HabeshaStatus:   &status,
	}
}

// BuildPost constructs a demo post by author, backdated up to 30 days.
func (s *Seeder) BuildPost(author models.User) models.Post {
	content := gofakeit.Paragraph(1, 2, 12, " ")
	post := models.Post{
		ID:        ids.New(ids.PrefixPost),
		UserID:    author.ID,
		Content:   &content,
		CreatedAt: time.Now().UTC().Add(-time.Duration(s.rnd.Intn(30*24*60)) * time.Minute).Truncate(time.Second),
	}
	if s.rnd.Intn(3) == 0 {
		image := fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID())
		post.ImageURL = &image
	}
	return post
}

// Demo generates users, posts, likes, memberships and chatter.
func (s *Seeder) Demo(ctx context.Context, channels []models.Channel, numUsers, numPosts int) error {
	gofakeit.Seed(s.rnd.Int63())

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if numUsers <= 0 {
		return nil
	}

	users := make([]models.User, 0, numUsers)
	for i := 0; i < numUsers; i++ {
		users = append(users, s.BuildUser(i, string(hash)))
	}

	posts := make([]models.Post, 0, numPosts)
	for i := 0; i < numPosts; i++ {
		posts = append(posts, s.BuildPost(users[s.rnd.Intn(len(users))]))
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("created_at").CreateInBatches(&users, 100).Error; err != nil {
			return err
		}
		for _, p := range posts {
			row := map[string]any{
				"id":         p.ID,
				"user_id":    p.UserID,
				"content":    p.Content,
				"image_url":  p.ImageURL,
				"created_at": database.TimeArg(s.dialect, p.CreatedAt),
			}
			if err := tx.Model(&models.Post{}).Create(row).Error; err != nil {
				return err
			}
		}
		if err := s.likePosts(tx, users, posts); err != nil {
			return err
		}
		return s.joinChannels(tx, users, channels)
	})
	if err != nil {
		return err
	}

	middleware.Logger.InfoContext(ctx, "Demo data seeded",
		slog.Int("users", len(users)),
		slog.Int("posts", len(posts)))
	return nil
}

// likePosts has each user like a random handful of posts and keeps
// likes_count in step.
func (s *Seeder) likePosts(tx *gorm.DB, users []models.User, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	for _, u := range users {
		for _, idx := range s.rnd.Perm(len(posts))[:s.rnd.Intn(min(5, len(posts))+1)] {
			like := models.PostLike{PostID: posts[idx].ID, UserID: u.ID}
			res := tx.Omit("created_at").Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			if err := tx.Model(&models.Post{}).Where("id = ?", posts[idx].ID).
				UpdateColumn("likes_count", gorm.Expr("likes_count + 1")).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// joinChannels adds each user to a few non-announcement channels and posts
// a greeting in the first one.
func (s *Seeder) joinChannels(tx *gorm.DB, users []models.User, channels []models.Channel) error {
	open := make([]models.Channel, 0, len(channels))
	for _, ch := range channels {
		if !ch.IsAnnouncement {
			open = append(open, ch)
		}
	}
	if len(open) == 0 {
		return nil
	}

	for _, u := range users {
		picks := s.rnd.Perm(len(open))[:s.rnd.Intn(min(3, len(open)))+1]
		for _, idx := range picks {
			member := models.ChannelMember{ChannelID: open[idx].ID, UserID: u.ID}
			res := tx.Omit("joined_at").Clauses(clause.OnConflict{DoNothing: true}).Create(&member)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			if err := tx.Model(&models.Channel{}).Where("id = ?", open[idx].ID).
				UpdateColumn("member_count", gorm.Expr("member_count + 1")).Error; err != nil {
				return err
			}
		}

		greeting := models.Message{
			ID:          ids.New(ids.PrefixMessage),
			ChannelID:   open[picks[0]].ID,
			UserID:      u.ID,
			Username:    u.Username,
			Content:     gofakeit.Sentence(8),
			MessageType: models.DefaultMessageType,
		}
		if err := tx.Omit("created_at").Create(&greeting).Error; err != nil {
			return err
		}
	}
	return nil
}
