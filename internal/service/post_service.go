package service

import (
	"context"
	"strings"

	"pinboard/internal/models"
	"pinboard/internal/repository"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
	maxTitleLen     = 200
)

type PostService struct {
	postRepo repository.PostRepository
}

type CreatePostInput struct {
	UserID      uint
	Title       string
	Description string
	Image       string
}

type UpdatePostInput struct {
	UserID      uint
	PostID      uint
	Title       string
	Description string
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

func NewPostService(postRepo repository.PostRepository) *PostService {
	return &PostService{postRepo: postRepo}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.Image == "" {
		return nil, models.NewValidationError("An image is required")
	}
	title := strings.TrimSpace(in.Title)
	if len(title) > maxTitleLen {
		return nil, models.NewValidationError("Title too long (max 200 characters)")
	}

	post := &models.Post{
		UserID:      in.UserID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Image:       in.Image,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

// ListPosts returns the feed, newest first. limit is clamped to (0, MaxPageSize].
func (s *PostService) ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.postRepo.List(ctx, limit, offset)
}

// ListAllPosts returns every post, newest first.
func (s *PostService) ListAllPosts(ctx context.Context) ([]*models.Post, error) {
	return s.postRepo.ListAll(ctx)
}

// GetOwnedPost returns the post only when userID owns it.
func (s *PostService) GetOwnedPost(ctx context.Context, userID, postID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, models.NewForbiddenError("You can only modify your own posts")
	}
	return post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.GetOwnedPost(ctx, in.UserID, in.PostID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		return nil, models.NewValidationError("A title is required")
	case len(title) > maxTitleLen:
		return nil, models.NewValidationError("Title too long (max 200 characters)")
	}
	post.Title = title
	post.Description = strings.TrimSpace(in.Description)

	if err := s.postRepo.UpdateDetails(ctx, post.ID, post.Title, post.Description); err != nil {
		return nil, err
	}
	return post, nil
}

// DeletePost removes an owned post and returns it so the caller can clean up its image.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) (*models.Post, error) {
	post, err := s.GetOwnedPost(ctx, in.UserID, in.PostID)
	if err != nil {
		return nil, err
	}
	if err := s.postRepo.Delete(ctx, in.PostID); err != nil {
		return nil, err
	}
	return post, nil
}
