package repository

import (
	"context"
	"errors"

	"pinboard/internal/models"
	"pinboard/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	ListAll(ctx context.Context) ([]*models.Post, error)
	UpdateDetails(ctx context.Context, id uint, title, description string) error
	Delete(ctx context.Context, id uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (post *models.Post, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "GetByID", "posts")
	defer func() { observability.EndSpan(span, err) }()

	post = &models.Post{}
	if err := r.db.WithContext(ctx).Preload("User").First(post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return post, nil
}

// List returns posts newest first with their owners.
func (r *postRepository) List(ctx context.Context, limit, offset int) (posts []*models.Post, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "List", "posts")
	defer func() { observability.EndSpan(span, err) }()

	if err := r.newestFirst(ctx).Limit(limit).Offset(offset).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// ListAll returns every post, newest first, with owners.
func (r *postRepository) ListAll(ctx context.Context) (posts []*models.Post, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "ListAll", "posts")
	defer func() { observability.EndSpan(span, err) }()

	if err := r.newestFirst(ctx).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) newestFirst(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("User").Order("created_at DESC").Order("id DESC")
}

// UpdateDetails changes title and description; owner and image are never written.
func (r *postRepository) UpdateDetails(ctx context.Context, id uint, title, description string) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).
		Updates(map[string]interface{}{"title": title, "description": description})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}
