package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"pinboard/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	post := &models.Post{Title: "Test Post", Image: "a.png", UserID: 1}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := repo.Create(ctx, post)
	assert.NoError(t, err)
	assert.Equal(t, uint(1), post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_Create_Error(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Post{Title: "t", Image: "a.png", UserID: 1})
	assert.True(t, models.HasCode(err, models.CodeInternal))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_SQLite(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	p1 := &models.Post{Title: "Sunset", Description: "orange", Image: "sunset.png", UserID: alice.ID}
	p2 := &models.Post{Title: "Cat", Description: "fluffy", Image: "cat.png", UserID: bob.ID}
	require.NoError(t, repo.Create(ctx, p1))
	require.NoError(t, repo.Create(ctx, p2))

	t.Run("GetByID Preloads Owner", func(t *testing.T) {
		got, err := repo.GetByID(ctx, p1.ID)
		require.NoError(t, err)
		assert.Equal(t, "Sunset", got.Title)
		assert.Equal(t, "alice", got.User.Username)
	})

	t.Run("GetByID Missing", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 999)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})

	t.Run("List Newest First", func(t *testing.T) {
		posts, err := repo.List(ctx, 50, 0)
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, p2.ID, posts[0].ID)
		assert.Equal(t, "bob", posts[0].User.Username)

		page, err := repo.List(ctx, 1, 1)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, p1.ID, page[0].ID)
	})

	t.Run("ListAll Is Unbounded", func(t *testing.T) {
		for i := 0; i < 60; i++ {
			require.NoError(t, repo.Create(ctx, &models.Post{UserID: alice.ID, Title: "bulk", Image: "bulk.png"}))
		}
		posts, err := repo.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, posts, 62)
		assert.Equal(t, "alice", posts[0].User.Username)
		require.NoError(t, db.Where("title = ?", "bulk").Delete(&models.Post{}).Error)
	})

	t.Run("UpdateDetails Leaves Owner And Image", func(t *testing.T) {
		require.NoError(t, repo.UpdateDetails(ctx, p1.ID, "Dusk", "purple"))
		got, err := repo.GetByID(ctx, p1.ID)
		require.NoError(t, err)
		assert.Equal(t, "Dusk", got.Title)
		assert.Equal(t, "purple", got.Description)
		assert.Equal(t, "sunset.png", got.Image)
		assert.Equal(t, alice.ID, got.UserID)

		err = repo.UpdateDetails(ctx, 999, "x", "y")
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})

	t.Run("Delete Hides Post", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, p2.ID))
		_, err := repo.GetByID(ctx, p2.ID)
		assert.True(t, models.HasCode(err, models.CodeNotFound))

		posts, err := repo.List(ctx, 50, 0)
		require.NoError(t, err)
		assert.Len(t, posts, 1)

		err = repo.Delete(ctx, p2.ID)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})
}
