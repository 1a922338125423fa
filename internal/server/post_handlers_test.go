package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pinboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreatePost_AppearsInOwnersPosts(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice")
	alice := env.user(t, "alice")

	resp := env.do(t, multipartRequest(t, "/createpost", "post-image", "cat.png", pngBytes(t),
		map[string]string{"title": "Cat", "description": "a cat"}, cookie))
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/profile", resp.Header.Get("Location"))

	var post models.Post
	require.NoError(t, env.db.Where("title = ?", "Cat").First(&post).Error)
	assert.Equal(t, alice.ID, post.UserID)
	assert.Equal(t, "a cat", post.Description)
	assert.Equal(t, ".png", filepath.Ext(post.Image))
	assert.FileExists(t, filepath.Join(env.uploadDir, post.Image))

	profile, err := env.srv.userRepo.GetByIDWithPosts(t.Context(), alice.ID)
	require.NoError(t, err)
	require.Len(t, profile.Posts, 1)
	assert.Equal(t, post.ID, profile.Posts[0].ID)

	resp = env.do(t, getRequest("/profile", cookie))
	assert.Contains(t, body(t, resp), "Cat")
}

func TestCreatePost_RejectsNonImage(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice")

	resp := env.do(t, multipartRequest(t, "/createpost", "post-image", "cat.png", []byte("plain text pretending"),
		map[string]string{"title": "Cat"}, cookie))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body(t, resp), "Cat")

	var count int64
	require.NoError(t, env.db.Model(&models.Post{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Zero(t, env.uploadCount(t))
}

func TestCreatePost_MissingFile(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice")

	resp := env.do(t, multipartRequest(t, "/createpost", "post-image", "", nil,
		map[string]string{"title": "Cat"}, cookie))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body(t, resp), "An image is required")
}

func TestCreatePost_FailedInsertRemovesUpload(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice")

	require.NoError(t, env.db.Callback().Create().Before("gorm:create").Register("test:fail_posts", func(tx *gorm.DB) {
		if tx.Statement.Table == "posts" {
			_ = tx.AddError(errors.New("disk full"))
		}
	}))

	resp := env.do(t, multipartRequest(t, "/createpost", "post-image", "cat.png", pngBytes(t),
		map[string]string{"title": "Cat"}, cookie))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	page := body(t, resp)
	assert.NotContains(t, page, "disk full")
	assert.Zero(t, env.uploadCount(t))
}

func TestShowPost(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice")
	post := env.createPost(t, cookie, "Cat")

	resp := env.do(t, getRequest(fmt.Sprintf("/show/post/%d", post.ID), cookie))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	page := body(t, resp)
	assert.Contains(t, page, "Cat")
	assert.Contains(t, page, "/images/uploads/"+post.Image)

	resp = env.do(t, getRequest("/show/post/9999", cookie))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, getRequest("/show/post/abc", cookie))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestShowPostsAndFeed(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	env.createPost(t, alice, "Cat")
	env.createPost(t, bob, "Dog")

	resp := env.do(t, getRequest("/show/posts", alice))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	page := body(t, resp)
	assert.Contains(t, page, "Cat")
	assert.Contains(t, page, "Dog")

	resp = env.do(t, getRequest("/feed?limit=1", alice))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	page = body(t, resp)
	assert.Contains(t, page, "Dog")
	assert.NotContains(t, page, ">Cat<")

	resp = env.do(t, getRequest("/add", alice))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestShowPosts_ListsEveryPost(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice")
	alice := env.user(t, "alice")

	posts := make([]models.Post, 60)
	for i := range posts {
		posts[i] = models.Post{UserID: alice.ID, Title: fmt.Sprintf("Post %d", i), Image: "x.png"}
	}
	require.NoError(t, env.db.Create(&posts).Error)

	resp := env.do(t, getRequest("/show/posts", cookie))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := body(t, resp)
	idx := strings.Index(page, "Everyone")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, 60, strings.Count(page[idx:], "/show/post/"))
}

func TestChangePostDetail_Owner(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice")
	post := env.createPost(t, cookie, "Cat")

	resp := env.do(t, getRequest(fmt.Sprintf("/editpost/%d", post.ID), cookie))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req := formRequest(fmt.Sprintf("/changepostdetail/%d", post.ID),
		url.Values{"title": {"Kitten"}, "description": {"smaller cat"}}, cookie)
	req.Header.Set("Referer", "/show/posts")
	resp = env.do(t, req)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/show/posts", resp.Header.Get("Location"))

	var updated models.Post
	require.NoError(t, env.db.First(&updated, post.ID).Error)
	assert.Equal(t, "Kitten", updated.Title)
	assert.Equal(t, "smaller cat", updated.Description)
	assert.Equal(t, post.UserID, updated.UserID)
	assert.Equal(t, post.Image, updated.Image)
}

func TestChangePostDetail_NoReferer(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice")
	post := env.createPost(t, cookie, "Cat")

	resp := env.do(t, formRequest(fmt.Sprintf("/changepostdetail/%d", post.ID), url.Values{"title": {"Kitten"}}, cookie))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/profile", resp.Header.Get("Location"))

	var updated models.Post
	require.NoError(t, env.db.First(&updated, post.ID).Error)
	assert.Equal(t, "Kitten", updated.Title)
	assert.Empty(t, updated.Description)
}

func TestChangePostDetail_EmptyTitleRejected(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice")
	post := env.createPost(t, cookie, "Cat")

	resp := env.do(t, formRequest(fmt.Sprintf("/changepostdetail/%d", post.ID),
		url.Values{"title": {""}, "description": {"new"}}, cookie))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body(t, resp), "A title is required")

	var unchanged models.Post
	require.NoError(t, env.db.First(&unchanged, post.ID).Error)
	assert.Equal(t, "Cat", unchanged.Title)
	assert.Equal(t, "desc of Cat", unchanged.Description)
}

func TestChangePostDetail_IgnoresForeignReferer(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice")
	post := env.createPost(t, cookie, "Cat")

	for _, ref := range []string{"https://evil.example/phish", "//evil.example/x", "javascript:alert(1)"} {
		req := formRequest(fmt.Sprintf("/changepostdetail/%d", post.ID), url.Values{"title": {"Kitten"}}, cookie)
		req.Header.Set("Referer", ref)
		resp := env.do(t, req)
		assert.Equal(t, http.StatusFound, resp.StatusCode, ref)
		assert.Equal(t, "/profile", resp.Header.Get("Location"), ref)
	}
}

func TestNonOwnerCannotModifyPost(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	post := env.createPost(t, alice, "Cat")

	resp := env.do(t, getRequest(fmt.Sprintf("/editpost/%d", post.ID), bob))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp = env.do(t, formRequest(fmt.Sprintf("/changepostdetail/%d", post.ID),
		url.Values{"title": {"Mine now"}}, bob))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp = env.do(t, getRequest(fmt.Sprintf("/delete/%d", post.ID), bob))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	var unchanged models.Post
	require.NoError(t, env.db.First(&unchanged, post.ID).Error)
	assert.Equal(t, "Cat", unchanged.Title)
	assert.FileExists(t, filepath.Join(env.uploadDir, post.Image))
}

func TestDeletePost(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice")
	post := env.createPost(t, cookie, "Cat")

	resp := env.do(t, getRequest(fmt.Sprintf("/delete/%d", post.ID), cookie))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/show/posts", resp.Header.Get("Location"))

	_, err := env.srv.postRepo.GetByID(t.Context(), post.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	_, statErr := os.Stat(filepath.Join(env.uploadDir, post.Image))
	assert.True(t, os.IsNotExist(statErr))

	profile, err := env.srv.userRepo.GetByIDWithPosts(t.Context(), post.UserID)
	require.NoError(t, err)
	assert.Empty(t, profile.Posts)

	resp = env.do(t, getRequest(fmt.Sprintf("/show/post/%d", post.ID), cookie))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, getRequest(fmt.Sprintf("/delete/%d", post.ID), cookie))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
