package server

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"pinboard/internal/cache"
	"pinboard/internal/config"
	"pinboard/internal/database"
	"pinboard/internal/models"
	"pinboard/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "server-test-secret-with-at-least-32-chars"

type testEnv struct {
	srv       *Server
	app       *fiber.App
	db        *gorm.DB
	mr        *miniredis.Miniredis
	uploadDir string
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:            "0",
		Env:             "test",
		DBDriver:        "sqlite",
		DBPath:          ":memory:",
		JWTSecret:       testSecret,
		SessionTTLHours: 1,
		UploadDir:       t.TempDir(),
		UploadMaxSizeMB: 1,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	cfg := newTestConfig(t)
	db, err := database.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() { _ = cache.Close() })

	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)

	return &testEnv{srv: srv, app: srv.NewApp(), db: db, mr: mr, uploadDir: cfg.UploadDir}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName && c.Value != "" {
			return c
		}
	}
	return nil
}

func getRequest(path string, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func formRequest(path string, values url.Values, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func multipartRequest(t *testing.T, path, field, filename string, content []byte, fields map[string]string, cookie *http.Cookie) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if content != nil {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(2, 2, color.RGBA{B: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func registerForm(username string) url.Values {
	return url.Values{
		"username": {username},
		"email":    {username + "@example.com"},
		"contact":  {"5551234567"},
		"fullname": {strings.ToUpper(username[:1]) + username[1:]},
		"password": {"pw1"},
	}
}

// register creates username and returns its session cookie.
func (e *testEnv) register(t *testing.T, username string) *http.Cookie {
	t.Helper()
	resp := e.do(t, formRequest("/register", registerForm(username), nil))
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/profile", resp.Header.Get("Location"))
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	return cookie
}

func (e *testEnv) user(t *testing.T, username string) *models.User {
	t.Helper()
	var u models.User
	require.NoError(t, e.db.Where("username = ?", username).First(&u).Error)
	return &u
}

// createPost posts a PNG as username and returns the stored post.
func (e *testEnv) createPost(t *testing.T, cookie *http.Cookie, title string) *models.Post {
	t.Helper()
	resp := e.do(t, multipartRequest(t, "/createpost", "post-image", "cat.png", pngBytes(t),
		map[string]string{"title": title, "description": "desc of " + title}, cookie))
	require.Equal(t, http.StatusFound, resp.StatusCode)
	var p models.Post
	require.NoError(t, e.db.Where("title = ?", title).Order("id DESC").First(&p).Error)
	return &p
}

func (e *testEnv) uploadCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(e.uploadDir)
	require.NoError(t, err)
	return len(entries)
}
