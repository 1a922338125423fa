// Package seed fills a development database with demo users and posts.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"regexp"
	"strings"

	"pinboard/internal/middleware"
	"pinboard/internal/models"
	"pinboard/internal/repository"
	"pinboard/internal/storage"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is given to every seeded user unless Options says otherwise.
const DefaultPassword = "password123"

// Options configuration for the seeder
type Options struct {
	NumUsers     int
	PostsPerUser int
	Password     string
	// Seed makes the generated data reproducible. Zero picks a random seed.
	Seed int64
}

// Seeder writes demo data through the same repositories and upload storage
// the app uses.
type Seeder struct {
	db       *gorm.DB
	uploads  *storage.Disk
	users    repository.UserRepository
	posts    repository.PostRepository
	hashCost int
}

// NewSeeder binds a seeder to db and the upload directory.
func NewSeeder(db *gorm.DB, uploads *storage.Disk) *Seeder {
	return &Seeder{
		db:       db,
		uploads:  uploads,
		users:    repository.NewUserRepository(db),
		posts:    repository.NewPostRepository(db),
		hashCost: bcrypt.DefaultCost,
	}
}

// WithHashCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (s *Seeder) WithHashCost(cost int) *Seeder {
	s.hashCost = cost
	return s
}

var usernameCleaner = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Run creates opts.NumUsers users with opts.PostsPerUser posts each and
// returns the users it created.
func (s *Seeder) Run(ctx context.Context, opts Options) ([]models.User, error) {
	password := opts.Password
	if password == "" {
		password = DefaultPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	faker := gofakeit.New(opts.Seed)
	middleware.Logger.Info("seeding database", "users", opts.NumUsers, "posts_per_user", opts.PostsPerUser)

	users := make([]models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user := &models.User{
			Username: username(faker, i),
			Name:     faker.Name(),
			Email:    strings.ToLower(faker.Email()),
			Contact:  faker.Phone(),
			Password: string(hash),
		}
		if err := s.users.Create(ctx, user); err != nil {
			return users, fmt.Errorf("create user %s: %w", user.Username, err)
		}

		for j := 0; j < opts.PostsPerUser; j++ {
			if err := s.createPost(ctx, faker, user.ID); err != nil {
				return users, fmt.Errorf("create post for %s: %w", user.Username, err)
			}
		}
		users = append(users, *user)
	}

	middleware.Logger.Info("seeding complete", "users", len(users), "password", password)
	return users, nil
}

func (s *Seeder) createPost(ctx context.Context, faker *gofakeit.Faker, userID uint) error {
	name, err := s.uploads.Store(bytes.NewReader(placeholderImage(faker)))
	if err != nil {
		return err
	}

	post := &models.Post{
		UserID:      userID,
		Title:       strings.TrimSuffix(faker.Sentence(4), "."),
		Description: faker.Paragraph(1, 2, 12, " "),
		Image:       name,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		_ = s.uploads.Remove(name)
		return err
	}
	return nil
}

// ClearAll hard-deletes every post and user along with their stored images.
func (s *Seeder) ClearAll(ctx context.Context) error {
	db := s.db.WithContext(ctx)

	var images []string
	if err := db.Unscoped().Model(&models.Post{}).Pluck("image", &images).Error; err != nil {
		return fmt.Errorf("list post images: %w", err)
	}
	var avatars []string
	if err := db.Model(&models.User{}).Where("profile_image IS NOT NULL").Pluck("profile_image", &avatars).Error; err != nil {
		return fmt.Errorf("list profile images: %w", err)
	}

	// Each delete needs its own chain; a reused statement keeps the first table.
	for _, table := range []struct {
		name  string
		model any
	}{{"posts", &models.Post{}}, {"users", &models.User{}}} {
		all := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped()
		if err := all.Delete(table.model).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table.name, err)
		}
	}

	for _, name := range append(images, avatars...) {
		if err := s.uploads.Remove(name); err != nil {
			middleware.Logger.Warn("failed to remove upload", "file", name, "error", err.Error())
		}
	}
	middleware.Logger.Info("cleared seeded data", "posts", len(images))
	return nil
}

// username derives a valid, unique handle from a fake one. The index suffix
// keeps handles unique within a run.
func username(faker *gofakeit.Faker, i int) string {
	base := usernameCleaner.ReplaceAllString(faker.Username(), "")
	base = strings.Trim(base, "_-")
	if len(base) > 24 {
		base = base[:24]
	}
	if len(base) < 3 {
		base = "user"
	}
	return fmt.Sprintf("%s_%d", base, i)
}

// placeholderImage draws a small two-colour gradient.
func placeholderImage(faker *gofakeit.Faker) []byte {
	const size = 64
	from := color.RGBA{R: faker.Uint8(), G: faker.Uint8(), B: faker.Uint8(), A: 255}
	to := color.RGBA{R: faker.Uint8(), G: faker.Uint8(), B: faker.Uint8(), A: 255}

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			t := float64(x+y) / float64(2*(size-1))
			img.Set(x, y, color.RGBA{
				R: lerp(from.R, to.R, t),
				G: lerp(from.G, to.G, t),
				B: lerp(from.B, to.B, t),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}
