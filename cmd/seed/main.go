// Command seed fills the configured database with demo users and posts.
package main

import (
	"context"
	"flag"
	"log"

	"pinboard/internal/config"
	"pinboard/internal/database"
	"pinboard/internal/seed"
	"pinboard/internal/storage"
)

func main() {
	numUsers := flag.Int("users", 10, "Number of users to create")
	postsPerUser := flag.Int("posts", 5, "Posts to create per user")
	shouldClean := flag.Bool("clean", false, "Delete existing users and posts first")
	password := flag.String("password", seed.DefaultPassword, "Password for every seeded user")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	uploads, err := storage.NewDisk(cfg.UploadDir, cfg.UploadMaxBytes())
	if err != nil {
		log.Fatalf("Failed to open upload dir: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, uploads)
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	users, err := s.Run(ctx, seed.Options{NumUsers: *numUsers, PostsPerUser: *postsPerUser, Password: *password})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Seeded %d users; all share the password %q", len(users), *password)
}
