// Command main runs the database seeder for Inkwell.
package main

import (
	"context"
	"flag"
	"log"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 60, "Number of posts to create")
	comments := flag.Int("comments", 3, "Comments per post")
	likeRatio := flag.Float64("likes", 0.3, "Share of users that like each post (0-1)")
	maxViews := flag.Int("views", 50, "Upper bound of the random view count per post")
	taxonomy := flag.String("taxonomy", "", "YAML fixture with categories and tags (defaults to the built-in set)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing to the database")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d posts, clean=%v\n", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	summary, err := seed.Seed(context.Background(), db, seed.Options{
		NumUsers:        *numUsers,
		NumPosts:        *numPosts,
		CommentsPerPost: *comments,
		LikeRatio:       *likeRatio,
		MaxViews:        *maxViews,
		TaxonomyPath:    *taxonomy,
		ShouldClean:     *shouldClean,
		DryRun:          *dryRun,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done! Created %s.", summary)
	log.Printf("📧 All test users have the password: %s", seed.DemoPassword)
}
