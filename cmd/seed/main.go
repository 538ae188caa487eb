// Command seed fills the database with a generated social graph or a
// scripted scenario.
package main

import (
	"flag"
	"log"

	"snapverse/internal/config"
	"snapverse/internal/database"
	"snapverse/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numPosts := flag.Int("posts", 200, "Number of posts to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	scenario := flag.String("scenario", "", "Apply a YAML scenario instead of random data")
	skipBcrypt := flag.Bool("skip-bcrypt", false, "Store a precomputed hash to speed up large runs")
	randomSeed := flag.Int64("seed", 0, "Random seed; 0 picks one from the clock")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing it")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	opts := seed.Options{
		NumUsers:    *numUsers,
		NumPosts:    *numPosts,
		ShouldClean: *shouldClean,
		RandomSeed:  *randomSeed,
		SkipBcrypt:  *skipBcrypt,
		DryRun:      *dryRun,
	}

	if *scenario != "" {
		log.Printf("Applying scenario: %s (ignoring -users and -posts)", *scenario)
		s, err := seed.LoadScenario(*scenario)
		if err != nil {
			log.Fatalf("❌ Scenario load failed: %v", err)
		}
		if *shouldClean {
			if err := seed.Clean(db); err != nil {
				log.Fatalf("❌ Cleanup failed: %v", err)
			}
		}
		users, err := s.Apply(db, opts)
		if err != nil {
			log.Fatalf("❌ Scenario seeding failed: %v", err)
		}
		log.Printf("✨ Scenario applied with %d users.", len(users))
		return
	}

	log.Printf("Target: %d users, %d posts, clean=%v", *numUsers, *numPosts, *shouldClean)
	res, err := seed.Seed(db, opts)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
	log.Printf("✨ Created %d users, %d follows (%d pending), %d posts, %d comments, %d reactions.",
		res.Users, res.Follows, res.Pending, res.Posts, res.Comments, res.Reactions)
	log.Printf("📧 All generated users have the password: %s", seed.DefaultPassword)
}
