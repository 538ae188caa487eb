package seed

import (
	"errors"
	"fmt"
	"log"

	"snapverse/internal/models"

	"gorm.io/gorm"
)

// Options configures the seeder.
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool

	// PrivateRatio is the share of generated accounts that are private.
	// Zero means the default of 0.25.
	PrivateRatio float64
	// MaxFollows caps the outgoing follows per generated account.
	MaxFollows int
	// MaxDays spreads created_at values over this many past days.
	MaxDays int

	// Password overrides DefaultPassword for every created account.
	Password   string
	RandomSeed int64
	SkipBcrypt bool
	DryRun     bool
}

func (o Options) privateRatio() float64 {
	if o.PrivateRatio <= 0 {
		return 0.25
	}
	return o.PrivateRatio
}

// Result summarises what a Seed run created.
type Result struct {
	Users     int
	Follows   int
	Pending   int
	Posts     int
	Comments  int
	Reactions int
}

// Seed populates the database with a random social graph: accounts, follow
// edges that respect each followee's privacy, posts across every privacy
// tier, threaded comments, and reactions.
func Seed(db *gorm.DB, opts Options) (*Result, error) {
	if opts.NumUsers < 2 {
		return nil, errors.New("seed needs at least two users")
	}
	log.Printf("🌱 Starting database seeding with %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean && !opts.DryRun {
		if err := Clean(db); err != nil {
			return nil, fmt.Errorf("clear existing data: %w", err)
		}
	}

	f, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}
	res := &Result{}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser()
		if err != nil {
			log.Printf("Failed to create user: %v", err)
			continue
		}
		users = append(users, u)
	}
	if len(users) < 2 {
		return nil, errors.New("failed to create enough users")
	}
	res.Users = len(users)
	log.Printf("✓ %d users created", res.Users)

	maxFollows := opts.MaxFollows
	if maxFollows <= 0 || maxFollows >= len(users) {
		maxFollows = min(len(users)-1, 15)
	}
	for _, follower := range users {
		n := f.rng.Intn(maxFollows) + 1
		for _, idx := range f.rng.Perm(len(users))[:min(n+1, len(users))] {
			followee := users[idx]
			if followee.ID == follower.ID {
				continue
			}
			edge, err := f.CreateFollow(follower, followee)
			if err != nil {
				return nil, fmt.Errorf("create follow: %w", err)
			}
			res.Follows++
			if edge.Pending() {
				res.Pending++
			}
		}
	}
	log.Printf("✓ %d follows created (%d pending)", res.Follows, res.Pending)

	for i := 0; i < opts.NumPosts; i++ {
		author := users[f.rng.Intn(len(users))]
		post, err := f.CreatePost(author)
		if err != nil {
			return nil, fmt.Errorf("create post: %w", err)
		}
		res.Posts++

		if err := f.decorate(post, users, res); err != nil {
			return nil, err
		}
		if i > 0 && i%100 == 0 {
			log.Printf("Created %d posts...", i)
		}
	}
	log.Printf("✓ %d posts, %d comments, %d reactions created", res.Posts, res.Comments, res.Reactions)

	log.Println("🎉 Database seeding completed successfully!")
	return res, nil
}

// decorate adds comments, replies, and reactions from distinct users.
func (f *Factory) decorate(post *models.Post, users []*models.User, res *Result) error {
	for _, idx := range f.rng.Perm(len(users))[:f.rng.Intn(min(len(users), 8))] {
		if _, err := f.CreateReaction(users[idx], post, ""); err != nil {
			return fmt.Errorf("create reaction: %w", err)
		}
		res.Reactions++
	}

	for c := f.rng.Intn(4); c > 0; c-- {
		top, err := f.CreateComment(users[f.rng.Intn(len(users))], post, nil)
		if err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		res.Comments++
		for r := f.rng.Intn(3); r > 0; r-- {
			if _, err := f.CreateComment(users[f.rng.Intn(len(users))], post, top); err != nil {
				return fmt.Errorf("create reply: %w", err)
			}
			res.Comments++
		}
	}
	return nil
}

// seededTables lists every table in child-first order.
var seededTables = []string{"reactions", "comments", "posts", "follows", "users"}

// Clean removes every seeded row. Postgres tables are truncated with
// their identities reset; other dialects fall back to DELETE.
func Clean(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	if db.Dialector.Name() == "postgres" {
		return db.Exec("TRUNCATE TABLE reactions, comments, posts, follows, users RESTART IDENTITY CASCADE").Error
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, table := range seededTables {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}
