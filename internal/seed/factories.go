// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"snapverse/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password of every generated account.
const DefaultPassword = "Snapverse-Demo-1"

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by seed presets and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	hash string
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	seedValue := opts.RandomSeed
	if seedValue == 0 {
		seedValue = time.Now().UnixNano()
	}
	gofakeit.Seed(seedValue)

	f := &Factory{
		db:     db,
		opts:   opts,
		rng:    rand.New(rand.NewSource(seedValue)), // #nosec G404: acceptable for seeding
		nextID: 1000,
	}

	password := opts.Password
	if password == "" {
		password = DefaultPassword
	}
	if err := f.setPassword(password); err != nil {
		return nil, err
	}
	return f, nil
}

// pastTime spreads created_at values over the last MaxDays days.
func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().Add(-back)
}

func (f *Factory) create(value any, label string) error {
	if f.opts.DryRun {
		f.nextID++
		log.Printf("[dry-run] %s #%d (no DB write)", label, f.nextID)
		return nil
	}
	return f.db.Omit(clause.Associations).Create(value).Error
}

// CreateUser constructs and persists a sample `models.User`.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	first, last := gofakeit.FirstName(), gofakeit.LastName()
	username := strings.ToLower(fmt.Sprintf("%s_%s%d", first, last, gofakeit.Number(100, 999)))
	username = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' {
			return r
		}
		return -1
	}, username)
	if len(username) > 30 {
		username = username[len(username)-30:]
	}

	user := &models.User{
		Username:       username,
		Email:          username + "@example.com",
		Password:       f.hash,
		FirstName:      first,
		LastName:       last,
		Bio:            truncate(gofakeit.Sentence(10), 200),
		Location:       truncate(gofakeit.City(), 100),
		ProfilePicture: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		IsPrivate:      f.rng.Float64() < f.opts.privateRatio(),
		IsActive:       true,
	}

	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		return user, nil
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateFollow persists an edge whose approval follows the followee's
// privacy unless an override changes it.
func (f *Factory) CreateFollow(follower, followee *models.User, overrides ...func(*models.Follow)) (*models.Follow, error) {
	edge := models.NewFollow(follower.ID, followee)
	edge.CreatedAt = f.pastTime()
	for _, override := range overrides {
		override(edge)
	}
	if err := f.create(edge, "CreateFollow"); err != nil {
		return nil, err
	}
	return edge, nil
}

// CreatePost constructs and persists a sample `models.Post` for the given user.
func (f *Factory) CreatePost(user *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	tiers := []models.Privacy{models.PrivacyPublic, models.PrivacyPublic, models.PrivacyFollowers, models.PrivacyPrivate}
	post := &models.Post{
		UserID:    user.ID,
		Caption:   truncate(gofakeit.Paragraph(1, 2, 12, " "), 2200),
		Location:  truncate(gofakeit.City(), 100),
		Privacy:   tiers[f.rng.Intn(len(tiers))],
		CreatedAt: f.pastTime(),
	}
	if f.rng.Float32() < 0.6 {
		post.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID())
	}

	for _, override := range overrides {
		override(post)
	}
	if err := f.create(post, "CreatePost"); err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment constructs and persists a sample `models.Comment` on the
// provided post authored by the provided user. A non-nil parent makes it a
// reply.
func (f *Factory) CreateComment(user *models.User, post *models.Post, parent *models.Comment, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		UserID:    user.ID,
		PostID:    post.ID,
		Text:      truncate(gofakeit.Sentence(8), models.MaxCommentLength),
		CreatedAt: post.CreatedAt.Add(time.Duration(f.rng.Intn(72)+1) * time.Hour),
	}
	if parent != nil {
		comment.ParentCommentID = &parent.ID
		comment.CreatedAt = parent.CreatedAt.Add(time.Duration(f.rng.Intn(24)+1) * time.Hour)
	}

	for _, override := range overrides {
		override(comment)
	}
	if err := f.create(comment, "CreateComment"); err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateReaction persists a reaction from `user` on `post`. An empty kind
// picks a random one, weighted towards likes.
func (f *Factory) CreateReaction(user *models.User, post *models.Post, kind models.ReactionKind) (*models.Reaction, error) {
	if kind == "" {
		kind = models.ReactionLike
		if f.rng.Float32() < 0.4 {
			kind = models.ReactionKinds[f.rng.Intn(len(models.ReactionKinds))]
		}
	}
	reaction := &models.Reaction{UserID: user.ID, PostID: post.ID, Kind: kind}
	if err := f.create(reaction, "CreateReaction"); err != nil {
		return nil, err
	}
	return reaction, nil
}

// setPassword hashes the shared password once for every account.
func (f *Factory) setPassword(password string) error {
	if f.opts.SkipBcrypt {
		f.hash = password
		return nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}
	f.hash = string(hashed)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n])
}
