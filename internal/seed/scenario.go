package seed

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"snapverse/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Scenario is a hand-written social graph loaded from YAML. It is used to
// reproduce privacy situations by name instead of by random seed.
//
//	users:
//	  - username: alice
//	    private: true
//	follows:
//	  - follower: bob
//	    followee: alice
//	posts:
//	  - author: alice
//	    caption: hello
//	    privacy: followers
//	    reactions: {bob: love}
//	    comments:
//	      - author: bob
//	        text: nice
//	        replies:
//	          - author: alice
//	            text: thanks
type Scenario struct {
	Password string           `yaml:"password"`
	Users    []ScenarioUser   `yaml:"users"`
	Follows  []ScenarioFollow `yaml:"follows"`
	Posts    []ScenarioPost   `yaml:"posts"`
}

// ScenarioUser declares one account.
type ScenarioUser struct {
	Username  string `yaml:"username"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Bio       string `yaml:"bio"`
	Private   bool   `yaml:"private"`
	Staff     bool   `yaml:"staff"`
	Superuser bool   `yaml:"superuser"`
	ProDays   int    `yaml:"pro_days"`
}

// ScenarioFollow declares one edge. Approved defaults to the followee's
// privacy the same way a live follow request does.
type ScenarioFollow struct {
	Follower string `yaml:"follower"`
	Followee string `yaml:"followee"`
	Approved *bool  `yaml:"approved"`
}

// ScenarioPost declares a post with its engagement.
type ScenarioPost struct {
	Author    string                         `yaml:"author"`
	Caption   string                         `yaml:"caption"`
	ImageURL  string                         `yaml:"image_url"`
	Privacy   models.Privacy                 `yaml:"privacy"`
	Reactions map[string]models.ReactionKind `yaml:"reactions"`
	Comments  []ScenarioComment              `yaml:"comments"`
}

// ScenarioComment declares a top-level comment and its replies.
type ScenarioComment struct {
	Author  string            `yaml:"author"`
	Text    string            `yaml:"text"`
	Replies []ScenarioComment `yaml:"replies"`
}

// ParseScenario decodes YAML, rejecting unknown keys.
func ParseScenario(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadScenario reads and parses a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path) // #nosec G304: path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

func (s *Scenario) validate() error {
	known := make(map[string]bool, len(s.Users))
	for _, u := range s.Users {
		if u.Username == "" {
			return errors.New("scenario user without username")
		}
		if known[u.Username] {
			return fmt.Errorf("duplicate scenario user %q", u.Username)
		}
		known[u.Username] = true
	}
	ref := func(kind, name string) error {
		if !known[name] {
			return fmt.Errorf("%s references unknown user %q", kind, name)
		}
		return nil
	}
	for _, f := range s.Follows {
		if err := ref("follow", f.Follower); err != nil {
			return err
		}
		if err := ref("follow", f.Followee); err != nil {
			return err
		}
		if f.Follower == f.Followee {
			return fmt.Errorf("user %q cannot follow themselves", f.Follower)
		}
	}
	var checkComments func([]ScenarioComment, bool) error
	checkComments = func(cs []ScenarioComment, reply bool) error {
		for _, c := range cs {
			if err := ref("comment", c.Author); err != nil {
				return err
			}
			if reply && len(c.Replies) > 0 {
				return errors.New("replies cannot have replies")
			}
			if err := checkComments(c.Replies, true); err != nil {
				return err
			}
		}
		return nil
	}
	for i, p := range s.Posts {
		if err := ref("post", p.Author); err != nil {
			return err
		}
		if p.Privacy != "" && !p.Privacy.Valid() {
			return fmt.Errorf("post %d has unknown privacy %q", i, p.Privacy)
		}
		for name, kind := range p.Reactions {
			if err := ref("reaction", name); err != nil {
				return err
			}
			if !kind.Valid() {
				return fmt.Errorf("post %d has unknown reaction %q", i, kind)
			}
		}
		if err := checkComments(p.Comments, false); err != nil {
			return err
		}
	}
	return nil
}

// Apply writes the scenario in a single transaction and returns the
// created accounts keyed by username.
func (s *Scenario) Apply(db *gorm.DB, opts Options) (map[string]*models.User, error) {
	if opts.Password == "" {
		opts.Password = s.Password
	}
	users := make(map[string]*models.User, len(s.Users))
	err := db.Transaction(func(tx *gorm.DB) error {
		f, err := NewFactory(tx, opts)
		if err != nil {
			return err
		}
		now := time.Now()

		for _, su := range s.Users {
			u, err := f.CreateUser(func(u *models.User) {
				u.Username = su.Username
				u.Email = su.Username + "@example.com"
				u.IsPrivate = su.Private
				u.IsStaff = su.Staff || su.Superuser
				u.IsSuperuser = su.Superuser
				if su.FirstName != "" {
					u.FirstName = su.FirstName
				}
				if su.LastName != "" {
					u.LastName = su.LastName
				}
				if su.Bio != "" {
					u.Bio = su.Bio
				}
				if su.ProDays > 0 {
					u.ActivatePro(now)
					end := now.Add(time.Duration(su.ProDays) * 24 * time.Hour)
					u.ProSubscriptionEnd = &end
				}
			})
			if err != nil {
				return fmt.Errorf("create user %s: %w", su.Username, err)
			}
			users[su.Username] = u
		}

		for _, sf := range s.Follows {
			_, err := f.CreateFollow(users[sf.Follower], users[sf.Followee], func(edge *models.Follow) {
				if sf.Approved != nil {
					edge.Approved = *sf.Approved
				}
			})
			if err != nil {
				return fmt.Errorf("create follow %s->%s: %w", sf.Follower, sf.Followee, err)
			}
		}

		for i, sp := range s.Posts {
			post, err := f.CreatePost(users[sp.Author], func(p *models.Post) {
				p.Caption = sp.Caption
				p.ImageURL = sp.ImageURL
				p.Privacy = sp.Privacy
				if p.Privacy == "" {
					p.Privacy = models.PrivacyPublic
				}
				// Declaration order is newest last.
				p.CreatedAt = now.Add(time.Duration(i-len(s.Posts)) * time.Minute)
			})
			if err != nil {
				return fmt.Errorf("create post %d: %w", i, err)
			}
			for name, kind := range sp.Reactions {
				if _, err := f.CreateReaction(users[name], post, kind); err != nil {
					return fmt.Errorf("create reaction on post %d: %w", i, err)
				}
			}
			if err := f.applyComments(post, nil, sp.Comments, users); err != nil {
				return fmt.Errorf("comments on post %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (f *Factory) applyComments(post *models.Post, parent *models.Comment, cs []ScenarioComment, users map[string]*models.User) error {
	for _, sc := range cs {
		text := sc.Text
		c, err := f.CreateComment(users[sc.Author], post, parent, func(c *models.Comment) {
			if text != "" {
				c.Text = text
			}
		})
		if err != nil {
			return err
		}
		if err := f.applyComments(post, c, sc.Replies, users); err != nil {
			return err
		}
	}
	return nil
}
