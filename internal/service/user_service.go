package service

import (
	"context"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"snapverse/internal/models"
	"snapverse/internal/repository"
)

const (
	maxBioLen      = 200
	maxNameLen     = 150
	maxPhoneLen    = 15
	dateOfBirthFmt = "2006-01-02"
)

type UserService struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	now        func() time.Time
}

// UserListItem is a user row annotated for the viewer.
type UserListItem struct {
	models.User
	FullName    string `json:"full_name"`
	IsFollowing bool   `json:"is_following"`
}

// UserProfile is a full profile annotated for the viewer.
type UserProfile struct {
	models.User
	FullName     string `json:"full_name"`
	IsFollowing  bool   `json:"is_following"`
	FollowStatus string `json:"follow_status"`
	IsPro        bool   `json:"is_pro"`
}

// UpdateProfileInput carries the fields to change; nil leaves a field as is.
type UpdateProfileInput struct {
	FirstName          *string
	LastName           *string
	Bio                *string
	Location           *string
	PhoneNumber        *string
	DateOfBirth        *string
	Gender             *string
	RelationshipStatus *string
	ProfilePicture     *string
	CoverPhoto         *string
	IsPrivate          *bool
}

func NewUserService(userRepo repository.UserRepository, followRepo repository.FollowRepository) *UserService {
	return &UserService{userRepo: userRepo, followRepo: followRepo, now: time.Now}
}

// Me returns the caller's own account with its counts.
func (s *UserService) Me(ctx context.Context, userID uint) (*UserProfile, error) {
	user, err := s.userRepo.GetByIDWithCounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.profileOf(user, nil), nil
}

func (s *UserService) profileOf(user *models.User, edge *models.Follow) *UserProfile {
	return &UserProfile{
		User:         *user,
		FullName:     user.FullName(),
		IsFollowing:  edge != nil && edge.Approved,
		FollowStatus: relationOf(edge),
		IsPro:        user.IsPro(s.now()),
	}
}

// GetProfile looks up an active account by username for the viewer.
func (s *UserService) GetProfile(ctx context.Context, viewerID uint, username string) (*UserProfile, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	var edge *models.Follow
	if viewerID != 0 && viewerID != user.ID {
		if edge, err = s.followRepo.Find(ctx, viewerID, user.ID); err != nil {
			return nil, err
		}
	}
	return s.profileOf(user, edge), nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*UserProfile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	setText := func(dst *string, src *string, limit int, field string) error {
		if src == nil {
			return nil
		}
		v := strings.TrimSpace(*src)
		if utf8.RuneCountInString(v) > limit {
			return models.NewValidationError(field + " is too long")
		}
		*dst = v
		return nil
	}
	for _, f := range []struct {
		dst   *string
		src   *string
		limit int
		field string
	}{
		{&user.FirstName, in.FirstName, maxNameLen, "first_name"},
		{&user.LastName, in.LastName, maxNameLen, "last_name"},
		{&user.Bio, in.Bio, maxBioLen, "bio"},
		{&user.Location, in.Location, maxLocationLen, "location"},
		{&user.PhoneNumber, in.PhoneNumber, maxPhoneLen, "phone_number"},
		{&user.ProfilePicture, in.ProfilePicture, 2048, "profile_picture"},
		{&user.CoverPhoto, in.CoverPhoto, 2048, "cover_photo"},
	} {
		if err := setText(f.dst, f.src, f.limit, f.field); err != nil {
			return nil, err
		}
	}

	if in.Gender != nil {
		g := strings.ToLower(strings.TrimSpace(*in.Gender))
		switch g {
		case "", models.GenderMale, models.GenderFemale, models.GenderOther:
			user.Gender = g
		default:
			return nil, models.NewValidationError("gender must be one of male, female, other")
		}
	}
	if in.RelationshipStatus != nil {
		rs := strings.ToLower(strings.TrimSpace(*in.RelationshipStatus))
		if rs != "" && !slices.Contains(models.RelationshipStatuses, rs) {
			return nil, models.NewValidationError("relationship_status must be one of " + strings.Join(models.RelationshipStatuses, ", "))
		}
		user.RelationshipStatus = rs
	}
	if in.DateOfBirth != nil {
		if strings.TrimSpace(*in.DateOfBirth) == "" {
			user.DateOfBirth = nil
		} else {
			dob, err := time.Parse(dateOfBirthFmt, strings.TrimSpace(*in.DateOfBirth))
			if err != nil {
				return nil, models.NewValidationError("date_of_birth must use YYYY-MM-DD")
			}
			if dob.After(s.now()) {
				return nil, models.NewValidationError("date_of_birth cannot be in the future")
			}
			user.DateOfBirth = &dob
		}
	}
	if in.IsPrivate != nil {
		user.IsPrivate = *in.IsPrivate
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.Me(ctx, userID)
}

// ListUsers pages active users by username, optionally filtered by search.
func (s *UserService) ListUsers(ctx context.Context, viewerID uint, search string, page models.Page) (models.PageResult[UserListItem], error) {
	users, total, err := s.userRepo.List(ctx, strings.TrimSpace(search), page)
	if err != nil {
		return models.PageResult[UserListItem]{}, err
	}
	return s.annotate(ctx, viewerID, users, total, page)
}

// Followers pages the accounts actively following username.
func (s *UserService) Followers(ctx context.Context, viewerID uint, username string, page models.Page) (models.PageResult[UserListItem], error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return models.PageResult[UserListItem]{}, err
	}
	users, total, err := s.userRepo.ListFollowers(ctx, user.ID, page)
	if err != nil {
		return models.PageResult[UserListItem]{}, err
	}
	return s.annotate(ctx, viewerID, users, total, page)
}

// Following pages the accounts username actively follows.
func (s *UserService) Following(ctx context.Context, viewerID uint, username string, page models.Page) (models.PageResult[UserListItem], error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return models.PageResult[UserListItem]{}, err
	}
	users, total, err := s.userRepo.ListFollowing(ctx, user.ID, page)
	if err != nil {
		return models.PageResult[UserListItem]{}, err
	}
	return s.annotate(ctx, viewerID, users, total, page)
}

func (s *UserService) annotate(ctx context.Context, viewerID uint, users []models.User, total int64, page models.Page) (models.PageResult[UserListItem], error) {
	ids := make([]uint, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	statuses, err := s.followRepo.StatusesFor(ctx, viewerID, ids)
	if err != nil {
		return models.PageResult[UserListItem]{}, err
	}
	return models.MapPage(models.NewPageResult(users, total, page), func(u models.User) UserListItem {
		return UserListItem{
			User:        u,
			FullName:    u.FullName(),
			IsFollowing: statuses[u.ID] == models.FollowStatusActive,
		}
	}), nil
}

// SetRoles updates the staff and superuser flags on an account.
func (s *UserService) SetRoles(ctx context.Context, username string, staff, superuser bool) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateFields(ctx, user.ID, map[string]any{
		"is_staff":     staff || superuser,
		"is_superuser": superuser,
	}); err != nil {
		return nil, err
	}
	return s.userRepo.GetByIDWithCounts(ctx, user.ID)
}

// GrantPro opens a pro window of the given length without a payment.
// A non-positive period grants the standard subscription period.
func (s *UserService) GrantPro(ctx context.Context, username string, period time.Duration) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	now := s.now()
	user.ActivatePro(now)
	if period > 0 {
		end := now.Add(period)
		user.ProSubscriptionEnd = &end
	}
	if err := s.userRepo.UpdateFields(ctx, user.ID, map[string]any{
		"pro_subscription_start": user.ProSubscriptionStart,
		"pro_subscription_end":   user.ProSubscriptionEnd,
	}); err != nil {
		return nil, err
	}
	return user, nil
}

// RevokePro closes an open pro window as of now.
func (s *UserService) RevokePro(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !user.IsPro(now) {
		return user, nil
	}
	user.ProSubscriptionEnd = &now
	if err := s.userRepo.UpdateFields(ctx, user.ID, map[string]any{"pro_subscription_end": now}); err != nil {
		return nil, err
	}
	return user, nil
}

// ListStaff returns staff and superuser accounts.
func (s *UserService) ListStaff(ctx context.Context) ([]models.User, error) {
	return s.userRepo.ListStaff(ctx)
}
