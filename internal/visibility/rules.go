// Package visibility decides who may read or write accounts, posts and
// comments, and builds the matching collection-level query filter.
package visibility

import (
	"snapverse/internal/models"
)

// Operation names an access decision.
type Operation string

const (
	PostRead              Operation = "post.read"
	PostWrite             Operation = "post.write"
	CommentRead           Operation = "comment.read"
	CommentUpdate         Operation = "comment.update"
	CommentDelete         Operation = "comment.delete"
	AccountPrivateContent Operation = "account.private_content"
)

// Viewer is the identity a decision is made for.
type Viewer struct {
	ID          uint
	IsStaff     bool
	IsSuperuser bool
}

// ViewerOf builds a Viewer from a loaded account.
func ViewerOf(u *models.User) Viewer {
	if u == nil {
		return Viewer{}
	}
	return Viewer{ID: u.ID, IsStaff: u.IsStaff, IsSuperuser: u.IsSuperuser}
}

// Subject carries the facts about the target that rules look at.
//
// OwnerID owns the object being acted on. AudienceOwnerID is the account
// whose audience rules apply: the post owner for posts and comments, the
// account itself for profile content. ViewerFollows is true when an ACTIVE
// edge runs from the viewer to AudienceOwnerID.
type Subject struct {
	OwnerID         uint
	AudienceOwnerID uint
	Privacy         models.Privacy
	ViewerFollows   bool
}

// PostSubject describes a post.
func PostSubject(post *models.Post) Subject {
	return Subject{
		OwnerID:         post.UserID,
		AudienceOwnerID: post.UserID,
		Privacy:         post.Privacy,
	}
}

// CommentSubject describes a comment inside its post.
func CommentSubject(comment *models.Comment, post *models.Post) Subject {
	return Subject{
		OwnerID:         comment.UserID,
		AudienceOwnerID: post.UserID,
		Privacy:         post.Privacy,
	}
}

// AccountSubject describes the non-public content of an account. It is
// read under the followers tier.
func AccountSubject(accountID uint) Subject {
	return Subject{
		OwnerID:         accountID,
		AudienceOwnerID: accountID,
		Privacy:         models.PrivacyFollowers,
	}
}

// Policy is the deployment-wide access policy.
type Policy struct {
	// StaffOverride lets staff read any tier and edit any post or comment.
	StaffOverride bool
}

type predicate func(v Viewer, s Subject, p Policy) bool

func owner(v Viewer, s Subject, _ Policy) bool {
	return v.ID != 0 && v.ID == s.OwnerID
}

func audienceOwner(v Viewer, s Subject, _ Policy) bool {
	return v.ID != 0 && v.ID == s.AudienceOwnerID
}

func activeFollower(v Viewer, s Subject, _ Policy) bool {
	return v.ID != 0 && s.ViewerFollows
}

func staffOverride(v Viewer, _ Subject, p Policy) bool {
	return p.StaffOverride && v.IsStaff
}

func staff(v Viewer, _ Subject, _ Policy) bool {
	return v.IsStaff
}

func superuser(v Viewer, _ Subject, _ Policy) bool {
	return v.IsSuperuser
}

// privacyTier applies the audience of the subject's privacy tier.
func privacyTier(v Viewer, s Subject, _ Policy) bool {
	return audienceFor(s.Privacy).allows(v.ID, s.AudienceOwnerID, s.ViewerFollows)
}

func anyOf(preds ...predicate) predicate {
	return func(v Viewer, s Subject, p Policy) bool {
		for _, pred := range preds {
			if pred(v, s, p) {
				return true
			}
		}
		return false
	}
}

type rule struct {
	// write rules never consult the privacy tier.
	write bool
	allow predicate
}

var rules = map[Operation]rule{
	PostRead:              {allow: anyOf(staffOverride, privacyTier)},
	CommentRead:           {allow: anyOf(staffOverride, privacyTier)},
	AccountPrivateContent: {allow: anyOf(staffOverride, audienceOwner, activeFollower)},
	PostWrite:             {write: true, allow: anyOf(owner, staffOverride)},
	CommentUpdate:         {write: true, allow: anyOf(owner, staffOverride)},
	CommentDelete:         {write: true, allow: anyOf(owner, audienceOwner, staff, superuser)},
}

// Allowed evaluates op for viewer v against subject s. Unknown operations
// are denied.
func Allowed(op Operation, v Viewer, s Subject, p Policy) bool {
	r, ok := rules[op]
	if !ok {
		return false
	}
	if r.write {
		s.Privacy = ""
		s.ViewerFollows = false
	}
	return r.allow(v, s, p)
}

// IsWrite reports whether op mutates its subject.
func (op Operation) IsWrite() bool {
	return rules[op].write
}

// dependsOnFollow reports whether a denial for s could turn into an allow
// once the viewer's follow edge is known.
func dependsOnFollow(op Operation, v Viewer, s Subject) bool {
	if op.IsWrite() || v.ID == 0 || v.ID == s.AudienceOwnerID {
		return false
	}
	if op == AccountPrivateContent {
		return true
	}
	return audienceFor(s.Privacy) == ownerOrFollowers
}
