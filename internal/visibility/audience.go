package visibility

import (
	"snapverse/internal/models"
)

// audience is who may read content of a given privacy tier. Both the
// per-object check (allows) and the query filter (clause) come from it.
type audience int

const (
	nobody audience = iota
	everyone
	ownerOnly
	ownerOrFollowers
)

// tiers is the single table mapping a privacy tier to its audience.
var tiers = []struct {
	privacy  models.Privacy
	audience audience
}{
	{models.PrivacyPublic, everyone},
	{models.PrivacyPrivate, ownerOnly},
	{models.PrivacyFollowers, ownerOrFollowers},
}

func audienceFor(p models.Privacy) audience {
	for _, t := range tiers {
		if t.privacy == p {
			return t.audience
		}
	}
	return nobody
}

func (a audience) allows(viewerID, ownerID uint, viewerFollows bool) bool {
	switch a {
	case everyone:
		return true
	case ownerOnly:
		return viewerID != 0 && viewerID == ownerID
	case ownerOrFollowers:
		return viewerID != 0 && (viewerID == ownerID || viewerFollows)
	default:
		return false
	}
}

// clause renders the audience as a SQL condition over a row of table whose
// owner column is ownerCol. An empty string means no extra condition.
func (a audience) clause(ownerCol string, viewerID uint) (string, []any) {
	switch a {
	case everyone:
		return "", nil
	case ownerOnly:
		return ownerCol + " = ?", []any{viewerID}
	case ownerOrFollowers:
		return "(" + ownerCol + " = ? OR EXISTS (SELECT 1 FROM follows vf WHERE vf.follower_id = ? AND vf.followee_id = " +
			ownerCol + " AND vf.is_approved = ?))", []any{viewerID, viewerID, true}
	default:
		return "1 = 0", nil
	}
}
