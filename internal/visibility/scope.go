package visibility

import (
	"strings"

	"gorm.io/gorm"
)

// PostsScope is the query-level form of the post read rule.
func PostsScope(v Viewer, p Policy) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if staffOverride(v, Subject{}, p) {
			return db
		}
		where, args := postsCondition("posts", v.ID)
		return db.Where(where, args...)
	}
}

func postsCondition(table string, viewerID uint) (string, []any) {
	parts := make([]string, 0, len(tiers))
	var args []any
	for _, t := range tiers {
		cond, condArgs := t.audience.clause(table+".user_id", viewerID)
		part := table + ".privacy = ?"
		args = append(args, string(t.privacy))
		if cond != "" {
			part += " AND " + cond
			args = append(args, condArgs...)
		}
		parts = append(parts, "("+part+")")
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}
