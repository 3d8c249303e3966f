// Package profile derives the update-permission state of a student profile
// and gates per-field edits on it.
package profile

import (
	"fmt"
	"math"
	"time"

	"github.com/stemsi/learning-portal/internal/model"
)

// Kind is the permission state reported by the backend.
type Kind string

const (
	KindLocked   Kind = "locked"
	KindPending  Kind = "pending"
	KindApproved Kind = "approved"
)

// Permission is the tagged permission variant. ExpiresAt is only meaningful
// for KindApproved and may be nil when the grant has no expiry.
type Permission struct {
	Kind      Kind       `json:"kind"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// FromProfile derives the permission from the server flags. The backend is
// the only source of truth; the result must be recomputed on every fetch.
func FromProfile(p *model.Profile) Permission {
	switch {
	case p == nil:
		return Permission{Kind: KindLocked}
	case p.CanUpdateProfile:
		return Permission{Kind: KindApproved, ExpiresAt: p.UpdatePermissionExpiresAt}
	case p.HasPendingRequest:
		return Permission{Kind: KindPending}
	default:
		return Permission{Kind: KindLocked}
	}
}

// Effective returns the permission as it stands at now: an approval whose
// expiry has passed reads as locked. Between fetches an approval can still
// look valid on the server side of a clock skew; callers refetch to settle it.
func Effective(now time.Time, p Permission) Permission {
	if p.Kind == KindApproved && p.ExpiresAt != nil && !p.ExpiresAt.After(now) {
		return Permission{Kind: KindLocked}
	}
	return p
}

// CanEdit reports whether edit controls are interactive at now.
func (p Permission) CanEdit(now time.Time) bool {
	return Effective(now, p).Kind == KindApproved
}

// TimeRemaining returns the hours left on an approval. ok is false when the
// permission is not approved or carries no expiry.
func (p Permission) TimeRemaining(now time.Time) (hours float64, ok bool) {
	eff := Effective(now, p)
	if eff.Kind != KindApproved || eff.ExpiresAt == nil {
		return 0, false
	}
	return eff.ExpiresAt.Sub(now).Hours(), true
}

// FormatTimeRemaining renders hours as "less than 1 hour", "N hours", "1 day" or "N days".
func FormatTimeRemaining(hours float64) string {
	switch {
	case hours <= 1:
		return "less than 1 hour"
	case hours < 24:
		return fmt.Sprintf("%d hours", int(math.Floor(hours)))
	}
	days := int(math.Floor(hours / 24))
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// Describe is the status line shown next to the permission affordance.
func (p Permission) Describe(now time.Time) string {
	eff := Effective(now, p)
	switch eff.Kind {
	case KindApproved:
		if h, ok := eff.TimeRemaining(now); ok {
			return "You can update your profile. Your edit permission expires in " + FormatTimeRemaining(h) + "."
		}
		return "You can update your profile."
	case KindPending:
		return "Profile update request pending"
	default:
		return "Profile updates are locked. Request edit permission to make changes."
	}
}
