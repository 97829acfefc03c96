package user

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Role is a role identifier granted to an account. Comparison is case sensitive.
type Role string

// Roles known to the portal
const (
	RoleAdmin   Role = "ADMIN"
	RoleStudent Role = "STUDENT"
	RoleCompany Role = "COMPANY"                        // company representative (HR staff)
	RoleStaff   Role = "StudentServicesDepartmentStaff" // student services staff
)

// KnownRoles lists every role the portal routes refer to
var KnownRoles = []Role{RoleAdmin, RoleStudent, RoleCompany, RoleStaff}

// Account is the authenticated principal as reported by the backend
type Account struct {
	AccountID string    `json:"accountID"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Fullname  string    `json:"fullname,omitempty"`
	CreateAt  Timestamp `json:"createAt,omitempty"`
	Status    string    `json:"status,omitempty"`
	Roles     []Role    `json:"roles"`
}

// RoleSet returns the account's roles as a set
func (a *Account) RoleSet() RoleSet {
	return NewRoleSet(a.Roles...)
}

// HasRole reports whether the account holds role
func (a *Account) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HomePath returns where the account lands after login when no other
// destination was remembered
func (a *Account) HomePath() string {
	return HomePathFor(a.Roles)
}

// HomePathFor returns the landing page for an account holding roles
func HomePathFor(roles []Role) string {
	if NewRoleSet(roles...).Contains(RoleStudent) {
		return "/"
	}
	return "/manager/welcome"
}

// RoleSet is an unordered set of roles
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from roles
func NewRoleSet(roles ...Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// Contains reports whether role is in the set
func (s RoleSet) Contains(role Role) bool {
	_, ok := s[role]
	return ok
}

// Intersects reports whether the two sets share at least one role
func (s RoleSet) Intersects(other RoleSet) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for r := range small {
		if large.Contains(r) {
			return true
		}
	}
	return false
}

// Slice returns the roles in no particular order
func (s RoleSet) Slice() []Role {
	out := make([]Role, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	return out
}

// Timestamp accepts both epoch milliseconds and RFC 3339 strings, the two
// shapes the backend has been seen to emit for creation times
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000-0700", "2006-01-02T15:04:05"} {
			if parsed, err := time.Parse(layout, s); err == nil {
				t.Time = parsed
				return nil
			}
		}
		return fmt.Errorf("unsupported timestamp %q", s)
	}

	ms, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("unsupported timestamp %s: %w", b, err)
	}
	t.Time = time.UnixMilli(ms).UTC()
	return nil
}

// MarshalJSON implements json.Marshaler
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}
