package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// Role tags observed in stored records.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleTester  = "tester"
)

// Preferences is owned by a User and has no lifecycle of its own.
type Preferences struct {
	Timezone *string `json:"timezone"`
}

// User is the only entity of the registry.
// ID is assigned by the store and is empty until the record is persisted.
type User struct {
	ID          string      `json:"_id,omitempty"`
	Username    string      `json:"username"`
	Password    string      `json:"password"`
	Roles       []string    `json:"roles"`
	Preferences Preferences `json:"preferences"`
	Active      bool        `json:"active"`
	CreatedTS   float64     `json:"created_ts"`
}

// NewUserParams holds the raw values a User is built from.
// Nil Roles and nil Active fall back to defaults.
type NewUserParams struct {
	Username  string
	Password  string
	Roles     []string
	Timezone  *string
	Active    *bool
	CreatedAt time.Time
}

// NewUser builds a User applying the defaulting rules shared by the create
// path and the import job.
func NewUser(p NewUserParams) *User {
	roles := p.Roles
	if roles == nil {
		roles = make([]string, 0)
	}

	active := true
	if p.Active != nil {
		active = *p.Active
	}

	return &User{
		Username:    p.Username,
		Password:    p.Password,
		Roles:       roles,
		Preferences: Preferences{Timezone: p.Timezone},
		Active:      active,
		CreatedTS:   UnixTimestamp(p.CreatedAt),
	}
}

// UnixTimestamp converts t to fractional seconds since the Unix epoch.
func UnixTimestamp(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// UserPatch is a partial update. Nil fields are left untouched.
type UserPatch struct {
	Password *string
	Roles    *[]string
	Timezone NullableString
	Active   *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Password == nil && p.Roles == nil && !p.Timezone.Set && p.Active == nil
}

// NullableString tells a missing JSON key apart from an explicit null.
// Set is true whenever the key was present; Value is nil for null.
type NullableString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n NullableString) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}
