package mongodb

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bissquit/user-registry/internal/domain"
	"github.com/bissquit/user-registry/internal/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func TestPatchToSet(t *testing.T) {
	tests := []struct {
		name     string
		patch    domain.UserPatch
		expected bson.D
	}{
		{
			name:     "empty patch",
			patch:    domain.UserPatch{},
			expected: bson.D{},
		},
		{
			name:  "timezone uses dotted path",
			patch: domain.UserPatch{Timezone: domain.NullableString{Set: true, Value: strPtr("UTC")}},
			expected: bson.D{
				{Key: "preferences.timezone", Value: strPtr("UTC")},
			},
		},
		{
			name:  "null timezone",
			patch: domain.UserPatch{Timezone: domain.NullableString{Set: true}},
			expected: bson.D{
				{Key: "preferences.timezone", Value: (*string)(nil)},
			},
		},
		{
			name: "all fields in fixed order",
			patch: domain.UserPatch{
				Password: strPtr("secret"),
				Roles:    &[]string{"admin"},
				Timezone: domain.NullableString{Set: true, Value: strPtr("UTC")},
				Active:   boolPtr(false),
			},
			expected: bson.D{
				{Key: "password", Value: "secret"},
				{Key: "roles", Value: []string{"admin"}},
				{Key: "preferences.timezone", Value: strPtr("UTC")},
				{Key: "active", Value: false},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, patchToSet(tt.patch))
		})
	}
}

func TestPatchToSet_NilRolesBecomeEmpty(t *testing.T) {
	var roles []string
	set := patchToSet(domain.UserPatch{Roles: &roles})

	require.Len(t, set, 1)
	assert.Equal(t, []string{}, set[0].Value)
}

func TestDocumentMapping(t *testing.T) {
	oid := primitive.NewObjectID()
	user := &domain.User{
		ID:          oid.Hex(),
		Username:    "bob",
		Password:    "x",
		Preferences: domain.Preferences{Timezone: strPtr("UTC")},
		Active:      true,
		CreatedTS:   1704067200.25,
	}

	doc := fromDomain(user)
	assert.Equal(t, oid, doc.ID)
	assert.Equal(t, []string{}, doc.Roles, "roles are never persisted as null")

	back := doc.toDomain()
	assert.Equal(t, oid.Hex(), back.ID)
	assert.Equal(t, "bob", back.Username)
	assert.Equal(t, "x", back.Password)
	assert.Equal(t, []string{}, back.Roles)
	assert.Equal(t, "UTC", *back.Preferences.Timezone)
	assert.True(t, back.Active)
	assert.Equal(t, 1704067200.25, back.CreatedTS)
}

func TestDocumentMapping_NewUserHasNoID(t *testing.T) {
	doc := fromDomain(&domain.User{Username: "bob"})
	assert.True(t, doc.ID.IsZero())

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	var decoded bson.M
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	_, hasID := decoded["_id"]
	assert.False(t, hasID, "_id is left for the server to assign")
	assert.Equal(t, bson.TypeNull, bson.Raw(raw).Lookup("preferences", "timezone").Type)
	assert.Equal(t, bson.TypeArray, bson.Raw(raw).Lookup("roles").Type)
}

func TestStoreError(t *testing.T) {
	timeout := storeError("find user", fmt.Errorf("server selection: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, timeout, users.ErrStoreUnavailable)
	assert.ErrorIs(t, timeout, context.DeadlineExceeded)
	assert.Contains(t, timeout.Error(), "find user")

	other := storeError("insert user", errors.New("document too large"))
	assert.NotErrorIs(t, other, users.ErrStoreUnavailable)
	assert.EqualError(t, other, "insert user: document too large")
}
