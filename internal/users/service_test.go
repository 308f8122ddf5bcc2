package users

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bissquit/user-registry/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepository implements Repository in memory, keeping insertion order.
type mockRepository struct {
	order   []string
	users   map[string]domain.User
	nextID  int
	listErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users: make(map[string]domain.User),
	}
}

func (m *mockRepository) ListUsers(_ context.Context) ([]domain.User, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	list := make([]domain.User, 0, len(m.order))
	for _, username := range m.order {
		list = append(list, m.users[username])
	}
	return list, nil
}

func (m *mockRepository) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	u, ok := m.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (m *mockRepository) CreateUser(_ context.Context, user *domain.User) error {
	if _, ok := m.users[user.Username]; ok {
		return ErrUsernameExists
	}
	m.nextID++
	user.ID = fmt.Sprintf("%024x", m.nextID)
	stored := *user
	stored.Roles = append([]string(nil), user.Roles...)
	if stored.Roles == nil {
		stored.Roles = []string{}
	}
	m.users[user.Username] = stored
	m.order = append(m.order, user.Username)
	return nil
}

func (m *mockRepository) UpdateUser(_ context.Context, username string, patch domain.UserPatch) (*domain.User, error) {
	u, ok := m.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	u = applyPatch(u, patch)
	m.users[username] = u
	return &u, nil
}

func (m *mockRepository) DeleteUser(_ context.Context, username string) (int64, error) {
	if _, ok := m.users[username]; !ok {
		return 0, nil
	}
	delete(m.users, username)
	for i, name := range m.order {
		if name == username {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return 1, nil
}

// applyPatch mirrors the $set the MongoDB repository issues for patch.
func applyPatch(u domain.User, patch domain.UserPatch) domain.User {
	if patch.Password != nil {
		u.Password = *patch.Password
	}
	if patch.Roles != nil {
		u.Roles = append(make([]string, 0, len(*patch.Roles)), *patch.Roles...)
	}
	if patch.Timezone.Set {
		u.Preferences.Timezone = patch.Timezone.Value
	}
	if patch.Active != nil {
		u.Active = *patch.Active
	}
	return u
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func newTestService(repo Repository) *Service {
	svc := NewService(repo)
	svc.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestCreateUser_DefaultsThenGet(t *testing.T) {
	// Arrange
	svc := newTestService(newMockRepository())
	ctx := context.Background()

	// Act
	created, err := svc.CreateUser(ctx, CreateUserInput{Username: "bob", Password: "x"})
	require.NoError(t, err)

	got, err := svc.GetUser(ctx, "bob")

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "bob", got.Username)
	assert.Equal(t, "x", got.Password)
	assert.Equal(t, []string{}, got.Roles)
	assert.Nil(t, got.Preferences.Timezone)
	assert.True(t, got.Active)
	assert.Equal(t, float64(1704067200), got.CreatedTS)
}

func TestCreateUser_ExplicitFieldsRoundTrip(t *testing.T) {
	svc := newTestService(newMockRepository())
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserInput{
		Username: "carol",
		Password: "pw",
		Roles:    []string{"manager", "tester"},
		Timezone: strPtr("Asia/Tokyo"),
		Active:   boolPtr(false),
	})
	require.NoError(t, err)

	got, err := svc.GetUser(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, []string{"manager", "tester"}, got.Roles)
	assert.Equal(t, "Asia/Tokyo", *got.Preferences.Timezone)
	assert.False(t, got.Active)
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	svc := newTestService(newMockRepository())
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserInput{Username: "bob", Password: "x"})
	require.NoError(t, err)

	user, err := svc.CreateUser(ctx, CreateUserInput{Username: "bob", Password: "y"})
	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func TestGetUser_NotFound(t *testing.T) {
	svc := newTestService(newMockRepository())

	user, err := svc.GetUser(context.Background(), "nobody")

	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestListUsers(t *testing.T) {
	svc := newTestService(newMockRepository())
	ctx := context.Background()

	empty, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, name := range []string{"a", "b", "c"} {
		_, err := svc.CreateUser(ctx, CreateUserInput{Username: name, Password: "p"})
		require.NoError(t, err)
	}

	list, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].Username)
	assert.Equal(t, "c", list[2].Username)
}

func TestListUsers_StoreError(t *testing.T) {
	repo := newMockRepository()
	repo.listErr = errors.New("connection refused")
	svc := newTestService(repo)

	list, err := svc.ListUsers(context.Background())

	assert.Nil(t, list)
	assert.ErrorContains(t, err, "connection refused")
}

func TestUpdateUser_EmptyPatchLeavesRecordUnchanged(t *testing.T) {
	svc := newTestService(newMockRepository())
	ctx := context.Background()

	before, err := svc.CreateUser(ctx, CreateUserInput{
		Username: "bob",
		Password: "x",
		Roles:    []string{"admin"},
		Timezone: strPtr("UTC"),
	})
	require.NoError(t, err)

	after, err := svc.UpdateUser(ctx, "bob", domain.UserPatch{})
	require.NoError(t, err)

	assert.Equal(t, *before, *after)
}

func TestUpdateUser_TimezoneOnly(t *testing.T) {
	svc := newTestService(newMockRepository())
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserInput{
		Username: "bob",
		Password: "x",
		Roles:    []string{"tester"},
		Timezone: strPtr("UTC"),
		Active:   boolPtr(false),
	})
	require.NoError(t, err)

	updated, err := svc.UpdateUser(ctx, "bob", domain.UserPatch{
		Timezone: domain.NullableString{Set: true, Value: strPtr("Europe/Berlin")},
	})
	require.NoError(t, err)

	assert.Equal(t, "Europe/Berlin", *updated.Preferences.Timezone)
	assert.Equal(t, "x", updated.Password)
	assert.Equal(t, []string{"tester"}, updated.Roles)
	assert.False(t, updated.Active)
	assert.Equal(t, float64(1704067200), updated.CreatedTS)
}

func TestUpdateUser_ReplacesRoles(t *testing.T) {
	svc := newTestService(newMockRepository())
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserInput{Username: "bob", Password: "x", Roles: []string{"tester"}})
	require.NoError(t, err)

	updated, err := svc.UpdateUser(ctx, "bob", domain.UserPatch{Roles: &[]string{"admin"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"admin"}, updated.Roles)

	var none []string
	updated, err = svc.UpdateUser(ctx, "bob", domain.UserPatch{Roles: &none})
	require.NoError(t, err)
	assert.Equal(t, []string{}, updated.Roles)
}

func TestUpdateUser_NotFound(t *testing.T) {
	svc := newTestService(newMockRepository())

	user, err := svc.UpdateUser(context.Background(), "nobody", domain.UserPatch{Active: boolPtr(false)})

	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeleteUser(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	err := svc.DeleteUser(ctx, "bob")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.CreateUser(ctx, CreateUserInput{Username: "bob", Password: "x"})
	require.NoError(t, err)

	deleted, err := repo.DeleteUser(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = svc.CreateUser(ctx, CreateUserInput{Username: "bob", Password: "x"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, "bob"))

	_, err = svc.GetUser(ctx, "bob")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
