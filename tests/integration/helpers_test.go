//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/bissquit/user-registry/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type userResponse struct {
	ID          string   `json:"_id"`
	Username    string   `json:"username"`
	Password    string   `json:"password"`
	Roles       []string `json:"roles"`
	Preferences struct {
		Timezone *string `json:"timezone"`
	} `json:"preferences"`
	Active    bool    `json:"active"`
	CreatedTS float64 `json:"created_ts"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// uniqueName returns a username that no other test uses.
func uniqueName(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// createTestUser creates a user and removes it when the test ends.
func createTestUser(t *testing.T, client *testutil.Client, payload map[string]interface{}) userResponse {
	t.Helper()

	resp, err := client.POST("/api/users", payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var user userResponse
	testutil.DecodeJSON(t, resp, &user)

	t.Cleanup(func() {
		resp, err := testutil.NewClient(testServer.URL).DELETE("/api/users/" + user.Username)
		if err == nil {
			_ = resp.Body.Close()
		}
	})

	return user
}
