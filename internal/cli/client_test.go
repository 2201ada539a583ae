package cli

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botkeeper/botkeeper/internal/logging"
	"github.com/botkeeper/botkeeper/internal/server/config"
	"github.com/botkeeper/botkeeper/internal/server/events"
	"github.com/botkeeper/botkeeper/internal/server/httpapi"
	"github.com/botkeeper/botkeeper/internal/server/records"
	"github.com/botkeeper/botkeeper/internal/server/store"
)

// newTestServer spins up the real HTTP API over a temp file store.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := logging.NewJSON(io.Discard)
	cfg := &config.Config{SecretKey: "k", AccessTokenValidityDuration: time.Hour}
	fileStore := store.NewFileStore(filepath.Join(t.TempDir(), "users.json"))
	svc := records.NewService(fileStore, events.Nop{}, logger, cfg)
	srv := httptest.NewServer(httpapi.NewRouter(logger, svc, []byte(cfg.SecretKey)))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientLifecycle(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL)
	ctx := context.Background()

	require.NoError(t, c.Register(ctx, "ann", "a@x.com", "pw123", "pw123"))

	user, token, err := c.Login(ctx, "a@x.com", "pw123")
	require.NoError(t, err)
	assert.Equal(t, "ann", user.Username)
	assert.NotEmpty(t, token)

	// The rest of the walkthrough runs with the minted token attached.
	c.SetToken(token)

	users, err := c.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)

	bot, err := c.AddActiveBot(ctx, "a@x.com", json.RawMessage(`{"id":1,"name":"bot1"}`))
	require.NoError(t, err)
	assert.Contains(t, string(bot), "bot1")

	moved, err := c.MoveBot(ctx, "a@x.com", "1")
	require.NoError(t, err)
	assert.Contains(t, string(moved), "bot1")

	got, err := c.GetUser(ctx, "a@x.com")
	require.NoError(t, err)
	var state map[string]any
	require.NoError(t, json.Unmarshal(got.State, &state))
	assert.Empty(t, state["activeTradingBots"])
	assert.Len(t, state["completedTradingBots"], 1)

	newState, err := c.ReplaceState(ctx, "a@x.com", json.RawMessage(`{"theme":"dark"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"dark"}`, string(newState))

	require.NoError(t, c.DeleteUser(ctx, "a@x.com"))
	_, err = c.GetUser(ctx, "a@x.com")
	require.Error(t, err)
}

func TestClientServerErrors(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL)
	ctx := context.Background()

	err := c.Register(ctx, "ab", "a@x.com", "pw123", "pw123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username")

	_, _, err = c.Login(ctx, "a@x.com", "pw123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid email or password")

	_, err = c.AddActiveBot(ctx, "a@x.com", json.RawMessage(`{`))
	require.Error(t, err)

	c.SetToken("not-a-token")
	_, err = c.ListUsers(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")
}
