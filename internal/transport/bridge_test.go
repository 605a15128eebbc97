package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goatkit/warrantyflow/internal/models"
)

func TestBridgeHistory(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/channels/vouch/messages", r.URL.Path)
		assert.Equal(t, "1000", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]any{{"id": "m1", "author_id": "u1", "content": "+rep"}},
		})
	}))
	defer srv.Close()

	msgs, err := NewBridge(srv.URL, "token", 0).History(context.Background(), "vouch", 1000)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "u1", msgs[0].AuthorID)
}

func TestBridgeCreateChannelSendsSpec(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var spec ChannelSpec
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&spec))
		assert.Equal(t, "pending-o1", spec.Name)
		assert.Equal(t, []string{"u1", "op"}, spec.Members)
		_ = json.NewEncoder(w).Encode(Channel{ID: "c1", Name: spec.Name})
	}))
	defer srv.Close()

	ch, err := NewBridge(srv.URL, "", 0).CreateChannel(context.Background(), ChannelSpec{Name: "pending-o1", Members: []string{"u1", "op"}})
	require.NoError(t, err)
	assert.Equal(t, "c1", ch.ID)
}

func TestBridgeErrorMapping(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/channels/gone":
			http.Error(w, "unknown channel", http.StatusNotFound)
		case "/channels/secret/messages":
			http.Error(w, "missing access", http.StatusForbidden)
		case "/channels/bad/messages":
			_, _ = w.Write([]byte("not json"))
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	bridge := NewBridge(srv.URL, "token", 0)
	ctx := context.Background()

	exists, err := bridge.ChannelExists(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = bridge.ChannelExists(ctx, "here")
	require.NoError(t, err)
	assert.True(t, exists)

	err = bridge.DeleteChannel(ctx, "gone")
	require.ErrorIs(t, err, models.ErrNotFound)

	_, err = bridge.History(ctx, "secret", 10)
	require.ErrorIs(t, err, models.ErrTransport)
	assert.Contains(t, err.Error(), "missing access")

	_, err = bridge.History(ctx, "bad", 10)
	require.ErrorIs(t, err, models.ErrTransport)
}

func TestBridgeFindChannel(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pending-o1", r.URL.Query().Get("name"))
		_ = json.NewEncoder(w).Encode(map[string]any{"channels": []Channel{}})
	}))
	defer srv.Close()

	_, err := NewBridge(srv.URL, "", 0).FindChannel(context.Background(), "pending-o1")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestBridgeNotConfigured(t *testing.T) {
	t.Parallel()

	err := NewBridge("", "", 0).Send(context.Background(), "c", Notification{})
	require.ErrorIs(t, err, models.ErrTransport)
}
