package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goatkit/warrantyflow/internal/models"
)

func TestMemoryHistoryNewestFirst(t *testing.T) {
	m := NewMemory()
	m.AddChannel("vouch", "vouches")
	m.Post("vouch", "u1", "first")
	m.Post("vouch", "u2", "second")
	m.Post("vouch", "u3", "third")

	msgs, err := m.History(context.Background(), "vouch", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "third", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)

	_, err = m.History(context.Background(), "missing", 10)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryChannelLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	ch, err := m.CreateChannel(ctx, ChannelSpec{Name: "pending-o1", Members: []string{"u1", "op"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "op"}, m.Members(ch.ID))

	found, err := m.FindChannel(ctx, "pending-o1")
	require.NoError(t, err)
	assert.Equal(t, ch.ID, found.ID)

	m.Post(ch.ID, "u1", "hello")
	transcript, err := m.ExportTranscript(ctx, ch.ID, 100)
	require.NoError(t, err)
	assert.Contains(t, string(transcript), "u1: hello")

	require.NoError(t, m.DeleteChannel(ctx, ch.ID))
	exists, err := m.ChannelExists(ctx, ch.ID)
	require.NoError(t, err)
	assert.False(t, exists)
	require.ErrorIs(t, m.DeleteChannel(ctx, ch.ID), models.ErrNotFound)

	transcript, err = m.ExportTranscript(ctx, ch.ID, 100)
	require.NoError(t, err)
	assert.Contains(t, string(transcript), "u1: hello")
}

func TestMemoryRemovedChannelKeepsTranscript(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Post("c1", "u1", "first")
	m.Post("c1", "op", "second")
	m.RemoveChannel("c1")

	transcript, err := m.ExportTranscript(ctx, "c1", 1)
	require.NoError(t, err)
	assert.NotContains(t, string(transcript), "first")
	assert.Contains(t, string(transcript), "op: second")

	empty, err := m.ExportTranscript(ctx, "never-existed", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryFailureInjection(t *testing.T) {
	m := NewMemory()
	m.FailCreate = errors.New("missing permissions")
	_, err := m.CreateChannel(context.Background(), ChannelSpec{Name: "x"})
	require.ErrorIs(t, err, models.ErrTransport)
}
