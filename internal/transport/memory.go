package transport

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goatkit/warrantyflow/internal/models"
)

// Delivery records a notification handed to the memory transport.
type Delivery struct {
	ChannelID string
	UserID    string
	Notification
}

type memoryChannel struct {
	channel  Channel
	members  []string
	messages []Message
}

// Memory is an in-process Messenger for tests and local runs.
type Memory struct {
	mu         sync.Mutex
	seq        int
	channels   map[string]*memoryChannel
	removed    map[string][]Message
	deliveries []Delivery
	now        func() time.Time

	// FailCreate and FailDelete inject transport failures.
	FailCreate error
	FailDelete error
}

// NewMemory creates an empty memory transport.
func NewMemory() *Memory {
	return &Memory{
		channels: make(map[string]*memoryChannel),
		removed:  make(map[string][]Message),
		now:      time.Now,
	}
}

func (m *Memory) nextID(prefix string) string {
	m.seq++
	return prefix + strconv.Itoa(m.seq)
}

// AddChannel registers an existing channel, such as the vouch channel.
func (m *Memory) AddChannel(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[id] = &memoryChannel{channel: Channel{ID: id, Name: name}}
}

// Post appends a message to channelID. The channel is created when missing.
func (m *Memory) Post(channelID, authorID, content string) Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[channelID]
	if !ok {
		ch = &memoryChannel{channel: Channel{ID: channelID, Name: channelID}}
		m.channels[channelID] = ch
	}
	msg := Message{
		ID:        m.nextID("msg-"),
		ChannelID: channelID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: m.now().UTC(),
	}
	ch.messages = append(ch.messages, msg)
	return msg
}

// RemoveChannel drops a channel without going through DeleteChannel, as an
// operator deleting it by hand would.
func (m *Memory) RemoveChannel(channelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drop(channelID)
}

// drop deletes a channel but keeps its messages for transcript export, the way
// a platform keeps an audit copy of a deleted channel.
func (m *Memory) drop(channelID string) {
	ch, ok := m.channels[channelID]
	if !ok {
		return
	}
	m.removed[channelID] = ch.messages
	delete(m.channels, channelID)
}

// Members returns the members a channel was created for.
func (m *Memory) Members(channelID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.channels[channelID]; ok {
		return append([]string(nil), ch.members...)
	}
	return nil
}

// Deliveries returns every notification sent so far.
func (m *Memory) Deliveries() []Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Delivery(nil), m.deliveries...)
}

// History returns up to limit messages, newest first.
func (m *Memory) History(ctx context.Context, channelID string, limit int) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[channelID]
	if !ok {
		return nil, fmt.Errorf("%w: channel %s", models.ErrNotFound, channelID)
	}
	out := make([]Message, 0, len(ch.messages))
	for i := len(ch.messages) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, ch.messages[i])
	}
	return out, nil
}

// FindChannel returns the channel named name or ErrNotFound.
func (m *Memory) FindChannel(ctx context.Context, name string) (*Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.channels {
		if ch.channel.Name == name {
			c := ch.channel
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%w: channel %s", models.ErrNotFound, name)
}

// ChannelExists reports whether channelID is present.
func (m *Memory) ChannelExists(ctx context.Context, channelID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.channels[channelID]
	return ok, nil
}

// CreateChannel creates a channel restricted to spec.Members.
func (m *Memory) CreateChannel(ctx context.Context, spec ChannelSpec) (*Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCreate != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransport, m.FailCreate)
	}
	ch := &memoryChannel{
		channel: Channel{ID: m.nextID("chan-"), Name: spec.Name},
		members: append([]string(nil), spec.Members...),
	}
	m.channels[ch.channel.ID] = ch
	c := ch.channel
	return &c, nil
}

// DeleteChannel removes channelID or fails with ErrNotFound.
func (m *Memory) DeleteChannel(ctx context.Context, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDelete != nil {
		return fmt.Errorf("%w: %v", models.ErrTransport, m.FailDelete)
	}
	if _, ok := m.channels[channelID]; !ok {
		return fmt.Errorf("%w: channel %s", models.ErrNotFound, channelID)
	}
	m.drop(channelID)
	return nil
}

// Send records a channel notification.
func (m *Memory) Send(ctx context.Context, channelID string, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.channels[channelID]; !ok {
		return fmt.Errorf("%w: channel %s", models.ErrNotFound, channelID)
	}
	m.deliveries = append(m.deliveries, Delivery{ChannelID: channelID, Notification: n})
	return nil
}

// SendDirect records a direct message.
func (m *Memory) SendDirect(ctx context.Context, userID string, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, Delivery{UserID: userID, Notification: n})
	return nil
}

// ExportTranscript renders the channel's messages oldest first as plain text.
// Removed channels are exported from their retained messages; unknown ids give
// an empty transcript.
func (m *Memory) ExportTranscript(ctx context.Context, channelID string, limit int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var b strings.Builder
	var msgs []Message
	if ch, ok := m.channels[channelID]; ok {
		msgs = ch.messages
	} else {
		msgs = m.removed[channelID]
	}
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	for _, msg := range msgs {
		fmt.Fprintf(&b, "[%s] %s: %s\n", msg.CreatedAt.Format(time.RFC3339), msg.AuthorID, msg.Content)
	}
	return []byte(b.String()), nil
}

var _ Messenger = (*Memory)(nil)
