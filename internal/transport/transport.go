// Package transport defines the chat/channel collaborator the warranty engine talks
// to, plus an in-memory implementation and an HTTP bridge client.
package transport

import (
	"context"
	"time"
)

// Message is a single chat message as seen by the engine.
type Message struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Channel is a chat channel handle.
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChannelSpec describes a channel to create. Only Members (and the transport's own
// identity) may read it.
type ChannelSpec struct {
	Name       string   `json:"name"`
	CategoryID string   `json:"category_id,omitempty"`
	Members    []string `json:"members"`
}

// Field is a labelled value inside a notification.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Attachment is a file delivered with a notification.
type Attachment struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// Notification is rendered content the transport delivers to a channel or user.
type Notification struct {
	Title       string       `json:"title"`
	Body        string       `json:"body"`
	Fields      []Field      `json:"fields,omitempty"`
	Mentions    []string     `json:"mentions,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Error       bool         `json:"error,omitempty"`
}

// HistoryReader reads a bounded window of recent channel messages. Order is
// transport-defined; newest first is typical.
type HistoryReader interface {
	History(ctx context.Context, channelID string, limit int) ([]Message, error)
}

// ChannelManager creates, finds and deletes channels.
type ChannelManager interface {
	FindChannel(ctx context.Context, name string) (*Channel, error)
	ChannelExists(ctx context.Context, channelID string) (bool, error)
	CreateChannel(ctx context.Context, spec ChannelSpec) (*Channel, error)
	DeleteChannel(ctx context.Context, channelID string) error
}

// Notifier delivers notifications to channels and direct messages.
type Notifier interface {
	Send(ctx context.Context, channelID string, n Notification) error
	SendDirect(ctx context.Context, userID string, n Notification) error
}

// TranscriptExporter exports a channel's content as an opaque document.
type TranscriptExporter interface {
	ExportTranscript(ctx context.Context, channelID string, limit int) ([]byte, error)
}

// Messenger is the full transport surface.
type Messenger interface {
	HistoryReader
	ChannelManager
	Notifier
	TranscriptExporter
}
