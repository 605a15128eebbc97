package ticket

import (
	"log"
	"time"
)

// DefaultChannelPrefix prefixes the canonical channel name of a ticket.
const DefaultChannelPrefix = "pending-"

// DefaultTranscriptLimit bounds transcript exports.
const DefaultTranscriptLimit = 1000

type options struct {
	Logger           *log.Logger
	CategoryID       string
	OperatorID       string
	ArchiveChannelID string
	ChannelPrefix    string
	TranscriptLimit  int
	Now              func() time.Time
}

// Option configures a Manager.
type Option func(*options)

func defaultOptions() options {
	return options{
		Logger:          log.Default(),
		ChannelPrefix:   DefaultChannelPrefix,
		TranscriptLimit: DefaultTranscriptLimit,
		Now:             time.Now,
	}
}

// WithLogger injects a custom logger.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithCategory places ticket channels under categoryID.
func WithCategory(categoryID string) Option {
	return func(o *options) {
		o.CategoryID = categoryID
	}
}

// WithOperator grants operatorID access to every ticket and pings it on creation.
func WithOperator(operatorID string) Option {
	return func(o *options) {
		o.OperatorID = operatorID
	}
}

// WithArchiveChannel sets where transcripts of externally removed tickets go.
func WithArchiveChannel(channelID string) Option {
	return func(o *options) {
		o.ArchiveChannelID = channelID
	}
}

// WithChannelPrefix overrides the canonical channel name prefix.
func WithChannelPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.ChannelPrefix = prefix
		}
	}
}

// WithTranscriptLimit bounds the number of messages exported per transcript.
func WithTranscriptLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.TranscriptLimit = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.Now = now
		}
	}
}
