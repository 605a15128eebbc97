package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goatkit/warrantyflow/internal/models"
)

// Bridge talks to a chat bridge service over HTTP/JSON. The bridge owns the chat
// platform session; this client only issues channel and message operations.
type Bridge struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

// NewBridge creates a bridge client.
func NewBridge(baseURL, apiToken string, timeout time.Duration) *Bridge {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Bridge{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiToken:   strings.TrimSpace(apiToken),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether a bridge endpoint is configured.
func (b *Bridge) Enabled() bool {
	return b != nil && b.baseURL != ""
}

func (b *Bridge) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	if !b.Enabled() {
		return nil, fmt.Errorf("%w: chat bridge not configured", models.ErrTransport)
	}
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransport, err)
	}
	if b.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiToken)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", models.ErrTransport, method, path, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(payload))
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s %s: %s", models.ErrNotFound, method, path, msg)
		}
		return nil, fmt.Errorf("%w: %s %s failed with %d: %s", models.ErrTransport, method, path, resp.StatusCode, msg)
	}
	return resp, nil
}

func (b *Bridge) decode(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed bridge response: %v", models.ErrTransport, err)
	}
	return nil
}

func (b *Bridge) discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// History reads up to limit recent messages of channelID.
func (b *Bridge) History(ctx context.Context, channelID string, limit int) ([]Message, error) {
	path := "/channels/" + url.PathEscape(channelID) + "/messages?limit=" + strconv.Itoa(limit)
	resp, err := b.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Messages []Message `json:"messages"`
	}
	if err := b.decode(resp, &parsed); err != nil {
		return nil, err
	}
	return parsed.Messages, nil
}

// FindChannel looks a channel up by name.
func (b *Bridge) FindChannel(ctx context.Context, name string) (*Channel, error) {
	resp, err := b.do(ctx, http.MethodGet, "/channels?name="+url.QueryEscape(name), nil)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Channels []Channel `json:"channels"`
	}
	if err := b.decode(resp, &parsed); err != nil {
		return nil, err
	}
	for _, ch := range parsed.Channels {
		if ch.Name == name {
			c := ch
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%w: channel %s", models.ErrNotFound, name)
}

// ChannelExists reports whether channelID is still present on the platform.
func (b *Bridge) ChannelExists(ctx context.Context, channelID string) (bool, error) {
	resp, err := b.do(ctx, http.MethodGet, "/channels/"+url.PathEscape(channelID), nil)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	b.discard(resp)
	return true, nil
}

// CreateChannel creates a private channel visible to spec.Members.
func (b *Bridge) CreateChannel(ctx context.Context, spec ChannelSpec) (*Channel, error) {
	resp, err := b.do(ctx, http.MethodPost, "/channels", spec)
	if err != nil {
		return nil, err
	}
	var ch Channel
	if err := b.decode(resp, &ch); err != nil {
		return nil, err
	}
	if ch.ID == "" {
		return nil, fmt.Errorf("%w: bridge returned channel without id", models.ErrTransport)
	}
	return &ch, nil
}

// DeleteChannel deletes channelID.
func (b *Bridge) DeleteChannel(ctx context.Context, channelID string) error {
	resp, err := b.do(ctx, http.MethodDelete, "/channels/"+url.PathEscape(channelID), nil)
	if err != nil {
		return err
	}
	b.discard(resp)
	return nil
}

// Send posts n to channelID.
func (b *Bridge) Send(ctx context.Context, channelID string, n Notification) error {
	resp, err := b.do(ctx, http.MethodPost, "/channels/"+url.PathEscape(channelID)+"/notifications", n)
	if err != nil {
		return err
	}
	b.discard(resp)
	return nil
}

// SendDirect posts n to userID's direct messages.
func (b *Bridge) SendDirect(ctx context.Context, userID string, n Notification) error {
	resp, err := b.do(ctx, http.MethodPost, "/users/"+url.PathEscape(userID)+"/notifications", n)
	if err != nil {
		return err
	}
	b.discard(resp)
	return nil
}

// ExportTranscript downloads the channel transcript as returned by the bridge.
func (b *Bridge) ExportTranscript(ctx context.Context, channelID string, limit int) ([]byte, error) {
	path := "/channels/" + url.PathEscape(channelID) + "/transcript?limit=" + strconv.Itoa(limit)
	resp, err := b.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read transcript: %v", models.ErrTransport, err)
	}
	return data, nil
}

var _ Messenger = (*Bridge)(nil)
