package warranty

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goatkit/warrantyflow/internal/models"
	"github.com/goatkit/warrantyflow/internal/transport"
)

const (
	// EndorsementWindow is how many recent vouch-channel messages are scanned.
	EndorsementWindow = 1000
	// PriceToleranceCents is the accepted absolute drift between a vouch price and the order total.
	PriceToleranceCents = 100
	// MinSharedTitleWords is how many distinct title words a vouch must repeat.
	MinSharedTitleWords = 2
)

var claimedPricePattern = regexp.MustCompile(`\$(\d+)(?:\.(\d{1,2}))?`)

// Endorsement is the vouch message accepted as evidence.
type Endorsement struct {
	MessageID    string   `json:"message_id"`
	AuthorID     string   `json:"author_id"`
	ClaimedCents int64    `json:"claimed_cents"`
	SharedWords  []string `json:"shared_words"`
}

// ClaimedPrice returns the vouched price in currency units.
func (e Endorsement) ClaimedPrice() float64 {
	return float64(e.ClaimedCents) / 100
}

// EvidenceContext is built per evaluation and never persisted.
type EvidenceContext struct {
	Endorsement     *Endorsement `json:"endorsement,omitempty"`
	ReviewSatisfied bool         `json:"review_satisfied"`
}

// Endorsed reports whether a qualifying vouch was found.
func (e EvidenceContext) Endorsed() bool {
	return e.Endorsement != nil
}

// FeedbackSource lists storefront reviews.
type FeedbackSource interface {
	ListFeedback(ctx context.Context) ([]models.Feedback, error)
}

// Matcher gathers endorsement and review evidence for an order.
type Matcher struct {
	history        transport.HistoryReader
	feedback       FeedbackSource
	vouchChannelID string
	ownerMention   string
}

// NewMatcher builds a matcher reading vouches from vouchChannelID. ownerMention is
// the token a vouch must contain to count, e.g. "<@1234>".
func NewMatcher(history transport.HistoryReader, feedback FeedbackSource, vouchChannelID, ownerMention string) *Matcher {
	return &Matcher{
		history:        history,
		feedback:       feedback,
		vouchChannelID: vouchChannelID,
		ownerMention:   ownerMention,
	}
}

// Collect fetches both evidence sources. Either fetch failing fails the evaluation.
func (m *Matcher) Collect(ctx context.Context, order models.Order, claimantID string) (EvidenceContext, error) {
	var evidence EvidenceContext

	messages, err := m.history.History(ctx, m.vouchChannelID, EndorsementWindow)
	if err != nil {
		return evidence, fmt.Errorf("%w: read vouch history: %v", models.ErrTransport, err)
	}
	if e, ok := MatchEndorsement(messages, claimantID, m.ownerMention, order); ok {
		evidence.Endorsement = e
	}

	feedback, err := m.feedback.ListFeedback(ctx)
	if err != nil {
		return evidence, fmt.Errorf("list feedback: %w", err)
	}
	evidence.ReviewSatisfied = HasFiveStarReview(feedback, order.ID)
	return evidence, nil
}

// MatchEndorsement returns the first message, in the given order, that is a
// qualifying vouch by claimantID for order. Only the first EndorsementWindow
// messages are considered.
func MatchEndorsement(messages []transport.Message, claimantID, ownerMention string, order models.Order) (*Endorsement, bool) {
	if len(messages) > EndorsementWindow {
		messages = messages[:EndorsementWindow]
	}
	total := order.TotalCents()
	titleWords := distinctWords(order.ProductTitle)

	for _, msg := range messages {
		if msg.AuthorID != claimantID || !strings.Contains(msg.Content, ownerMention) {
			continue
		}
		content := strings.ToLower(msg.Content)
		claimed, ok := ParseClaimedCents(content)
		if !ok || !withinTolerance(claimed, total) {
			continue
		}
		shared := sharedWords(titleWords, content)
		if len(shared) < MinSharedTitleWords {
			continue
		}
		return &Endorsement{
			MessageID:    msg.ID,
			AuthorID:     msg.AuthorID,
			ClaimedCents: claimed,
			SharedWords:  shared,
		}, true
	}
	return nil, false
}

// ParseClaimedCents extracts the first "$<digits>[.<1-2 digits>]" amount in cents.
func ParseClaimedCents(content string) (int64, bool) {
	m := claimedPricePattern.FindStringSubmatch(content)
	if m == nil {
		return 0, false
	}
	whole, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || whole > 1<<40 {
		return 0, false
	}
	var frac int64
	switch len(m[2]) {
	case 1:
		frac = int64(m[2][0]-'0') * 10
	case 2:
		frac = int64(m[2][0]-'0')*10 + int64(m[2][1]-'0')
	}
	return whole*100 + frac, true
}

// HasFiveStarReview reports whether feedback contains a top score for orderID.
func HasFiveStarReview(feedback []models.Feedback, orderID string) bool {
	for _, f := range feedback {
		if f.InvoiceID == orderID && f.Score == models.MaxFeedbackScore {
			return true
		}
	}
	return false
}

func withinTolerance(claimed, total int64) bool {
	diff := claimed - total
	if diff < 0 {
		diff = -diff
	}
	return diff <= PriceToleranceCents
}

func distinctWords(s string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// sharedWords counts each title word once. A title that repeats a word, such as
// "Netflix Netflix Bundle", needs two different words in the vouch; a per
// occurrence count would accept "netflix" alone.
func sharedWords(titleWords []string, content string) []string {
	present := make(map[string]struct{})
	for _, w := range strings.Fields(content) {
		present[w] = struct{}{}
	}
	var shared []string
	for _, w := range titleWords {
		if _, ok := present[w]; ok {
			shared = append(shared, w)
		}
	}
	return shared
}
