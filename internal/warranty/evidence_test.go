package warranty

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goatkit/warrantyflow/internal/models"
	"github.com/goatkit/warrantyflow/internal/transport"
)

const (
	testOwner    = "<@900>"
	testClaimant = "user-1"
)

func vouch(id, author, content string) transport.Message {
	return transport.Message{ID: id, ChannelID: "vouches", AuthorID: author, Content: content}
}

func netflixOrder(total float64) models.Order {
	return models.Order{
		ID:           "ord-1",
		ProductTitle: "Netflix Premium 6m",
		Quantity:     1,
		TotalPrice:   total,
	}
}

func TestMatchEndorsementAcceptsQualifyingVouch(t *testing.T) {
	msgs := []transport.Message{
		vouch("m1", testClaimant, "+rep <@900> Netflix Premium 6m 1x $20"),
	}

	e, ok := MatchEndorsement(msgs, testClaimant, testOwner, netflixOrder(20))
	require.True(t, ok)
	assert.Equal(t, "m1", e.MessageID)
	assert.Equal(t, int64(2000), e.ClaimedCents)
	assert.ElementsMatch(t, []string{"netflix", "premium", "6m"}, e.SharedWords)
}

func TestMatchEndorsementRejections(t *testing.T) {
	order := netflixOrder(20)
	tests := []struct {
		name string
		msg  transport.Message
	}{
		{name: "other author", msg: vouch("m", "user-2", "+rep <@900> netflix premium $20")},
		{name: "no owner mention", msg: vouch("m", testClaimant, "+rep netflix premium $20")},
		{name: "no price", msg: vouch("m", testClaimant, "+rep <@900> netflix premium 20 dollars")},
		{name: "price too far", msg: vouch("m", testClaimant, "+rep <@900> netflix premium $25")},
		{name: "one shared word", msg: vouch("m", testClaimant, "+rep <@900> netflix $20")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := MatchEndorsement([]transport.Message{tt.msg}, testClaimant, testOwner, order)
			assert.False(t, ok)
		})
	}
}

func TestMatchEndorsementPriceToleranceBoundary(t *testing.T) {
	for _, total := range []float64{0, 0.1, 1, 19.99, 20, 149.5, 1000.01} {
		cents := models.Order{TotalPrice: total}.TotalCents()
		atLimit := fmt.Sprintf("$%d.%02d", (cents+100)/100, (cents+100)%100)
		overLimit := fmt.Sprintf("$%d.%02d", (cents+101)/100, (cents+101)%100)

		order := netflixOrder(total)
		_, ok := MatchEndorsement([]transport.Message{
			vouch("m", testClaimant, "<@900> netflix premium "+atLimit),
		}, testClaimant, testOwner, order)
		assert.True(t, ok, "total %.2f with %s", total, atLimit)

		_, ok = MatchEndorsement([]transport.Message{
			vouch("m", testClaimant, "<@900> netflix premium "+overLimit),
		}, testClaimant, testOwner, order)
		assert.False(t, ok, "total %.2f with %s", total, overLimit)
	}
}

func TestMatchEndorsementSharedWordBoundary(t *testing.T) {
	titles := []string{"Netflix Premium 6m", "Disney Plus Family Plan", "Canva Pro Lifetime Team"}
	for _, title := range titles {
		words := distinctWords(title)
		order := models.Order{ID: "o", ProductTitle: title, TotalPrice: 5}

		one := fmt.Sprintf("<@900> %s $5", words[0])
		_, ok := MatchEndorsement([]transport.Message{vouch("m", testClaimant, one)}, testClaimant, testOwner, order)
		assert.False(t, ok, one)

		two := fmt.Sprintf("<@900> %s %s $5", words[0], words[1])
		_, ok = MatchEndorsement([]transport.Message{vouch("m", testClaimant, two)}, testClaimant, testOwner, order)
		assert.True(t, ok, two)
	}
}

func TestMatchEndorsementDuplicateTitleWordCountsOnce(t *testing.T) {
	order := models.Order{ID: "o", ProductTitle: "Netflix Netflix Bundle", TotalPrice: 5}
	_, ok := MatchEndorsement([]transport.Message{
		vouch("m", testClaimant, "<@900> netflix $5"),
	}, testClaimant, testOwner, order)
	assert.False(t, ok)
}

func TestMatchEndorsementStopsAtFirstQualifying(t *testing.T) {
	msgs := []transport.Message{
		vouch("bad", testClaimant, "<@900> hello $20"),
		vouch("first", testClaimant, "<@900> netflix premium $20"),
		vouch("second", testClaimant, "<@900> netflix premium $20.50"),
	}
	e, ok := MatchEndorsement(msgs, testClaimant, testOwner, netflixOrder(20))
	require.True(t, ok)
	assert.Equal(t, "first", e.MessageID)
}

func TestMatchEndorsementHonoursWindow(t *testing.T) {
	msgs := make([]transport.Message, EndorsementWindow+1)
	for i := range msgs {
		msgs[i] = vouch(fmt.Sprint(i), "someone-else", "noise")
	}
	msgs[EndorsementWindow] = vouch("late", testClaimant, "<@900> netflix premium $20")

	_, ok := MatchEndorsement(msgs, testClaimant, testOwner, netflixOrder(20))
	assert.False(t, ok)
}

func TestParseClaimedCents(t *testing.T) {
	tests := map[string]int64{
		"$20":        2000,
		"paid $20.5": 2050,
		"$19.99 ok":  1999,
		"$0.01":      1,
		"$7.123":     712,
	}
	for in, want := range tests {
		got, ok := ParseClaimedCents(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseClaimedCents("twenty bucks")
	assert.False(t, ok)
}

func TestHasFiveStarReview(t *testing.T) {
	feedback := []models.Feedback{
		{InvoiceID: "ord-1", Score: 4},
		{InvoiceID: "ord-2", Score: 5},
	}
	assert.False(t, HasFiveStarReview(feedback, "ord-1"))
	assert.True(t, HasFiveStarReview(feedback, "ord-2"))
	assert.False(t, HasFiveStarReview(feedback, "ord-3"))
}

type stubHistory struct {
	messages []transport.Message
	err      error
	limit    int
	channel  string
}

func (s *stubHistory) History(ctx context.Context, channelID string, limit int) ([]transport.Message, error) {
	s.channel = channelID
	s.limit = limit
	return s.messages, s.err
}

type stubFeedback struct {
	feedback []models.Feedback
	err      error
}

func (s *stubFeedback) ListFeedback(ctx context.Context) ([]models.Feedback, error) {
	return s.feedback, s.err
}

func TestMatcherCollect(t *testing.T) {
	history := &stubHistory{messages: []transport.Message{
		vouch("m1", testClaimant, "<@900> netflix premium $20"),
	}}
	feedback := &stubFeedback{feedback: []models.Feedback{{InvoiceID: "ord-1", Score: 5}}}
	m := NewMatcher(history, feedback, "vouches", testOwner)

	evidence, err := m.Collect(context.Background(), netflixOrder(20), testClaimant)
	require.NoError(t, err)
	assert.True(t, evidence.Endorsed())
	assert.True(t, evidence.ReviewSatisfied)
	assert.Equal(t, "vouches", history.channel)
	assert.Equal(t, EndorsementWindow, history.limit)
}

func TestMatcherCollectSurfacesFailures(t *testing.T) {
	m := NewMatcher(&stubHistory{err: errors.New("missing access")}, &stubFeedback{}, "vouches", testOwner)
	_, err := m.Collect(context.Background(), netflixOrder(20), testClaimant)
	require.ErrorIs(t, err, models.ErrTransport)

	upstream := fmt.Errorf("%w: status 500", models.ErrUpstream)
	m = NewMatcher(&stubHistory{}, &stubFeedback{err: upstream}, "vouches", testOwner)
	_, err = m.Collect(context.Background(), netflixOrder(20), testClaimant)
	require.ErrorIs(t, err, models.ErrUpstream)
}
