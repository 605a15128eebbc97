// Package notifications renders the chat messages sent to claimants and operators.
package notifications

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/xeonx/timeago"

	"github.com/goatkit/warrantyflow/internal/models"
	"github.com/goatkit/warrantyflow/internal/transport"
	"github.com/goatkit/warrantyflow/internal/warranty"
)

// Shop holds the identity values interpolated into claimant guidance.
type Shop struct {
	OwnerMention string
	Domain       string
	VouchChannel string
}

// VouchTemplate is the message a claimant should post to vouch for order.
func (s Shop) VouchTemplate(order models.Order) string {
	return fmt.Sprintf("+rep %s %s %dx %s", s.OwnerMention, order.ProductTitle, order.Quantity, FormatDollars(order.TotalPrice))
}

// ReviewURL is the invoice page where the claimant leaves a review.
func (s Shop) ReviewURL(orderID string) string {
	return "https://" + strings.TrimSuffix(strings.TrimPrefix(s.Domain, "https://"), "/") + "/invoice/" + orderID
}

const timestampLayout = "2006-01-02 15:04:05"

// Assessment renders the claimant-facing result of an evaluation.
func (s Shop) Assessment(a *warranty.Assessment) transport.Notification {
	order := a.Order
	data := pongo2.Context{
		"order_id":      order.ID,
		"product":       order.ProductTitle,
		"vouch":         s.VouchTemplate(order),
		"vouch_channel": s.VouchChannel,
		"review_url":    s.ReviewURL(order.ID),
		"completed_at":  order.CreatedAt.UTC().Format(timestampLayout),
	}
	if a.Duration != nil {
		data["duration"] = a.Duration.String()
	}
	if a.WarrantyEnd != nil {
		data["warranty_end"] = a.WarrantyEnd.UTC().Format(timestampLayout)
		data["remaining"] = timeago.English.FormatReference(*a.WarrantyEnd, a.EvaluatedAt)
	}

	n := transport.Notification{Error: true}
	switch a.Outcome {
	case warranty.OutcomePolicyMissing:
		n.Title, n.Body = "Error", render(tplPolicyMissing, data)
	case warranty.OutcomeExpired:
		n.Title, n.Body = "Warranty Expired", render(tplExpired, data)
	case warranty.OutcomeNeedsBoth:
		n.Title, n.Body = "Action Required", render(tplNeedsBoth, data)
	case warranty.OutcomeNeedsEndorsementOnly:
		n.Title, n.Body = "Vouch Required", render(tplNeedsEndorsement, data)
	case warranty.OutcomeNeedsReviewOnly:
		n.Title, n.Body = "Review Required", render(tplNeedsReview, data)
	default:
		n.Title, n.Body, n.Error = "Warranty Active", render(tplEligible, data), false
	}
	return n
}

// TicketSummary is the first message posted into a new ticket channel.
func TicketSummary(t models.Ticket, operatorID string) transport.Notification {
	claimant := t.ClaimantName
	if claimant == "" {
		claimant = t.ClaimantID
	}
	n := transport.Notification{
		Title: "Replacement Request",
		Body:  render(tplTicketSummary, pongo2.Context{"order_id": t.OrderID, "claimant": claimant}),
		Fields: []transport.Field{
			{Name: "Product", Value: t.ProductTitle},
			{Name: "Quantity", Value: strconv.Itoa(t.Quantity) + "x"},
			{Name: "Total Price", Value: FormatPrice(t.TotalPrice, t.Currency)},
			{Name: "Ordered", Value: t.OrderedAt.UTC().Format(timestampLayout)},
		},
	}
	if operatorID != "" {
		n.Mentions = []string{operatorID}
	}
	return n
}

// Transcript wraps an exported transcript for delivery.
func Transcript(channelName string, data []byte) transport.Notification {
	return transport.Notification{
		Title:       "Ticket Closed",
		Body:        render(tplTranscript, pongo2.Context{"channel": channelName}),
		Attachments: []transport.Attachment{{Name: channelName + "_transcript.html", Data: data}},
	}
}

// Replacement renders the direct message carrying replacement goods. With
// stock lines each line becomes a field; otherwise content is sent as given.
func Replacement(product string, lines []string, content string) transport.Notification {
	if len(lines) > 0 {
		n := transport.Notification{
			Title: "Replacement Order",
			Body:  render(tplReplacementStock, pongo2.Context{"amount": strconv.Itoa(len(lines)), "product": product}),
		}
		for _, l := range lines {
			n.Fields = append(n.Fields, transport.Field{Name: "Replacement", Value: l})
		}
		return n
	}
	details := strings.TrimSpace(content)
	if details == "" {
		details = "No specific replacement details provided."
	}
	return transport.Notification{
		Title:  "Replacement Order",
		Body:   render(tplReplacementContent, pongo2.Context{"product": product}),
		Fields: []transport.Field{{Name: "Replacement Details", Value: details}},
	}
}

// WarrantyEndRelative describes end relative to now, e.g. "in 3 months".
func WarrantyEndRelative(end, now time.Time) string {
	return timeago.English.FormatReference(end, now)
}
