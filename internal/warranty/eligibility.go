package warranty

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goatkit/warrantyflow/internal/models"
)

// Outcome is the result of an eligibility evaluation.
type Outcome string

const (
	OutcomePolicyMissing        Outcome = "policy_missing"
	OutcomeExpired              Outcome = "expired"
	OutcomeNeedsBoth            Outcome = "needs_endorsement_and_review"
	OutcomeNeedsEndorsementOnly Outcome = "needs_endorsement"
	OutcomeNeedsReviewOnly      Outcome = "needs_review"
	OutcomeEligible             Outcome = "eligible"
)

// Outcomes lists every outcome, in precedence order.
var Outcomes = []Outcome{
	OutcomePolicyMissing,
	OutcomeExpired,
	OutcomeNeedsBoth,
	OutcomeNeedsEndorsementOnly,
	OutcomeNeedsReviewOnly,
	OutcomeEligible,
}

// Decide maps a resolved duration, the order completion time and the evidence to
// an outcome. Expiry wins over evidence; now == end is still covered.
func Decide(duration models.Duration, resolved bool, completedAt, now time.Time, evidence EvidenceContext) Outcome {
	if !resolved || !duration.Valid() {
		return OutcomePolicyMissing
	}
	if now.UTC().After(duration.End(completedAt)) {
		return OutcomeExpired
	}
	switch {
	case !evidence.Endorsed() && !evidence.ReviewSatisfied:
		return OutcomeNeedsBoth
	case !evidence.Endorsed():
		return OutcomeNeedsEndorsementOnly
	case !evidence.ReviewSatisfied:
		return OutcomeNeedsReviewOnly
	}
	return OutcomeEligible
}

// Claim is a request to evaluate coverage for an order.
type Claim struct {
	OrderID  string          `json:"order_id"`
	Email    string          `json:"email"`
	Claimant models.Claimant `json:"claimant"`
}

// Assessment is the full evaluation result.
type Assessment struct {
	Order       models.Order     `json:"order"`
	Duration    *models.Duration `json:"duration,omitempty"`
	WarrantyEnd *time.Time       `json:"warranty_end,omitempty"`
	Evidence    EvidenceContext  `json:"evidence"`
	Outcome     Outcome          `json:"outcome"`
	EvaluatedAt time.Time        `json:"evaluated_at"`
}

// Eligible reports whether a replacement may be opened.
func (a *Assessment) Eligible() bool {
	return a != nil && a.Outcome == OutcomeEligible
}

// IneligibleError is returned when a claim does not qualify for a ticket.
type IneligibleError struct {
	Assessment *Assessment
}

func (e *IneligibleError) Error() string {
	return fmt.Sprintf("order %s: %s", e.Assessment.Order.ID, e.Assessment.Outcome)
}

// Unwrap classifies the failure for errors.Is.
func (e *IneligibleError) Unwrap() error {
	if e.Assessment.Outcome == OutcomePolicyMissing {
		return models.ErrPolicyMissing
	}
	return models.ErrNotEligible
}

// AsIneligible extracts an IneligibleError from err.
func AsIneligible(err error) (*IneligibleError, bool) {
	var ie *IneligibleError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// OrderSource fetches orders from the storefront.
type OrderSource interface {
	GetOrder(ctx context.Context, id string) (*models.Order, error)
}

// PolicyLookup resolves a stored policy by product id.
type PolicyLookup interface {
	Get(ctx context.Context, productID string) (*models.WarrantyPolicy, error)
}

// EvidenceCollector gathers vouch and review evidence.
type EvidenceCollector interface {
	Collect(ctx context.Context, order models.Order, claimantID string) (EvidenceContext, error)
}

// Evaluator combines order data, policy and evidence into an Assessment.
type Evaluator struct {
	orders   OrderSource
	policies PolicyLookup
	evidence EvidenceCollector
	now      func() time.Time
}

// NewEvaluator wires an evaluator. now defaults to time.Now.
func NewEvaluator(orders OrderSource, policies PolicyLookup, evidence EvidenceCollector, now func() time.Time) *Evaluator {
	if now == nil {
		now = time.Now
	}
	return &Evaluator{orders: orders, policies: policies, evidence: evidence, now: now}
}

// Evaluate runs the full claim evaluation. Domain failures (unknown order, email
// mismatch, upstream/transport errors) are returned as errors; every other case
// yields an Assessment.
func (e *Evaluator) Evaluate(ctx context.Context, claim Claim) (*Assessment, error) {
	order, err := e.fetch(ctx, claim.OrderID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimSpace(claim.Email), strings.TrimSpace(order.CustomerEmail)) {
		return nil, fmt.Errorf("%w: order %s", models.ErrAuthMismatch, order.ID)
	}
	return e.assess(ctx, *order, claim.Claimant.ID)
}

// Check evaluates orderID for claimantID without verifying the purchaser email.
// It backs operator-initiated checks.
func (e *Evaluator) Check(ctx context.Context, orderID, claimantID string) (*Assessment, error) {
	order, err := e.fetch(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return e.assess(ctx, *order, claimantID)
}

func (e *Evaluator) fetch(ctx context.Context, orderID string) (*models.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", models.ErrInvalidInput)
	}
	return e.orders.GetOrder(ctx, orderID)
}

func (e *Evaluator) assess(ctx context.Context, order models.Order, claimantID string) (*Assessment, error) {
	now := e.now().UTC()
	a := &Assessment{Order: order, EvaluatedAt: now}

	duration, resolved, err := e.resolveDuration(ctx, order)
	if err != nil {
		return nil, err
	}
	if resolved {
		end := duration.End(order.CreatedAt)
		a.Duration = &duration
		a.WarrantyEnd = &end
	}

	a.Outcome = Decide(duration, resolved, order.CreatedAt, now, EvidenceContext{})
	if a.Outcome == OutcomePolicyMissing || a.Outcome == OutcomeExpired {
		return a, nil
	}

	evidence, err := e.evidence.Collect(ctx, order, claimantID)
	if err != nil {
		return nil, err
	}
	a.Evidence = evidence
	a.Outcome = Decide(duration, resolved, order.CreatedAt, now, evidence)
	return a, nil
}

// resolveDuration prefers the stored policy so operator overrides stick, then
// falls back to parsing the order's product title.
func (e *Evaluator) resolveDuration(ctx context.Context, order models.Order) (models.Duration, bool, error) {
	if e.policies != nil && order.ProductID != "" {
		policy, err := e.policies.Get(ctx, order.ProductID)
		switch {
		case err == nil && policy.Duration.Valid():
			return policy.Duration, true, nil
		case err != nil && !errors.Is(err, models.ErrNotFound):
			return models.Duration{}, false, err
		}
	}
	d, ok := ParseTitle(order.ProductTitle)
	return d, ok, nil
}
