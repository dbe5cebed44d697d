package subscriptions

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
)

var (
	ErrMissingFields = errors.New("missing required fields")
	ErrInvalidPrice  = errors.New("price must be non-negative")
)

// Service wraps repository operations with validation and analytics.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(r Repository) *Service {
	return &Service{repo: r, now: time.Now}
}

// CreateInput carries the client-supplied fields of a new subscription.
type CreateInput struct {
	Name            string
	Price           float64
	NextPaymentDate time.Time
	Color           string
	Category        string
	BillingCycle    string
	Description     string
	Notes           string
	PaymentMethod   string
}

// Create validates mandatory fields and persists the subscription scoped to
// the owning user.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*Subscription, error) {
	if in.Name == "" || in.NextPaymentDate.IsZero() || in.Category == "" ||
		in.BillingCycle == "" || in.PaymentMethod == "" || in.Price == 0 {
		return nil, ErrMissingFields
	}
	if in.Price < 0 {
		return nil, ErrInvalidPrice
	}
	color := in.Color
	if color == "" {
		color = defaultColor
	}
	sub := &Subscription{
		UserID:          userID,
		Name:            in.Name,
		Price:           in.Price,
		NextPaymentDate: in.NextPaymentDate,
		Color:           color,
		Category:        in.Category,
		BillingCycle:    strings.ToLower(in.BillingCycle),
		Description:     in.Description,
		Notes:           in.Notes,
		PaymentMethod:   in.PaymentMethod,
	}
	if err := s.repo.Insert(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// List returns the user's subscriptions, earliest next payment first.
func (s *Service) List(ctx context.Context, userID string) ([]*Subscription, error) {
	return s.repo.ListByUser(ctx, userID)
}

// monthlyEquivalent normalizes a price to an average monthly cost. Every
// subscription is counted in every month regardless of its due date.
func monthlyEquivalent(sub *Subscription) float64 {
	switch sub.BillingCycle {
	case CycleMonthly:
		return sub.Price
	case CycleYearly:
		return sub.Price / 12
	case CycleWeekly:
		return sub.Price * 4.33
	default:
		// custom or unrecognized cycles count at face value
		return sub.Price
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Analytics computes the current month's total monthly-equivalent spend and
// the per-category breakdown. Buckets appear in first-encounter order; empty
// categories fold into "Other".
func (s *Service) Analytics(ctx context.Context, userID string) (*Analytics, error) {
	subs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	total := 0.0
	amounts := map[string]float64{}
	order := []string{}
	for _, sub := range subs {
		amount := monthlyEquivalent(sub)
		total += amount

		cat := sub.Category
		if cat == "" {
			cat = "Other"
		}
		if _, seen := amounts[cat]; !seen {
			order = append(order, cat)
		}
		amounts[cat] += amount
	}

	dist := make([]CategorySpend, 0, len(order))
	for _, cat := range order {
		dist = append(dist, CategorySpend{Category: cat, Amount: round2(amounts[cat])})
	}

	now := s.now()
	return &Analytics{
		Month:                int(now.Month()),
		Year:                 now.Year(),
		Total:                round2(total),
		CategoryDistribution: dist,
	}, nil
}
