package subscriptions

import "time"

// Billing cycles understood by the analytics normalization. Anything else is
// treated as a custom cycle and counted at face value.
const (
	CycleMonthly = "monthly"
	CycleYearly  = "yearly"
	CycleWeekly  = "weekly"
)

const defaultColor = "#6366f1"

// Subscription is a recurring charge owned by exactly one user.
type Subscription struct {
	ID              string    `bson:"_id,omitempty" json:"id"`
	UserID          string    `bson:"user" json:"user"`
	Name            string    `bson:"name" json:"name"`
	Price           float64   `bson:"price" json:"price"`
	NextPaymentDate time.Time `bson:"nextPaymentDate" json:"nextPaymentDate"`
	Color           string    `bson:"color" json:"color"`
	Category        string    `bson:"category" json:"category"`
	BillingCycle    string    `bson:"billingCycle" json:"billingCycle"`
	Description     string    `bson:"description,omitempty" json:"description,omitempty"`
	Notes           string    `bson:"notes,omitempty" json:"notes,omitempty"`
	PaymentMethod   string    `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt" json:"updatedAt"`
}

// CategorySpend is one bar of the per-category breakdown.
type CategorySpend struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// Analytics is the dashboard aggregate for the current month.
type Analytics struct {
	Month                int             `json:"month"`
	Year                 int             `json:"year"`
	Total                float64         `json:"total"`
	CategoryDistribution []CategorySpend `json:"categoryDistribution"`
}
