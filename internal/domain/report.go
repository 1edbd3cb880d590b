package domain

import (
	"time"

	"github.com/google/uuid"
)

// Skip reasons recorded in a run report.
const (
	SkipNoActivity = "no activity"
	SkipTimeout    = "timeout"
)

// ItemFailure records a per-product failure inside a batch run.
type ItemFailure struct {
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
	Error     string    `json:"error"`
}

// ItemSkip records a product the batch run did not evaluate.
type ItemSkip struct {
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
	Reason    string    `json:"reason"`
}

// CategoryCounts tallies recommendations by action category.
type CategoryCounts struct {
	OrderToday        int `json:"order_today"`
	AlreadyOrdered    int `json:"already_ordered"`
	AttentionRequired int `json:"attention_required"`
	Normal            int `json:"normal"`
}

// Add bumps the counter for a category.
func (c *CategoryCounts) Add(cat ActionCategory) {
	switch cat {
	case ActionOrderToday:
		c.OrderToday++
	case ActionAlreadyOrdered:
		c.AlreadyOrdered++
	case ActionAttentionRequired:
		c.AttentionRequired++
	default:
		c.Normal++
	}
}

// RunReport summarizes one daily batch run for a tenant.
type RunReport struct {
	TenantID   uuid.UUID      `json:"tenant_id"`
	AsOfDate   time.Time      `json:"as_of_date"`
	Total      int            `json:"total"`
	Succeeded  int            `json:"succeeded"`
	Failed     []ItemFailure  `json:"failed"`
	Skipped    []ItemSkip     `json:"skipped"`
	Categories CategoryCounts `json:"categories"`
	StartedAt  time.Time      `json:"started_at"`
	Duration   time.Duration  `json:"duration"`
}
