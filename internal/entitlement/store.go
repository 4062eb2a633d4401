// Package entitlement holds per-customer access state driven by verified
// payment events.
package entitlement

import (
	"context"
	"errors"
	"time"
)

// Status mirrors the provider's subscription status, plus StatusNone for a
// customer that has never been granted anything.
type Status string

const (
	StatusNone            Status = ""
	StatusTrialing        Status = "trialing"
	StatusActive          Status = "active"
	StatusPastDue         Status = "past_due"
	StatusScheduledCancel Status = "scheduled_cancel"
	StatusPaused          Status = "paused"
	StatusCanceled        Status = "canceled"
	StatusExpired         Status = "expired"
)

// Outcome reports what Apply did with a mutation.
type Outcome string

const (
	// OutcomeApplied means the entitlement changed.
	OutcomeApplied Outcome = "applied"
	// OutcomeUnchanged means the entitlement already had the target state.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeStale means a newer event was already applied; nothing changed.
	OutcomeStale Outcome = "stale"
)

var (
	// ErrNotFound is returned by Get for an unknown customer.
	ErrNotFound = errors.New("entitlement: not found")
	// ErrMissingCustomer is returned by Apply when the mutation has no customer ID.
	ErrMissingCustomer = errors.New("entitlement: mutation has no customer id")
)

// Entitlement is the access state of one customer.
type Entitlement struct {
	CustomerID     string     `json:"customer_id"`
	Email          string     `json:"email,omitempty"`
	UserID         string     `json:"user_id,omitempty"`
	SubscriptionID string     `json:"subscription_id,omitempty"`
	ProductID      string     `json:"product_id,omitempty"`
	Status         Status     `json:"status"`
	HasAccess      bool       `json:"has_access"`
	AccessUntil    *time.Time `json:"access_until,omitempty"`
	LastEventID    string     `json:"last_event_id,omitempty"`
	LastEventAt    time.Time  `json:"last_event_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Mutation is the declarative target state produced by one event.
//
// Status, HasAccess and AccessUntil always replace the stored values. The
// identity fields (Email, UserID, SubscriptionID, ProductID) only replace
// stored values when non-empty, since not every event carries them.
type Mutation struct {
	CustomerID     string
	EventID        string
	EventAt        time.Time
	Status         Status
	HasAccess      bool
	AccessUntil    *time.Time
	Email          string
	UserID         string
	SubscriptionID string
	ProductID      string
}

// Change describes an applied mutation. Before is the zero Entitlement when
// the customer was new.
type Change struct {
	Before   Entitlement
	After    Entitlement
	Mutation Mutation
}

// Store is the entitlement state container.
//
// Apply must be idempotent: applying the same Mutation twice leaves the same
// state and the second call reports OutcomeUnchanged. A mutation whose
// EventAt is older than the stored LastEventAt reports OutcomeStale; a zero
// EventAt counts as older once any timestamped event has been applied.
// Subscribers are notified only for OutcomeApplied.
type Store interface {
	Apply(ctx context.Context, m Mutation) (Entitlement, Outcome, error)
	Get(ctx context.Context, customerID string) (Entitlement, error)
	Subscribe(fn func(Change)) (cancel func())
}
