package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"quill/internal/creem"
)

// AccessHandler turns verified webhook events into entitlement mutations.
//
//	checkout.completed            grant, active, link request_id
//	subscription.paid             grant, active, access until period end
//	subscription.active           none (sync only)
//	subscription.canceled         revoke, canceled
//	subscription.scheduled_cancel keep access until period end
//	subscription.past_due         keep access, past_due
//	subscription.expired          revoke, expired
//	subscription.trialing         grant trial access
//	subscription.paused           suspend
//	subscription.update           none
//
// Every mutation is a target state, so redelivered events are harmless.
type AccessHandler struct {
	store  Store
	logger *slog.Logger
}

var _ creem.Handler = (*AccessHandler)(nil)

// NewAccessHandler creates an AccessHandler backed by store.
func NewAccessHandler(store Store, logger *slog.Logger) *AccessHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccessHandler{store: store, logger: logger}
}

// CheckoutCompleted grants access and links the app user from request_id.
func (h *AccessHandler) CheckoutCompleted(ctx context.Context, e *creem.CheckoutCompleted) error {
	c := e.Checkout
	m := Mutation{
		CustomerID: checkoutCustomerID(c),
		EventID:    e.ID,
		EventAt:    e.CreatedAt,
		Status:     StatusActive,
		HasAccess:  true,
		UserID:     c.RequestID,
	}
	if c.Customer != nil {
		m.Email = c.Customer.Email
	}
	if c.Product != nil {
		m.ProductID = c.Product.ID
	}
	if c.Subscription != nil {
		m.SubscriptionID = c.Subscription.ID
		m.AccessUntil = c.Subscription.CurrentPeriodEndDate
	}

	h.logger.InfoContext(ctx, "checkout completed",
		"event_id", e.ID,
		"checkout_id", c.ID,
		"request_id", c.RequestID,
		"customer_id", m.CustomerID,
		"subscription_id", m.SubscriptionID,
	)
	return h.apply(ctx, e.Type, m)
}

// SubscriptionPaid is the authoritative grant.
func (h *AccessHandler) SubscriptionPaid(ctx context.Context, e *creem.SubscriptionPaid) error {
	s := e.Subscription
	h.logger.InfoContext(ctx, "subscription paid",
		"event_id", e.ID,
		"subscription_id", s.ID,
		"customer_id", s.Customer.ID,
		"next_billing", formatTime(s.NextTransactionDate),
	)
	return h.apply(ctx, e.Type, subscriptionMutation(e.EventMeta, s, StatusActive, true, s.CurrentPeriodEndDate))
}

// SubscriptionActive changes nothing; access is granted on subscription.paid.
func (h *AccessHandler) SubscriptionActive(ctx context.Context, e *creem.SubscriptionActive) error {
	h.logger.InfoContext(ctx, "subscription active (sync only)",
		"event_id", e.ID,
		"subscription_id", e.Subscription.ID,
	)
	return nil
}

// SubscriptionCanceled revokes access.
func (h *AccessHandler) SubscriptionCanceled(ctx context.Context, e *creem.SubscriptionCanceled) error {
	s := e.Subscription
	h.logger.InfoContext(ctx, "subscription canceled",
		"event_id", e.ID,
		"subscription_id", s.ID,
		"customer_id", s.Customer.ID,
		"canceled_at", formatTime(s.CanceledAt),
	)
	return h.apply(ctx, e.Type, subscriptionMutation(e.EventMeta, s, StatusCanceled, false, nil))
}

// SubscriptionScheduledCancel keeps access until the end of the paid period.
func (h *AccessHandler) SubscriptionScheduledCancel(ctx context.Context, e *creem.SubscriptionScheduledCancel) error {
	s := e.Subscription
	h.logger.InfoContext(ctx, "subscription scheduled to cancel",
		"event_id", e.ID,
		"subscription_id", s.ID,
		"access_until", formatTime(s.CurrentPeriodEndDate),
	)
	return h.apply(ctx, e.Type, subscriptionMutation(e.EventMeta, s, StatusScheduledCancel, true, s.CurrentPeriodEndDate))
}

// SubscriptionPastDue keeps access while the provider retries the payment.
func (h *AccessHandler) SubscriptionPastDue(ctx context.Context, e *creem.SubscriptionPastDue) error {
	s := e.Subscription
	h.logger.WarnContext(ctx, "subscription past due",
		"event_id", e.ID,
		"subscription_id", s.ID,
		"status", string(s.Status),
	)
	return h.apply(ctx, e.Type, subscriptionMutation(e.EventMeta, s, StatusPastDue, true, s.CurrentPeriodEndDate))
}

// SubscriptionExpired revokes access.
func (h *AccessHandler) SubscriptionExpired(ctx context.Context, e *creem.SubscriptionExpired) error {
	s := e.Subscription
	h.logger.InfoContext(ctx, "subscription expired",
		"event_id", e.ID,
		"subscription_id", s.ID,
	)
	return h.apply(ctx, e.Type, subscriptionMutation(e.EventMeta, s, StatusExpired, false, nil))
}

// SubscriptionTrialing grants trial access until the trial ends.
func (h *AccessHandler) SubscriptionTrialing(ctx context.Context, e *creem.SubscriptionTrialing) error {
	s := e.Subscription
	h.logger.InfoContext(ctx, "subscription trialing",
		"event_id", e.ID,
		"subscription_id", s.ID,
		"trial_ends", formatTime(s.CurrentPeriodEndDate),
	)
	return h.apply(ctx, e.Type, subscriptionMutation(e.EventMeta, s, StatusTrialing, true, s.CurrentPeriodEndDate))
}

// SubscriptionPaused suspends access without canceling.
func (h *AccessHandler) SubscriptionPaused(ctx context.Context, e *creem.SubscriptionPaused) error {
	s := e.Subscription
	h.logger.InfoContext(ctx, "subscription paused",
		"event_id", e.ID,
		"subscription_id", s.ID,
	)
	return h.apply(ctx, e.Type, subscriptionMutation(e.EventMeta, s, StatusPaused, false, nil))
}

// SubscriptionUpdated is logged only.
func (h *AccessHandler) SubscriptionUpdated(ctx context.Context, e *creem.SubscriptionUpdated) error {
	h.logger.InfoContext(ctx, "subscription updated",
		"event_id", e.ID,
		"subscription_id", e.Subscription.ID,
		"status", string(e.Subscription.Status),
	)
	return nil
}

// Unhandled is a no-op; the dispatcher already logs and counts it.
func (h *AccessHandler) Unhandled(context.Context, *creem.Unhandled) error {
	return nil
}

func (h *AccessHandler) apply(ctx context.Context, eventType creem.EventType, m Mutation) error {
	ent, outcome, err := h.store.Apply(ctx, m)
	if err != nil {
		return fmt.Errorf("applying %s for customer %q: %w", eventType, m.CustomerID, err)
	}

	h.logger.InfoContext(ctx, "entitlement mutation",
		"event_id", m.EventID,
		"event_type", string(eventType),
		"customer_id", ent.CustomerID,
		"outcome", string(outcome),
		"status", string(ent.Status),
		"has_access", ent.HasAccess,
		"access_until", formatTime(ent.AccessUntil),
	)
	return nil
}

func subscriptionMutation(meta creem.EventMeta, s creem.Subscription, status Status, access bool, until *time.Time) Mutation {
	return Mutation{
		CustomerID:     s.Customer.ID,
		EventID:        meta.ID,
		EventAt:        meta.CreatedAt,
		Status:         status,
		HasAccess:      access,
		AccessUntil:    until,
		Email:          s.Customer.Email(),
		SubscriptionID: s.ID,
		ProductID:      s.Product.ID,
	}
}

func checkoutCustomerID(c creem.Checkout) string {
	switch {
	case c.Customer != nil && c.Customer.ID != "":
		return c.Customer.ID
	case c.Order != nil && c.Order.Customer != "":
		return c.Order.Customer
	case c.Subscription != nil:
		return c.Subscription.Customer.ID
	}
	return ""
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
