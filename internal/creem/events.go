package creem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventType is the webhook envelope discriminant.
type EventType string

// Event types the provider sends. refund.created and dispute.created are
// known to exist but have no handler; they take the Unhandled path.
const (
	EventCheckoutCompleted           EventType = "checkout.completed"
	EventSubscriptionPaid            EventType = "subscription.paid"
	EventSubscriptionActive          EventType = "subscription.active"
	EventSubscriptionCanceled        EventType = "subscription.canceled"
	EventSubscriptionScheduledCancel EventType = "subscription.scheduled_cancel"
	EventSubscriptionPastDue         EventType = "subscription.past_due"
	EventSubscriptionExpired         EventType = "subscription.expired"
	EventSubscriptionTrialing        EventType = "subscription.trialing"
	EventSubscriptionPaused          EventType = "subscription.paused"
	EventSubscriptionUpdate          EventType = "subscription.update"
	EventRefundCreated               EventType = "refund.created"
	EventDisputeCreated              EventType = "dispute.created"
)

// ErrMissingEventType is returned by ParseEvent when the envelope has no
// eventType. An unknown eventType is not an error.
var ErrMissingEventType = errors.New("creem: missing eventType in payload")

// EventMeta is the envelope data shared by every event variant.
type EventMeta struct {
	ID        string
	Type      EventType
	CreatedAt time.Time
}

// Meta returns the envelope metadata.
func (m EventMeta) Meta() EventMeta { return m }

// Event is a webhook envelope. The concrete type identifies the event:
// one variant per known eventType plus Unhandled for everything else.
// Variants route themselves to the matching Handler method, so adding a
// variant means extending Handler, which every implementation must follow.
type Event interface {
	Meta() EventMeta
	dispatch(ctx context.Context, h Handler) error
}

// CheckoutCompleted is sent once a checkout has been paid.
type CheckoutCompleted struct {
	EventMeta
	Checkout Checkout
}

// SubscriptionPaid is the authoritative grant-access signal.
type SubscriptionPaid struct {
	EventMeta
	Subscription Subscription
}

// SubscriptionActive is informational; the provider sends it for sync only.
type SubscriptionActive struct {
	EventMeta
	Subscription Subscription
}

// SubscriptionCanceled ends access.
type SubscriptionCanceled struct {
	EventMeta
	Subscription Subscription
}

// SubscriptionScheduledCancel means the subscription ends at period end.
type SubscriptionScheduledCancel struct {
	EventMeta
	Subscription Subscription
}

// SubscriptionPastDue means a renewal payment failed and is being retried.
type SubscriptionPastDue struct {
	EventMeta
	Subscription Subscription
}

// SubscriptionExpired means the billing period ended without payment.
type SubscriptionExpired struct {
	EventMeta
	Subscription Subscription
}

// SubscriptionTrialing starts a trial.
type SubscriptionTrialing struct {
	EventMeta
	Subscription Subscription
}

// SubscriptionPaused suspends a subscription until it is resumed.
type SubscriptionPaused struct {
	EventMeta
	Subscription Subscription
}

// SubscriptionUpdated reports a change to subscription fields.
type SubscriptionUpdated struct {
	EventMeta
	Subscription Subscription
}

// Unhandled carries any event type without a dedicated variant. The subject
// is kept undecoded.
type Unhandled struct {
	EventMeta
	Object json.RawMessage
}

func (e *CheckoutCompleted) dispatch(ctx context.Context, h Handler) error {
	return h.CheckoutCompleted(ctx, e)
}

func (e *SubscriptionPaid) dispatch(ctx context.Context, h Handler) error {
	return h.SubscriptionPaid(ctx, e)
}

func (e *SubscriptionActive) dispatch(ctx context.Context, h Handler) error {
	return h.SubscriptionActive(ctx, e)
}

func (e *SubscriptionCanceled) dispatch(ctx context.Context, h Handler) error {
	return h.SubscriptionCanceled(ctx, e)
}

func (e *SubscriptionScheduledCancel) dispatch(ctx context.Context, h Handler) error {
	return h.SubscriptionScheduledCancel(ctx, e)
}

func (e *SubscriptionPastDue) dispatch(ctx context.Context, h Handler) error {
	return h.SubscriptionPastDue(ctx, e)
}

func (e *SubscriptionExpired) dispatch(ctx context.Context, h Handler) error {
	return h.SubscriptionExpired(ctx, e)
}

func (e *SubscriptionTrialing) dispatch(ctx context.Context, h Handler) error {
	return h.SubscriptionTrialing(ctx, e)
}

func (e *SubscriptionPaused) dispatch(ctx context.Context, h Handler) error {
	return h.SubscriptionPaused(ctx, e)
}

func (e *SubscriptionUpdated) dispatch(ctx context.Context, h Handler) error {
	return h.SubscriptionUpdated(ctx, e)
}

func (e *Unhandled) dispatch(ctx context.Context, h Handler) error {
	return h.Unhandled(ctx, e)
}

// envelope is the wire shape of every webhook body.
type envelope struct {
	ID        string          `json:"id"`
	EventType EventType       `json:"eventType"`
	CreatedAt int64           `json:"created_at"`
	Object    json.RawMessage `json:"object"`
}

// subscriptionVariants builds the variant for each subscription.* type.
var subscriptionVariants = map[EventType]func(EventMeta, Subscription) Event{
	EventSubscriptionPaid: func(m EventMeta, s Subscription) Event {
		return &SubscriptionPaid{EventMeta: m, Subscription: s}
	},
	EventSubscriptionActive: func(m EventMeta, s Subscription) Event {
		return &SubscriptionActive{EventMeta: m, Subscription: s}
	},
	EventSubscriptionCanceled: func(m EventMeta, s Subscription) Event {
		return &SubscriptionCanceled{EventMeta: m, Subscription: s}
	},
	EventSubscriptionScheduledCancel: func(m EventMeta, s Subscription) Event {
		return &SubscriptionScheduledCancel{EventMeta: m, Subscription: s}
	},
	EventSubscriptionPastDue: func(m EventMeta, s Subscription) Event {
		return &SubscriptionPastDue{EventMeta: m, Subscription: s}
	},
	EventSubscriptionExpired: func(m EventMeta, s Subscription) Event {
		return &SubscriptionExpired{EventMeta: m, Subscription: s}
	},
	EventSubscriptionTrialing: func(m EventMeta, s Subscription) Event {
		return &SubscriptionTrialing{EventMeta: m, Subscription: s}
	},
	EventSubscriptionPaused: func(m EventMeta, s Subscription) Event {
		return &SubscriptionPaused{EventMeta: m, Subscription: s}
	},
	EventSubscriptionUpdate: func(m EventMeta, s Subscription) Event {
		return &SubscriptionUpdated{EventMeta: m, Subscription: s}
	},
}

// ParseEvent decodes a verified webhook body into its Event variant.
//
// The payload must be the exact bytes whose signature was checked. An
// unknown eventType yields *Unhandled; a missing one yields
// ErrMissingEventType.
func ParseEvent(payload []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decoding webhook envelope: %w", err)
	}
	if env.EventType == "" {
		return nil, ErrMissingEventType
	}

	meta := EventMeta{
		ID:   env.ID,
		Type: env.EventType,
	}
	if env.CreatedAt > 0 {
		meta.CreatedAt = time.UnixMilli(env.CreatedAt).UTC()
	}

	if env.EventType == EventCheckoutCompleted {
		var c Checkout
		if err := decodeObject(env.Object, &c); err != nil {
			return nil, fmt.Errorf("decoding %s object: %w", env.EventType, err)
		}
		return &CheckoutCompleted{EventMeta: meta, Checkout: c}, nil
	}

	if build, ok := subscriptionVariants[env.EventType]; ok {
		var s Subscription
		if err := decodeObject(env.Object, &s); err != nil {
			return nil, fmt.Errorf("decoding %s object: %w", env.EventType, err)
		}
		return build(meta, s), nil
	}

	return &Unhandled{EventMeta: meta, Object: env.Object}, nil
}

func decodeObject(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return errors.New("missing object")
	}
	return json.Unmarshal(raw, dst)
}
