package creem

import "context"

// Handler receives dispatched webhook events, one method per event variant.
//
// Implementations must be idempotent: the provider delivers at least once,
// so the same event may arrive again after it was already applied, and a
// repeat must leave the same end state as the first delivery.
type Handler interface {
	CheckoutCompleted(ctx context.Context, e *CheckoutCompleted) error
	SubscriptionPaid(ctx context.Context, e *SubscriptionPaid) error
	SubscriptionActive(ctx context.Context, e *SubscriptionActive) error
	SubscriptionCanceled(ctx context.Context, e *SubscriptionCanceled) error
	SubscriptionScheduledCancel(ctx context.Context, e *SubscriptionScheduledCancel) error
	SubscriptionPastDue(ctx context.Context, e *SubscriptionPastDue) error
	SubscriptionExpired(ctx context.Context, e *SubscriptionExpired) error
	SubscriptionTrialing(ctx context.Context, e *SubscriptionTrialing) error
	SubscriptionPaused(ctx context.Context, e *SubscriptionPaused) error
	SubscriptionUpdated(ctx context.Context, e *SubscriptionUpdated) error
	Unhandled(ctx context.Context, e *Unhandled) error
}
