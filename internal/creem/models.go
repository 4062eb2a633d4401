package creem

import (
	"bytes"
	"encoding/json"
	"time"
)

// Customer is the provider's customer object.
type Customer struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Country   string `json:"country"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	Mode      string `json:"mode"`
}

// Product is the provider's product object.
type Product struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Price         int64  `json:"price"`
	Currency      string `json:"currency"`
	BillingType   string `json:"billing_type"`
	BillingPeriod string `json:"billing_period"`
	Status        string `json:"status"`
	Mode          string `json:"mode"`
}

// Order is the provider's order object.
type Order struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Product  string `json:"product"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Type     string `json:"type"`
	Mode     string `json:"mode"`
}

// CustomerRef is a customer field that the provider sends either expanded
// (an object) or as a bare ID string.
type CustomerRef struct {
	ID       string
	Customer *Customer
}

// UnmarshalJSON accepts a string ID, a customer object, or null.
func (r *CustomerRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = CustomerRef{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	var c Customer
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	*r = CustomerRef{ID: c.ID, Customer: &c}
	return nil
}

// Email returns the customer email when the object was expanded.
func (r CustomerRef) Email() string {
	if r.Customer == nil {
		return ""
	}
	return r.Customer.Email
}

// ProductRef is a product field sent either expanded or as an ID string.
type ProductRef struct {
	ID      string
	Product *Product
}

// UnmarshalJSON accepts a string ID, a product object, or null.
func (r *ProductRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ProductRef{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	var p Product
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = ProductRef{ID: p.ID, Product: &p}
	return nil
}

// SubscriptionStatus is the provider-defined subscription status.
type SubscriptionStatus string

const (
	StatusTrialing        SubscriptionStatus = "trialing"
	StatusActive          SubscriptionStatus = "active"
	StatusPastDue         SubscriptionStatus = "past_due"
	StatusCanceled        SubscriptionStatus = "canceled"
	StatusExpired         SubscriptionStatus = "expired"
	StatusPaused          SubscriptionStatus = "paused"
	StatusScheduledCancel SubscriptionStatus = "scheduled_cancel"
)

// Subscription is the subject of every subscription.* event.
type Subscription struct {
	ID                     string             `json:"id"`
	Object                 string             `json:"object"`
	Product                ProductRef         `json:"product"`
	Customer               CustomerRef        `json:"customer"`
	CollectionMethod       string             `json:"collection_method"`
	Status                 SubscriptionStatus `json:"status"`
	LastTransactionID      string             `json:"last_transaction_id,omitempty"`
	LastTransactionDate    *time.Time         `json:"last_transaction_date,omitempty"`
	NextTransactionDate    *time.Time         `json:"next_transaction_date,omitempty"`
	CurrentPeriodStartDate *time.Time         `json:"current_period_start_date,omitempty"`
	CurrentPeriodEndDate   *time.Time         `json:"current_period_end_date,omitempty"`
	CanceledAt             *time.Time         `json:"canceled_at"`
	Metadata               map[string]any     `json:"metadata,omitempty"`
	Mode                   string             `json:"mode"`
}

// Checkout is the subject of a checkout.completed event.
type Checkout struct {
	ID           string         `json:"id"`
	Object       string         `json:"object"`
	RequestID    string         `json:"request_id,omitempty"`
	Order        *Order         `json:"order,omitempty"`
	Product      *Product       `json:"product,omitempty"`
	Customer     *Customer      `json:"customer,omitempty"`
	Subscription *Subscription  `json:"subscription,omitempty"`
	Status       string         `json:"status"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Mode         string         `json:"mode"`
}
