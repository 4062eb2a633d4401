package creem

import "quill/internal/signing"

// RedirectParameters are the query parameters the provider appends to the
// checkout success URL. The client relays them unchanged; a nil field was
// absent from the redirect and takes no part in the signed string.
//
// Mandatory fields need min=1 as well as required: required only rejects a
// nil pointer, and an empty value counts as missing.
type RedirectParameters struct {
	CheckoutID     *string `json:"checkout_id" validate:"required,min=1"`
	OrderID        *string `json:"order_id"`
	CustomerID     *string `json:"customer_id"`
	SubscriptionID *string `json:"subscription_id"`
	ProductID      *string `json:"product_id" validate:"required,min=1"`
	RequestID      *string `json:"request_id"`
	Signature      *string `json:"signature" validate:"required,min=1,hexdigest"`
}

// ParameterSet returns the parameters keyed by their redirect names,
// signature included; canonicalization drops it.
func (p RedirectParameters) ParameterSet() signing.ParameterSet {
	return signing.ParameterSet{
		"checkout_id":          p.CheckoutID,
		"order_id":             p.OrderID,
		"customer_id":          p.CustomerID,
		"subscription_id":      p.SubscriptionID,
		"product_id":           p.ProductID,
		"request_id":           p.RequestID,
		signing.SignatureField: p.Signature,
	}
}

// CheckoutIDValue returns the checkout ID or "" when absent. Safe for logs.
func (p RedirectParameters) CheckoutIDValue() string {
	if p.CheckoutID == nil {
		return ""
	}
	return *p.CheckoutID
}
