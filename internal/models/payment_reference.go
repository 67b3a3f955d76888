package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Payment reference kinds
const (
	PaymentRefKindDirect = "direct"
	PaymentRefKindLink   = "link"
)

// PaymentReference is a tagged variant for the provider-side handle of a
// payment: either a bare provider payment id (Razorpay modal / UPI) or a
// hosted payment link with its own lifecycle. It is persisted as a single
// structured JSONB column instead of an overloaded string field.
type PaymentReference struct {
	Kind       string `json:"kind"`
	PaymentID  string `json:"payment_id,omitempty"`
	LinkID     string `json:"link_id,omitempty"`
	LinkURL    string `json:"link_url,omitempty"`
	LinkStatus string `json:"link_status,omitempty"`
}

// DirectReference builds a reference to a provider payment id.
func DirectReference(paymentID string) *PaymentReference {
	return &PaymentReference{Kind: PaymentRefKindDirect, PaymentID: paymentID}
}

// LinkReference builds a reference to a hosted payment link.
func LinkReference(linkID, linkURL, linkStatus string) *PaymentReference {
	return &PaymentReference{
		Kind:       PaymentRefKindLink,
		LinkID:     linkID,
		LinkURL:    linkURL,
		LinkStatus: linkStatus,
	}
}

// Value implements driver.Valuer for JSONB persistence.
func (r PaymentReference) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner.
func (r *PaymentReference) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	case nil:
		return nil
	default:
		return fmt.Errorf("cannot scan %T into PaymentReference", src)
	}
}
