package model

import "time"

// Error codes returned in the API error envelope.
const (
	ErrCodeValidation   = "validation_error"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeInternal     = "internal_error"
)

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ErrorDetail carries a machine-readable code and human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseMeta is attached to every API response.
type ResponseMeta struct {
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// BinRequest is the request body for POST /api/bin and PUT /api/bin/{code}.
// MaxBalance is accepted as any JSON scalar and parsed tolerantly; see
// MaxBalanceValue.
type BinRequest struct {
	Code            string           `json:"code"`
	Category        *string          `json:"category"`
	Reloadable      *string          `json:"reloadable"`
	International   *string          `json:"international"`
	MaxBalance      *MaxBalanceValue `json:"max_balance"`
	Company         *string          `json:"company"`
	Country         *string          `json:"country"`
	CustomerService *string          `json:"customer_service"`
	Distributor     *string          `json:"distributor"`
	Issuer          *string          `json:"issuer"`
	CardType        *string          `json:"card_type"`
	WebsiteURL      *string          `json:"website_url"`
}

// Patch converts the request into a partial update.
func (r BinRequest) Patch() BinPatch {
	p := BinPatch{
		Category:        r.Category,
		Reloadable:      r.Reloadable,
		International:   r.International,
		Company:         r.Company,
		Country:         r.Country,
		CustomerService: r.CustomerService,
		Distributor:     r.Distributor,
		Issuer:          r.Issuer,
		CardType:        r.CardType,
		WebsiteURL:      r.WebsiteURL,
	}
	if r.MaxBalance != nil {
		p.MaxBalance = r.MaxBalance.Value
	}
	return p
}

// Record converts the request into a full BinRecord; nil fields become empty.
func (r BinRequest) Record() BinRecord {
	return r.Patch().Apply(BinRecord{Code: r.Code})
}
