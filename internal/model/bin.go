// Package model defines the BIN directory domain types shared by the storage
// layer, the correction workflow, and every access channel.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// CodeLength is the number of digits in a BIN.
const CodeLength = 6

// BinRecord is the canonical entry for one bank identification number.
// Code is the unique identifier and is immutable once set. Every other
// attribute is optional free text; an empty string means "not on file".
type BinRecord struct {
	Code            string `json:"code"`
	Category        string `json:"category,omitempty"`
	Reloadable      string `json:"reloadable,omitempty"`
	International   string `json:"international,omitempty"`
	MaxBalance      *int64 `json:"max_balance,omitempty"`
	Company         string `json:"company,omitempty"`
	Country         string `json:"country,omitempty"`
	CustomerService string `json:"customer_service,omitempty"`
	Distributor     string `json:"distributor,omitempty"`
	Issuer          string `json:"issuer,omitempty"`
	CardType        string `json:"card_type,omitempty"`
	WebsiteURL      string `json:"website_url,omitempty"`
}

// BinPatch is a partial update of a BinRecord. A nil field leaves the stored
// value untouched; a non-nil field overwrites it (including overwriting with
// the empty string). Code is not patchable.
type BinPatch struct {
	Category        *string `json:"category,omitempty"`
	Reloadable      *string `json:"reloadable,omitempty"`
	International   *string `json:"international,omitempty"`
	MaxBalance      *int64  `json:"max_balance,omitempty"`
	Company         *string `json:"company,omitempty"`
	Country         *string `json:"country,omitempty"`
	CustomerService *string `json:"customer_service,omitempty"`
	Distributor     *string `json:"distributor,omitempty"`
	Issuer          *string `json:"issuer,omitempty"`
	CardType        *string `json:"card_type,omitempty"`
	WebsiteURL      *string `json:"website_url,omitempty"`
}

// Apply returns a copy of rec with every non-nil patch field overwritten.
func (p BinPatch) Apply(rec BinRecord) BinRecord {
	if p.Category != nil {
		rec.Category = *p.Category
	}
	if p.Reloadable != nil {
		rec.Reloadable = *p.Reloadable
	}
	if p.International != nil {
		rec.International = *p.International
	}
	if p.MaxBalance != nil {
		mb := *p.MaxBalance
		rec.MaxBalance = &mb
	}
	if p.Company != nil {
		rec.Company = *p.Company
	}
	if p.Country != nil {
		rec.Country = *p.Country
	}
	if p.CustomerService != nil {
		rec.CustomerService = *p.CustomerService
	}
	if p.Distributor != nil {
		rec.Distributor = *p.Distributor
	}
	if p.Issuer != nil {
		rec.Issuer = *p.Issuer
	}
	if p.CardType != nil {
		rec.CardType = *p.CardType
	}
	if p.WebsiteURL != nil {
		rec.WebsiteURL = *p.WebsiteURL
	}
	return rec
}

// Submission is a proposed correction for a BIN, pending admin review.
// It carries the full BinRecord field set but no uniqueness constraint:
// several submissions may target the same code, and the code does not have
// to exist in the registry yet. ID is assigned by the submission queue and
// never reused. Submissions are immutable after creation; approval or
// rejection removes them from the pending set.
type Submission struct {
	ID              int64  `json:"id"`
	Code            string `json:"code"`
	Category        string `json:"category,omitempty"`
	Reloadable      string `json:"reloadable,omitempty"`
	International   string `json:"international,omitempty"`
	MaxBalance      *int64 `json:"max_balance,omitempty"`
	Company         string `json:"company,omitempty"`
	Country         string `json:"country,omitempty"`
	CustomerService string `json:"customer_service,omitempty"`
	Distributor     string `json:"distributor,omitempty"`
	Issuer          string `json:"issuer,omitempty"`
	CardType        string `json:"card_type,omitempty"`
	WebsiteURL      string `json:"website_url,omitempty"`
}

// Record converts the submission into the BinRecord it proposes. The
// submission carries the complete field set, so merging it onto an existing
// record is a full overwrite of everything but the code.
func (s Submission) Record() BinRecord {
	return BinRecord{
		Code:            s.Code,
		Category:        s.Category,
		Reloadable:      s.Reloadable,
		International:   s.International,
		MaxBalance:      s.MaxBalance,
		Company:         s.Company,
		Country:         s.Country,
		CustomerService: s.CustomerService,
		Distributor:     s.Distributor,
		Issuer:          s.Issuer,
		CardType:        s.CardType,
		WebsiteURL:      s.WebsiteURL,
	}
}

// ValidateCode checks that code is exactly six ASCII digits.
func ValidateCode(code string) error {
	if len(code) != CodeLength {
		return fmt.Errorf("code must be exactly %d digits", CodeLength)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return fmt.Errorf("code must contain only digits")
		}
	}
	return nil
}

// ParseMaxBalance converts untyped max-balance input into an optional
// integer. The directory has always accepted sloppy input here: anything
// that does not parse as a non-negative integer is stored as absent rather
// than rejecting the whole submission.
func ParseMaxBalance(raw string) *int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}
