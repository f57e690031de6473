package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type SetPriceRequest struct {
	Scope       Scope  `json:"scope"`
	ServiceCode string `json:"service_code"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

type SetPayerPriceRequest struct {
	FacilityID  snowflake.ID `json:"facility_id"`
	PayerID     snowflake.ID `json:"payer_id"`
	ServiceCode string       `json:"service_code"`
	AmountCents int64        `json:"amount_cents"`
	Currency    string       `json:"currency"`
}

type RegisterPayerRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ResolveQuery asks for the single unit price applicable to a service in a
// scope. PayerID is set when the billable subject is currently insured; the
// engine itself never looks up coverage.
type ResolveQuery struct {
	ServiceCode string
	Scope       Scope
	PayerID     *snowflake.ID
}

// Quote is a resolved price. Resolution is read-only, so quotes can be taken
// speculatively before any charge exists.
type Quote struct {
	ServiceID      snowflake.ID `json:"-"`
	ServiceCode    string       `json:"service_code"`
	UnitPriceCents int64        `json:"unit_price_cents"`
	Currency       string       `json:"currency"`
	Source         PriceSource  `json:"source"`
}

type PriceResponse struct {
	ID          string    `json:"id"`
	FacilityID  *string   `json:"facility_id,omitempty"`
	OwnerID     *string   `json:"owner_id,omitempty"`
	ServiceCode string    `json:"service_code"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type PayerResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type Service interface {
	Resolve(ctx context.Context, query ResolveQuery) (*Quote, error)
	SetPrice(ctx context.Context, req SetPriceRequest) (*PriceResponse, error)
	SetPayerPrice(ctx context.Context, req SetPayerPriceRequest) (*PriceResponse, error)
	ListPrices(ctx context.Context, scope Scope) ([]PriceResponse, error)
	RegisterPayer(ctx context.Context, req RegisterPayerRequest) (*PayerResponse, error)
	AffiliatePayer(ctx context.Context, payerID, facilityID snowflake.ID) error
}

var (
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrInvalidCurrency = errors.New("invalid_currency")
	ErrInvalidPayer    = errors.New("invalid_payer")
	ErrInvalidFacility = errors.New("invalid_facility")
	ErrPayerNotFound   = errors.New("payer_not_found")
	ErrPriceConflict   = errors.New("price_conflict")
)
