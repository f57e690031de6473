package domain

import (
	"context"
	"errors"
	"time"
)

type UpsertRequest struct {
	Code              string `json:"code"`
	Name              string `json:"name"`
	DefaultPriceCents int64  `json:"default_price_cents"`
	Currency          string `json:"currency"`
}

type Response struct {
	ID                string    `json:"id"`
	Code              string    `json:"code"`
	Name              string    `json:"name"`
	DefaultPriceCents int64     `json:"default_price_cents"`
	Currency          string    `json:"currency"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type Service interface {
	// Upsert creates or updates a catalog entry keyed by code. Bulk imports
	// call it repeatedly; repeating a code updates the existing row.
	Upsert(ctx context.Context, req UpsertRequest) (*Response, error)
	Get(ctx context.Context, code string) (*Response, error)
	List(ctx context.Context, includeInactive bool) ([]Response, error)
	Deactivate(ctx context.Context, code string) (*Response, error)
}

var (
	ErrInvalidCode         = errors.New("invalid_code")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidDefaultPrice = errors.New("invalid_default_price")
	ErrInvalidCurrency     = errors.New("invalid_currency")
	ErrServiceNotFound     = errors.New("service_not_found")
	ErrServiceInactive     = errors.New("service_inactive")
)
