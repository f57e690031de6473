package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertPrice(ctx context.Context, db *gorm.DB, price *Price) error
	DeactivatePrices(ctx context.Context, db *gorm.DB, scope Scope, serviceID snowflake.ID) error
	FindActivePrice(ctx context.Context, db *gorm.DB, scope Scope, serviceID snowflake.ID) (*Price, error)
	ListPrices(ctx context.Context, db *gorm.DB, scope Scope) ([]Price, error)

	InsertPayerPrice(ctx context.Context, db *gorm.DB, price *PayerPrice) error
	FindActivePayerPrice(ctx context.Context, db *gorm.DB, facilityID, payerID, serviceID snowflake.ID) (*PayerPrice, error)

	InsertPayer(ctx context.Context, db *gorm.DB, payer *Payer) error
	FindPayerByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payer, error)
	InsertAffiliation(ctx context.Context, db *gorm.DB, affiliation *PayerAffiliation) error
	IsPayerAffiliated(ctx context.Context, db *gorm.DB, payerID, facilityID snowflake.ID) (bool, error)
}
