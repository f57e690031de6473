package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	pricingdomain "github.com/medisync/medledger/internal/pricing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() pricingdomain.Repository {
	return &repo{}
}

func (r *repo) InsertPrice(ctx context.Context, db *gorm.DB, p *pricingdomain.Price) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO prices (
			id, facility_id, owner_id, service_id, amount_cents, currency, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.FacilityID,
		p.OwnerID,
		p.ServiceID,
		p.AmountCents,
		p.Currency,
		p.Active,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) DeactivatePrices(ctx context.Context, db *gorm.DB, scope pricingdomain.Scope, serviceID snowflake.ID) error {
	stmt := db.WithContext(ctx).Model(&pricingdomain.Price{}).
		Where("service_id = ? AND active = ?", serviceID, true)
	stmt = scopeWhere(stmt, scope)
	return stmt.Update("active", false).Error
}

func (r *repo) FindActivePrice(ctx context.Context, db *gorm.DB, scope pricingdomain.Scope, serviceID snowflake.ID) (*pricingdomain.Price, error) {
	var p pricingdomain.Price
	stmt := db.WithContext(ctx).Model(&pricingdomain.Price{}).
		Where("service_id = ? AND active = ?", serviceID, true)
	stmt = scopeWhere(stmt, scope)
	err := stmt.Order("created_at DESC, id DESC").Limit(1).Find(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) ListPrices(ctx context.Context, db *gorm.DB, scope pricingdomain.Scope) ([]pricingdomain.Price, error) {
	var items []pricingdomain.Price
	stmt := db.WithContext(ctx).Model(&pricingdomain.Price{})
	stmt = scopeWhere(stmt, scope)
	if err := stmt.Order("created_at DESC, id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) InsertPayerPrice(ctx context.Context, db *gorm.DB, p *pricingdomain.PayerPrice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payer_prices (
			id, facility_id, payer_id, service_id, amount_cents, currency, active, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.FacilityID,
		p.PayerID,
		p.ServiceID,
		p.AmountCents,
		p.Currency,
		p.Active,
		p.CreatedAt,
	).Error
}

func (r *repo) FindActivePayerPrice(ctx context.Context, db *gorm.DB, facilityID, payerID, serviceID snowflake.ID) (*pricingdomain.PayerPrice, error) {
	var p pricingdomain.PayerPrice
	// Most recently created active row wins when duplicates exist.
	err := db.WithContext(ctx).Raw(
		`SELECT id, facility_id, payer_id, service_id, amount_cents, currency, active, created_at
		 FROM payer_prices
		 WHERE facility_id = ? AND payer_id = ? AND service_id = ? AND active = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		facilityID,
		payerID,
		serviceID,
		true,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) InsertPayer(ctx context.Context, db *gorm.DB, payer *pricingdomain.Payer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payers (id, name, code, active, created_at) VALUES (?, ?, ?, ?, ?)`,
		payer.ID,
		payer.Name,
		payer.Code,
		payer.Active,
		payer.CreatedAt,
	).Error
}

func (r *repo) FindPayerByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*pricingdomain.Payer, error) {
	var payer pricingdomain.Payer
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, code, active, created_at FROM payers WHERE id = ?`,
		id,
	).Scan(&payer).Error
	if err != nil {
		return nil, err
	}
	if payer.ID == 0 {
		return nil, nil
	}
	return &payer, nil
}

func (r *repo) InsertAffiliation(ctx context.Context, db *gorm.DB, affiliation *pricingdomain.PayerAffiliation) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payer_affiliations (id, payer_id, facility_id, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (payer_id, facility_id) DO NOTHING`,
		affiliation.ID,
		affiliation.PayerID,
		affiliation.FacilityID,
		affiliation.CreatedAt,
	).Error
}

func (r *repo) IsPayerAffiliated(ctx context.Context, db *gorm.DB, payerID, facilityID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&pricingdomain.PayerAffiliation{}).
		Where("payer_id = ? AND facility_id = ?", payerID, facilityID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scopeWhere(stmt *gorm.DB, scope pricingdomain.Scope) *gorm.DB {
	if scope.IsFacility() {
		return stmt.Where("facility_id = ? AND owner_id IS NULL", scope.FacilityID)
	}
	return stmt.Where("owner_id = ? AND facility_id IS NULL", scope.OwnerID)
}
