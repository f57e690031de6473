package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/medisync/medledger/internal/catalog/domain"
	"gorm.io/gorm"
)

type entry struct {
	Code              string
	Name              string
	DefaultPriceCents int64
}

// defaultCatalog covers the services a small clinic bills on day one. Sites
// replace or extend it through the catalog API.
var defaultCatalog = []entry{
	{Code: "CONSULT", Name: "General consultation", DefaultPriceCents: 5000},
	{Code: "CONSULT-SPEC", Name: "Specialist consultation", DefaultPriceCents: 15000},
	{Code: "LAB-FBC", Name: "Full blood count", DefaultPriceCents: 3500},
	{Code: "LAB-MP", Name: "Malaria parasite test", DefaultPriceCents: 1500},
	{Code: "XRAY-CHEST", Name: "Chest X-ray", DefaultPriceCents: 8000},
	{Code: "INJ-IM", Name: "Intramuscular injection", DefaultPriceCents: 1000},
	{Code: "DRESSING", Name: "Wound dressing", DefaultPriceCents: 2500},
	{Code: "ADM-DAY", Name: "Admission per day", DefaultPriceCents: 10000},
}

// EnsureDefaultCatalog inserts the starter catalog on first boot. Existing
// codes are left untouched so operator edits survive restarts.
func EnsureDefaultCatalog(db *gorm.DB, currency string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if currency == "" {
		currency = "NGN"
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for _, item := range defaultCatalog {
			svc := catalogdomain.BillableService{
				ID:                node.Generate(),
				Code:              item.Code,
				Name:              item.Name,
				DefaultPriceCents: item.DefaultPriceCents,
				Currency:          currency,
				Active:            true,
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			err := tx.WithContext(ctx).Exec(
				`INSERT INTO billable_services (
					id, code, name, default_price_cents, currency, active, created_at, updated_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (code) DO NOTHING`,
				svc.ID,
				svc.Code,
				svc.Name,
				svc.DefaultPriceCents,
				svc.Currency,
				svc.Active,
				svc.CreatedAt,
				svc.UpdatedAt,
			).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
