package server

import (
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	pricingdomain "github.com/medisync/medledger/internal/pricing/domain"
	"github.com/medisync/medledger/pkg/db/pagination"
)

func parseID(raw string) (snowflake.ID, bool) {
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	return snowflake.ID(value), true
}

func idParam(c *gin.Context, name string) (snowflake.ID, bool) {
	return parseID(c.Param(name))
}

func idQuery(c *gin.Context, name string) (snowflake.ID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false
	}
	return parseID(raw)
}

// scopeQuery builds a pricing scope from facility_id / owner_id query params.
func scopeQuery(c *gin.Context) (pricingdomain.Scope, bool) {
	var scope pricingdomain.Scope
	if id, ok := idQuery(c, "facility_id"); ok {
		scope.FacilityID = &id
	}
	if id, ok := idQuery(c, "owner_id"); ok {
		scope.OwnerID = &id
	}
	return scope, scope.Validate() == nil
}

func paginationQuery(c *gin.Context) pagination.Pagination {
	page := pagination.Pagination{
		PageToken: c.Query("page_token"),
		PageSize:  25,
	}
	if raw := c.Query("page_size"); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size >= 1 && size <= 250 {
			page.PageSize = size
		}
	}
	return page
}

func timeQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, false
	}
	return &parsed, true
}
