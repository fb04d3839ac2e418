package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	assetdomain "github.com/smallbiznis/pqio/internal/asset/domain"
	eventdomain "github.com/smallbiznis/pqio/internal/event/domain"
	meterdomain "github.com/smallbiznis/pqio/internal/meter/domain"
	"github.com/smallbiznis/pqio/pkg/db/pagination"
	"github.com/smallbiznis/pqio/pkg/repository"
)

// pageQueries starts a keyset page after the token's id.
func pageQueries(c *gin.Context, page pagination.Pagination) ([]repository.Query, bool) {
	after, err := page.AfterID()
	if err != nil {
		AbortWithError(c, newValidationError("page_token", "invalid_page_token", "invalid page token"))
		return nil, false
	}
	q := []repository.Query{repository.Limit(page.Limit() + 1)}
	if after != 0 {
		q = append(q, repository.Gt("id", after))
	}
	return q, true
}

func (s *Server) ListAssets(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Key string `form:"asset_key"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	q, ok := pageQueries(c, query.Pagination)
	if !ok {
		return
	}
	if key := strings.TrimSpace(query.Key); key != "" {
		q = append(q, repository.Eq("asset_key", key))
	}

	ctx := c.Request.Context()
	items, err := s.assets.FindWhere(ctx, s.db.WithContext(ctx), q...)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	items, info := pagination.BuildCursorPageInfo(items, query.Limit(), func(a assetdomain.Asset) snowflake.ID { return a.ID })
	c.JSON(http.StatusOK, gin.H{"data": items, "page_info": info})
}

func (s *Server) GetAssetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	asset, err := s.assets.FindByID(ctx, s.db.WithContext(ctx), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if asset == nil {
		AbortWithError(c, ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": asset})
}

func (s *Server) ListMeters(c *gin.Context) {
	var query struct {
		pagination.Pagination
		DeviceName string `form:"device_name"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	q, ok := pageQueries(c, query.Pagination)
	if !ok {
		return
	}
	if name := strings.TrimSpace(query.DeviceName); name != "" {
		q = append(q, repository.Eq("device_name", name))
	}

	ctx := c.Request.Context()
	items, err := s.meters.FindWhere(ctx, s.db.WithContext(ctx), q...)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	items, info := pagination.BuildCursorPageInfo(items, query.Limit(), func(m meterdomain.Meter) snowflake.ID { return m.ID })
	c.JSON(http.StatusOK, gin.H{"data": items, "page_info": info})
}

func (s *Server) GetMeterByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	meter, err := s.meters.FindByID(ctx, s.db.WithContext(ctx), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if meter == nil {
		AbortWithError(c, ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": meter})
}

func (s *Server) ListEvents(c *gin.Context) {
	var query struct {
		pagination.Pagination
		GUID string `form:"guid"`
		From string `form:"from"`
		To   string `form:"to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	from, err := parseOptionalTime(query.From, false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "invalid from"))
		return
	}
	to, err := parseOptionalTime(query.To, true)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "invalid to"))
		return
	}
	q, ok := pageQueries(c, query.Pagination)
	if !ok {
		return
	}
	if guid := strings.TrimSpace(query.GUID); guid != "" {
		q = append(q, repository.Eq("guid", strings.ToLower(guid)))
	}
	if from != nil {
		q = append(q, repository.Gte("event_time", *from))
	}
	if to != nil {
		q = append(q, repository.Lte("event_time", *to))
	}

	ctx := c.Request.Context()
	items, err := s.events.FindWhere(ctx, s.db.WithContext(ctx), q...)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	items, info := pagination.BuildCursorPageInfo(items, query.Limit(), func(e eventdomain.Event) snowflake.ID { return e.ID })
	c.JSON(http.StatusOK, gin.H{"data": items, "page_info": info})
}

func (s *Server) GetEventByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	evt, err := s.events.FindByID(ctx, s.db.WithContext(ctx), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if evt == nil {
		AbortWithError(c, ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": evt})
}
