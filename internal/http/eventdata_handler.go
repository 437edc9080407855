// Package http exposes the engine's read endpoints as a JSON API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"proplens/internal/cache"
	"proplens/internal/cohorts"
	"proplens/internal/eventdata"
	"proplens/internal/metrics"
	"proplens/internal/timeframe"
)

// EventDataHandler serves the property pivot analytics endpoints.
type EventDataHandler struct {
	engine eventdata.Engine
	db     *gorm.DB
	cache  *cache.Cache
	logger *slog.Logger
}

// NewEventDataHandler creates the handler with its injected collaborators.
// The db is the row store where cohort definitions live, independent of
// which analytics backend answers the queries.
func NewEventDataHandler(engine eventdata.Engine, db *gorm.DB, responseCache *cache.Cache, logger *slog.Logger) *EventDataHandler {
	return &EventDataHandler{engine: engine, db: db, cache: responseCache, logger: logger}
}

// ListProperties handles GET /api/websites/:websiteId/event-data/properties
func (h *EventDataHandler) ListProperties(c *fiber.Ctx) error {
	rng, err := parseRange(c)
	if err != nil {
		return badRequest(c, err)
	}
	filter, err := parseFilterSpec(c, rng)
	if err != nil {
		return badRequest(c, err)
	}

	if err := h.validateCohort(c); err != nil {
		return h.handleEngineError(c, err)
	}

	req := eventdata.CatalogRequest{
		WebsiteID:    c.Params("websiteId"),
		Range:        rng,
		PropertyName: c.Query("propertyName"),
		Filter:       filter,
	}

	if payload, ok := h.cachedResponse(c, "properties"); ok {
		return sendCachedJSON(c, payload)
	}

	results, err := h.engine.ListProperties(c.UserContext(), req)
	if err != nil {
		return h.handleEngineError(c, err)
	}
	if results == nil {
		results = []eventdata.PropertySummary{}
	}

	return h.cacheAndSend(c, "properties", results)
}

// ListValues handles GET /api/websites/:websiteId/event-data/values
func (h *EventDataHandler) ListValues(c *fiber.Ctx) error {
	rng, err := parseRange(c)
	if err != nil {
		return badRequest(c, err)
	}
	filter, err := parseFilterSpec(c, rng)
	if err != nil {
		return badRequest(c, err)
	}

	if err := h.validateCohort(c); err != nil {
		return h.handleEngineError(c, err)
	}

	req := eventdata.ValuesRequest{
		WebsiteID:    c.Params("websiteId"),
		Range:        rng,
		EventName:    c.Query("eventName"),
		PropertyName: c.Query("propertyName"),
		Filter:       filter,
	}

	if payload, ok := h.cachedResponse(c, "values"); ok {
		return sendCachedJSON(c, payload)
	}

	results, err := h.engine.ListValues(c.UserContext(), req)
	if err != nil {
		return h.handleEngineError(c, err)
	}
	if results == nil {
		results = []eventdata.ValueCount{}
	}

	return h.cacheAndSend(c, "values", results)
}

// PivotDetails handles GET /api/websites/:websiteId/event-data/details.
// Pivot responses are never cached: their pagination makes reuse rare and
// the scans are the ones worth watching in metrics.
func (h *EventDataHandler) PivotDetails(c *fiber.Ctx) error {
	rng, err := parseRange(c)
	if err != nil {
		return badRequest(c, err)
	}
	filter, err := parseFilterSpec(c, rng)
	if err != nil {
		return badRequest(c, err)
	}

	page, err := parsePageParams(c)
	if err != nil {
		return badRequest(c, err)
	}

	if err := h.validateCohort(c); err != nil {
		return h.handleEngineError(c, err)
	}

	req := eventdata.PivotRequest{
		WebsiteID:    c.Params("websiteId"),
		Range:        rng,
		EventName:    c.Query("eventName"),
		PropertyName: c.Query("propertyName"),
		Page:         page,
		Filter:       filter,
	}

	result, err := h.engine.PivotDetails(c.UserContext(), req)
	if err != nil {
		return h.handleEngineError(c, err)
	}

	return c.JSON(result)
}

// validateCohort rejects cohortId values that do not name a cohort of the
// requested website, before the engine compiles a membership join against
// a cohort that cannot match anything.
func (h *EventDataHandler) validateCohort(c *fiber.Ctx) error {
	cohortID := c.Query("cohortId")
	if cohortID == "" || h.db == nil {
		return nil
	}

	cohort, err := cohorts.GetCohortByID(h.db, cohortID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &eventdata.InvalidArgumentError{Field: "cohortId", Reason: "unknown cohort"}
		}
		return err
	}
	if cohort.WebsiteID != c.Params("websiteId") {
		return &eventdata.InvalidArgumentError{Field: "cohortId", Reason: "unknown cohort"}
	}
	return nil
}

// parseRange reads the required startAt/endAt epoch-millisecond params.
func parseRange(c *fiber.Ctx) (timeframe.Range, error) {
	startAt, err := strconv.ParseInt(c.Query("startAt"), 10, 64)
	if err != nil {
		return timeframe.Range{}, errors.New("startAt must be an epoch-millisecond integer")
	}
	endAt, err := strconv.ParseInt(c.Query("endAt"), 10, 64)
	if err != nil {
		return timeframe.Range{}, errors.New("endAt must be an epoch-millisecond integer")
	}
	return timeframe.FromEpochMillis(startAt, endAt)
}

// parseFilterSpec builds the FilterSpec from the recognized query params.
// A value prefixed with "~" requests a substring match instead of equality.
func parseFilterSpec(c *fiber.Ctx, rng timeframe.Range) (eventdata.FilterSpec, error) {
	spec := eventdata.FilterSpec{
		Range:       rng,
		CohortID:    c.Query("cohortId"),
		ValueFilter: c.Query("valueFilter"),
	}

	for _, column := range eventdata.FilterColumns() {
		value := c.Query(column)
		if value == "" {
			continue
		}
		filter := eventdata.FieldFilter{Column: column, Op: eventdata.FilterOpEquals, Value: value}
		if stripped, ok := strings.CutPrefix(value, "~"); ok {
			filter.Op = eventdata.FilterOpContains
			filter.Value = stripped
		}
		spec.Fields = append(spec.Fields, filter)
	}

	return spec, nil
}

// parsePageParams reads page/limit with the contract bounds enforced.
func parsePageParams(c *fiber.Ctx) (eventdata.PageParams, error) {
	page := eventdata.PageParams{Page: 1, Limit: eventdata.DefaultPageLimit}

	if raw := c.Query("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return page, errors.New("page must be an integer >= 1")
		}
		page.Page = parsed
	}
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > eventdata.MaxPageLimit {
			return page, errors.New("limit must be an integer between 1 and 100")
		}
		page.Limit = parsed
	}

	return page, nil
}

// cachedResponse checks the response cache for the exact request.
func (h *EventDataHandler) cachedResponse(c *fiber.Ctx, endpoint string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	key := cache.Key(endpoint, c.Params("websiteId"), string(c.Request().URI().QueryString()))
	payload, ok := h.cache.Get(c.UserContext(), key)
	if ok {
		metrics.CacheHits.WithLabelValues(endpoint, "hit").Inc()
	} else {
		metrics.CacheHits.WithLabelValues(endpoint, "miss").Inc()
	}
	return payload, ok
}

// cacheAndSend stores the serialized response best-effort and sends it.
func (h *EventDataHandler) cacheAndSend(c *fiber.Ctx, endpoint string, result any) error {
	payload, err := json.Marshal(result)
	if err != nil {
		h.logger.Error("Failed to marshal response", slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
	if h.cache != nil {
		key := cache.Key(endpoint, c.Params("websiteId"), string(c.Request().URI().QueryString()))
		h.cache.Set(c.UserContext(), key, payload)
	}
	return sendCachedJSON(c, payload)
}

func sendCachedJSON(c *fiber.Ctx, payload []byte) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(payload)
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// handleEngineError maps the engine error taxonomy onto HTTP statuses.
func (h *EventDataHandler) handleEngineError(c *fiber.Ctx, err error) error {
	var invalidArg *eventdata.InvalidArgumentError
	if errors.As(err, &invalidArg) {
		return badRequest(c, invalidArg)
	}

	var invalidFilter *eventdata.InvalidFilterError
	if errors.As(err, &invalidFilter) {
		return badRequest(c, invalidFilter)
	}

	if errors.Is(err, context.Canceled) {
		// Client went away; nothing useful to send.
		return nil
	}

	h.logger.Error("Engine query failed",
		slog.String("path", c.Path()),
		slog.Any("error", err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
	})
}
