package http_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"proplens/internal/eventdata"
	apphttp "proplens/internal/http"
	"proplens/internal/testsupport"
)

// stubEngine records the last request of each kind and returns canned data.
type stubEngine struct {
	catalogReq *eventdata.CatalogRequest
	valuesReq  *eventdata.ValuesRequest
	pivotReq   *eventdata.PivotRequest
	err        error
}

func (s *stubEngine) ListProperties(_ context.Context, req eventdata.CatalogRequest) ([]eventdata.PropertySummary, error) {
	s.catalogReq = &req
	if s.err != nil {
		return nil, s.err
	}
	return []eventdata.PropertySummary{{EventName: "purchase", PropertyName: "org_name", Total: 3}}, nil
}

func (s *stubEngine) ListValues(_ context.Context, req eventdata.ValuesRequest) ([]eventdata.ValueCount, error) {
	s.valuesReq = &req
	if s.err != nil {
		return nil, s.err
	}
	return []eventdata.ValueCount{{Value: "Acme", Total: 2}}, nil
}

func (s *stubEngine) PivotDetails(_ context.Context, req eventdata.PivotRequest) (*eventdata.PivotResult, error) {
	s.pivotReq = &req
	if s.err != nil {
		return nil, s.err
	}
	return &eventdata.PivotResult{
		Data:             []eventdata.CombinationGroup{},
		Pagination:       eventdata.Pagination{Page: req.Page.Page, Limit: req.Page.Limit},
		SelectedProperty: req.PropertyName,
		AllProperties:    []string{"org_name"},
	}, nil
}

func newTestApp(engine eventdata.Engine) *fiber.App {
	return newTestAppWithDB(engine, nil)
}

func newTestAppWithDB(engine eventdata.Engine, db *gorm.DB) *fiber.App {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := apphttp.NewEventDataHandler(engine, db, nil, logger)

	app := fiber.New()
	site := app.Group("/api/websites/:websiteId")
	site.Get("/event-data/properties", handler.ListProperties)
	site.Get("/event-data/values", handler.ListValues)
	site.Get("/event-data/details", handler.PivotDetails)
	return app
}

func TestListPropertiesRequiresRange(t *testing.T) {
	engine := &stubEngine{}
	app := newTestApp(engine)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/websites/w1/event-data/properties", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	// The backend must never be called for an invalid request.
	assert.Nil(t, engine.catalogReq)
}

func TestListPropertiesParsesRequest(t *testing.T) {
	engine := &stubEngine{}
	app := newTestApp(engine)

	url := "/api/websites/w1/event-data/properties?startAt=1741600800000&endAt=1741694400000&browser=chrome&url=~checkout&cohortId=c1"
	resp, err := app.Test(httptest.NewRequest("GET", url, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.NotNil(t, engine.catalogReq)
	req := engine.catalogReq
	assert.Equal(t, "w1", req.WebsiteID)
	assert.Equal(t, "c1", req.Filter.CohortID)
	require.Len(t, req.Filter.Fields, 2)
	fields := map[string]eventdata.FieldFilter{}
	for _, f := range req.Filter.Fields {
		fields[f.Column] = f
	}
	assert.Equal(t, eventdata.FilterOpEquals, fields["browser"].Op)
	assert.Equal(t, "chrome", fields["browser"].Value)
	// The "~" prefix requests a substring match and is stripped.
	assert.Equal(t, eventdata.FilterOpContains, fields["url"].Op)
	assert.Equal(t, "checkout", fields["url"].Value)

	var body []eventdata.PropertySummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body, 1)
	assert.Equal(t, "org_name", body[0].PropertyName)
}

func TestListValuesParsesNames(t *testing.T) {
	engine := &stubEngine{}
	app := newTestApp(engine)

	url := "/api/websites/w1/event-data/values?startAt=1741600800000&endAt=1741694400000&eventName=purchase&propertyName=org_name&valueFilter=beta"
	resp, err := app.Test(httptest.NewRequest("GET", url, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.NotNil(t, engine.valuesReq)
	assert.Equal(t, "purchase", engine.valuesReq.EventName)
	assert.Equal(t, "org_name", engine.valuesReq.PropertyName)
	assert.Equal(t, "beta", engine.valuesReq.Filter.ValueFilter)
}

func TestPivotDetailsParsesPagination(t *testing.T) {
	engine := &stubEngine{}
	app := newTestApp(engine)

	url := "/api/websites/w1/event-data/details?startAt=1741600800000&endAt=1741694400000&eventName=purchase&propertyName=org_name&page=3&limit=50"
	resp, err := app.Test(httptest.NewRequest("GET", url, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.NotNil(t, engine.pivotReq)
	assert.Equal(t, eventdata.PageParams{Page: 3, Limit: 50}, engine.pivotReq.Page)
}

func TestPivotDetailsRejectsBadPagination(t *testing.T) {
	engine := &stubEngine{}
	app := newTestApp(engine)

	base := "/api/websites/w1/event-data/details?startAt=1741600800000&endAt=1741694400000&eventName=purchase&propertyName=org_name"
	for _, suffix := range []string{"&page=0", "&page=x", "&limit=0", "&limit=101"} {
		resp, err := app.Test(httptest.NewRequest("GET", base+suffix, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, suffix)
	}
	assert.Nil(t, engine.pivotReq)
}

func TestHandlerMapsValidationErrorsTo400(t *testing.T) {
	engine := &stubEngine{err: &eventdata.InvalidArgumentError{Field: "propertyName", Reason: "must not be empty"}}
	app := newTestApp(engine)

	url := "/api/websites/w1/event-data/details?startAt=1741600800000&endAt=1741694400000&eventName=purchase&propertyName=x"
	resp, err := app.Test(httptest.NewRequest("GET", url, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandlerMapsBackendErrorsTo500(t *testing.T) {
	engine := &stubEngine{err: &eventdata.BackendUnavailableError{Operation: "listValues"}}
	app := newTestApp(engine)

	url := "/api/websites/w1/event-data/values?startAt=1741600800000&endAt=1741694400000&eventName=purchase&propertyName=org_name"
	resp, err := app.Test(httptest.NewRequest("GET", url, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	// Backend details never leak to the client.
	assert.Equal(t, "internal server error", body["error"])
}

func TestRangeMustBeOrdered(t *testing.T) {
	engine := &stubEngine{}
	app := newTestApp(engine)

	url := "/api/websites/w1/event-data/properties?startAt=1741694400000&endAt=1741600800000"
	resp, err := app.Test(httptest.NewRequest("GET", url, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestUnknownCohortRejectedBeforeEngine(t *testing.T) {
	engine := &stubEngine{}
	db := testsupport.SetupTestDB(t)
	app := newTestAppWithDB(engine, db)

	url := "/api/websites/w1/event-data/properties?startAt=1741600800000&endAt=1741694400000&cohortId=no-such-cohort"
	resp, err := app.Test(httptest.NewRequest("GET", url, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Nil(t, engine.catalogReq)
}

func TestCohortMustBelongToWebsite(t *testing.T) {
	engine := &stubEngine{}
	db := testsupport.SetupTestDB(t)
	owner, _ := testsupport.CreateTestUser(t, db, "owner@example.com", false)
	website := testsupport.CreateTestWebsite(t, db, "one.example.com", owner.ID)
	other := testsupport.CreateTestWebsite(t, db, "two.example.com", owner.ID)
	cohort := testsupport.CreateTestCohort(t, db, other.WebsiteID, "buyers", "s1")
	app := newTestAppWithDB(engine, db)

	url := "/api/websites/" + website.WebsiteID + "/event-data/properties?startAt=1741600800000&endAt=1741694400000&cohortId=" + cohort.CohortID
	resp, err := app.Test(httptest.NewRequest("GET", url, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Nil(t, engine.catalogReq)
}

func TestKnownCohortPassedThrough(t *testing.T) {
	engine := &stubEngine{}
	db := testsupport.SetupTestDB(t)
	owner, _ := testsupport.CreateTestUser(t, db, "owner@example.com", false)
	website := testsupport.CreateTestWebsite(t, db, "one.example.com", owner.ID)
	cohort := testsupport.CreateTestCohort(t, db, website.WebsiteID, "buyers", "s1")
	app := newTestAppWithDB(engine, db)

	url := "/api/websites/" + website.WebsiteID + "/event-data/properties?startAt=1741600800000&endAt=1741694400000&cohortId=" + cohort.CohortID
	resp, err := app.Test(httptest.NewRequest("GET", url, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.NotNil(t, engine.catalogReq)
	assert.Equal(t, cohort.CohortID, engine.catalogReq.Filter.CohortID)
}
