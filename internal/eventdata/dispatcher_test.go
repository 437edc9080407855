package eventdata_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proplens/internal/eventdata"
	"proplens/internal/testsupport"
)

func TestNewEngineUnknownBackend(t *testing.T) {
	_, err := eventdata.NewEngine("postgres", eventdata.Deps{})
	var unsupported *eventdata.UnsupportedBackendError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, eventdata.BackendKind("postgres"), unsupported.Kind)
}

func TestNewEngineMissingClient(t *testing.T) {
	// A backend kind without its client is a wiring bug and must fail at
	// startup rather than at request time.
	_, err := eventdata.NewEngine(eventdata.BackendSQLite, eventdata.Deps{})
	var unsupported *eventdata.UnsupportedBackendError
	require.ErrorAs(t, err, &unsupported)

	_, err = eventdata.NewEngine(eventdata.BackendClickHouse, eventdata.Deps{})
	require.ErrorAs(t, err, &unsupported)
}

func TestNewEngineSQLite(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	engine, err := eventdata.NewEngine(eventdata.BackendSQLite, eventdata.Deps{
		DB:    db,
		Pivot: enginePivotConfig,
	})
	require.NoError(t, err)

	// The instrumented wrapper must still surface validation errors.
	_, err = engine.PivotDetails(context.Background(), eventdata.PivotRequest{WebsiteID: "w"})
	var invalid *eventdata.InvalidArgumentError
	require.ErrorAs(t, err, &invalid)
}
