package postgres

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/dispatchgo/store"
)

func testRun(createdAt time.Time) *store.RunRecord {
	return &store.RunRecord{
		ID:        "run-1",
		Model:     "physical",
		Inputs:    map[string]any{"cycle_type": "NEDC"},
		Outputs:   map[string]any{"co2_emission_value": 121.3},
		Failed:    []string{"identify_idle_engine_speed_median"},
		CreatedAt: createdAt,
	}
}

func TestPostgresRunStore_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rs := NewPostgresRunStoreWithPool(mock, "runs")
	run := testRun(time.Now())

	inputsJSON, _ := json.Marshal(run.Inputs)
	outputsJSON, _ := json.Marshal(run.Outputs)
	failedJSON, _ := json.Marshal(run.Failed)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO runs")).
		WithArgs(run.ID, run.Model, inputsJSON, outputsJSON, failedJSON, run.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, rs.Save(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRunStore_Load(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rs := NewPostgresRunStoreWithPool(mock, "runs")
	run := testRun(time.Now())

	inputsJSON, _ := json.Marshal(run.Inputs)
	outputsJSON, _ := json.Marshal(run.Outputs)
	failedJSON, _ := json.Marshal(run.Failed)

	rows := pgxmock.NewRows([]string{"id", "model", "inputs", "outputs", "failed", "created_at"}).
		AddRow(run.ID, run.Model, inputsJSON, outputsJSON, failedJSON, run.CreatedAt)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, model, inputs, outputs, failed, created_at FROM runs WHERE id = $1")).
		WithArgs(run.ID).
		WillReturnRows(rows)

	loaded, err := rs.Load(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, "physical", loaded.Model)
	assert.Equal(t, "NEDC", loaded.Inputs["cycle_type"])
	assert.Equal(t, 121.3, loaded.Outputs["co2_emission_value"])
	assert.Equal(t, run.Failed, loaded.Failed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRunStore_Load_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rs := NewPostgresRunStoreWithPool(mock, "runs")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, model, inputs, outputs, failed, created_at FROM runs WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = rs.Load(context.Background(), "missing")
	assert.ErrorContains(t, err, "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRunStore_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rs := NewPostgresRunStoreWithPool(mock, "runs")
	now := time.Now()

	inputsJSON, _ := json.Marshal(map[string]any{"cycle_type": "NEDC"})
	outputsJSON, _ := json.Marshal(map[string]any{"co2_emission_value": 121.3})

	rows := pgxmock.NewRows([]string{"id", "model", "inputs", "outputs", "failed", "created_at"}).
		AddRow("run-1", "physical", inputsJSON, outputsJSON, []byte("null"), now).
		AddRow("run-2", "physical", inputsJSON, outputsJSON, []byte("null"), now.Add(time.Second))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, model, inputs, outputs, failed, created_at FROM runs WHERE model = $1")).
		WithArgs("physical").
		WillReturnRows(rows)

	runs, err := rs.List(context.Background(), "physical")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Nil(t, runs[0].Failed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRunStore_DeleteAndClear(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rs := NewPostgresRunStoreWithPool(mock, "runs")

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM runs WHERE id = $1")).
		WithArgs("run-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	assert.NoError(t, rs.Delete(context.Background(), "run-1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM runs WHERE model = $1")).
		WithArgs("physical").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	assert.NoError(t, rs.Clear(context.Background(), "physical"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRunStore_InitSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rs := NewPostgresRunStoreWithPool(mock, "runs")

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS runs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	assert.NoError(t, rs.InitSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
