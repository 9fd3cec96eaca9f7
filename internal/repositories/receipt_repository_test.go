package repositories

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBackoff = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}

type execResult struct {
	rows int64
	err  error
}

type fakeResult struct {
	rows int64
}

func (f fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (f fakeResult) RowsAffected() (int64, error) { return f.rows, nil }

// scriptedExecer replays canned outcomes for the update and insert statements
// of the receipt upsert, in order.
type scriptedExecer struct {
	updates []execResult
	inserts []execResult

	updateCalls int
	insertCalls int
}

func (s *scriptedExecer) ExecContext(_ context.Context, query string, _ ...interface{}) (sql.Result, error) {
	var script execResult
	if strings.HasPrefix(strings.TrimSpace(query), "UPDATE") {
		if s.updateCalls >= len(s.updates) {
			panic("unexpected update")
		}
		script = s.updates[s.updateCalls]
		s.updateCalls++
	} else {
		if s.insertCalls >= len(s.inserts) {
			panic("unexpected insert")
		}
		script = s.inserts[s.insertCalls]
		s.insertCalls++
	}
	if script.err != nil {
		return nil, script.err
	}
	return fakeResult{rows: script.rows}, nil
}

func TestUpsertReceiptUpdatesExistingRow(t *testing.T) {
	db := &scriptedExecer{updates: []execResult{{rows: 1}}}

	err := upsertReceipt(context.Background(), db, 7, 1, testBackoff)

	require.NoError(t, err)
	assert.Equal(t, 1, db.updateCalls)
	assert.Equal(t, 0, db.insertCalls)
}

func TestUpsertReceiptInsertsWhenMissing(t *testing.T) {
	db := &scriptedExecer{
		updates: []execResult{{rows: 0}},
		inserts: []execResult{{rows: 1}},
	}

	err := upsertReceipt(context.Background(), db, 7, 1, testBackoff)

	require.NoError(t, err)
	assert.Equal(t, 1, db.insertCalls)
}

func TestUpsertReceiptConvergesAfterUniqueViolation(t *testing.T) {
	// A concurrent call wins the insert race; the retried update lands on the
	// row it created and the conflict never surfaces.
	db := &scriptedExecer{
		updates: []execResult{{rows: 0}, {rows: 0}, {rows: 1}},
		inserts: []execResult{{err: &pq.Error{Code: uniqueViolation}}},
	}

	err := upsertReceipt(context.Background(), db, 7, 1, testBackoff)

	require.NoError(t, err)
	assert.Equal(t, 3, db.updateCalls)
	assert.Equal(t, 1, db.insertCalls)
}

func TestUpsertReceiptReraisesAfterExhaustedRetries(t *testing.T) {
	db := &scriptedExecer{
		updates: []execResult{{rows: 0}, {rows: 0}, {rows: 0}, {rows: 0}},
		inserts: []execResult{{err: &pq.Error{Code: uniqueViolation}}},
	}

	err := upsertReceipt(context.Background(), db, 7, 1, testBackoff)

	require.Error(t, err)
	var pqErr *pq.Error
	require.ErrorAs(t, err, &pqErr)
	assert.Equal(t, uniqueViolation, pqErr.Code)
	assert.Equal(t, 4, db.updateCalls)
}

func TestUpsertReceiptSurfacesNonUniqueInsertError(t *testing.T) {
	db := &scriptedExecer{
		updates: []execResult{{rows: 0}},
		inserts: []execResult{{err: assert.AnError}},
	}

	err := upsertReceipt(context.Background(), db, 7, 1, testBackoff)

	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, db.updateCalls)
}
