package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/automaton-filecheck/internal/domain/analyst"
	"github.com/bryanwahyu/automaton-filecheck/internal/domain/filecheck"
)

func TestClassificationRepository_SaveUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewClassificationRepository(db)
	started := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (id) DO UPDATE SET")).
		WithArgs("c-1", "-", "-", "", "error", nil, nil, nil, "[]", "none", "download failed", started, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Save(context.Background(), &filecheck.Classification{
		ID: "c-1", Status: filecheck.StatusError, Action: filecheck.ActionNone,
		Error: "download failed", StartedAt: started,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassificationRepository_SummaryUsesFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewClassificationRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) FILTER (WHERE status = 'malicious')")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"total", "malicious", "clean", "errors"}).AddRow(4, 1, 2, 1))

	s, err := repo.Summary(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, filecheck.Summary{Total: 4, Malicious: 1, Clean: 2, Errors: 1}, s)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalystRepository_SaveAndPaginate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAnalystRepository(db)
	created := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO classification_analyses")).
		WithArgs("a-1", "c-1", `{"raw":"not json"}`, created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Save(context.Background(), &analyst.Analysis{
		ID: "a-1", ClassificationID: "c-1", Result: "not json", CreatedAt: created,
	})
	assert.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $1 OFFSET $2")).
		WithArgs(10, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "classification_id", "result_json", "created_at"}).
			AddRow("a-1", "c-1", `{"verdict":"malicious"}`, created))

	page, err := repo.Paginate(context.Background(), 2, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, analyst.AnalysisID("a-1"), page[0].ID)
	assert.Equal(t, `{"verdict":"malicious"}`, page[0].Result)
	assert.NoError(t, mock.ExpectationsWereMet())
}
