package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/copygate/internal/adcopy"
)

func sampleAcquisition() adcopy.Acquisition {
	code := "de"
	return adcopy.Acquisition{
		ID:            "0192-uuid-v7",
		URL:           "https://Example.de/",
		NormalizedURL: "https://example.de",
		Response: adcopy.FetchResponse{
			FinalURL:   "https://example.de/de/",
			StatusCode: 200,
		},
		ContentHash: "abc123",
		BlobURI:     "memory://pages/ab/abc123.html",
		Page: adcopy.PageSignals{
			Language:     "German",
			DetectedCode: &code,
			Signals:      map[string]*string{"htmlLang": &code},
		},
		FetchedAt: time.Unix(1_700_000_000, 0).UTC(),
	}
}

func TestRecordInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewAuditStoreWithPool(mock, "")
	require.NoError(t, err)

	acq := sampleAcquisition()
	mock.ExpectExec("INSERT INTO acquisitions").
		WithArgs(
			acq.ID,
			acq.URL,
			acq.NormalizedURL,
			acq.Response.FinalURL,
			acq.Response.StatusCode,
			acq.Page.Language,
			acq.Page.DetectedCode,
			[]byte(`{"htmlLang":"de"}`),
			acq.ContentHash,
			acq.BlobURI,
			acq.FetchedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Record(context.Background(), acq))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordPropagatesExecError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewAuditStoreWithPool(mock, "page_audit")
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO page_audit").WillReturnError(errors.New("relation does not exist"))

	err = store.Record(context.Background(), sampleAcquisition())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert acquisition")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRequiresID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewAuditStoreWithPool(mock, "")
	require.NoError(t, err)

	acq := sampleAcquisition()
	acq.ID = ""
	assert.EqualError(t, store.Record(context.Background(), acq), "acquisition id is required")

	var nilStore *AuditStore
	assert.Error(t, nilStore.Record(context.Background(), sampleAcquisition()))
}

func TestNewAuditStoreWithPoolValidation(t *testing.T) {
	t.Parallel()

	_, err := NewAuditStoreWithPool(nil, "")
	assert.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewAuditStoreWithPool(mock, "drop table;--")
	assert.EqualError(t, err, `invalid table name "drop table;--"`)
}

func TestNewAuditStoreRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := NewAuditStore(context.Background(), AuditStoreConfig{})
	assert.EqualError(t, err, "audit.dsn is required")

	_, err = NewAuditStore(context.Background(), AuditStoreConfig{DSN: "://bad"})
	assert.ErrorContains(t, err, "parse postgres dsn")
}

func TestPing(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewAuditStoreWithPool(mock, "")
	require.NoError(t, err)

	mock.ExpectPing()
	assert.NoError(t, store.Ping(context.Background()))
	mock.ExpectPing().WillReturnError(errors.New("down"))
	assert.ErrorContains(t, store.Ping(context.Background()), "ping postgres")
	require.NoError(t, mock.ExpectationsWereMet())
}
