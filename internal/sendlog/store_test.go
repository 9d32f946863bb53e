package sendlog

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/converze/newsletter/internal/broadcast"
)

func TestRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sentAt := time.Date(2025, time.August, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO broadcast_history").
		WithArgs("b-123", "blog-post", "New Blog Post: Scaling Postgres", 98, 2, 100, sentAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewWithDB(db)
	err = store.Record(context.Background(), broadcast.HistoryEntry{
		BroadcastID:  "b-123",
		CampaignType: "blog-post",
		Subject:      "New Blog Post: Scaling Postgres",
		Sent:         98,
		Failed:       2,
		Total:        100,
		SentAt:       sentAt,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sentAt := time.Date(2025, time.August, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "broadcast_id", "campaign_type", "subject", "sent", "failed", "total", "sent_at"}).
		AddRow(2, "b-2", "custom", "Product Update", 50, 0, 50, sentAt).
		AddRow(1, "b-1", "blog-post", "New Blog Post: Hello", 10, 1, 11, sentAt.Add(-time.Hour))

	mock.ExpectQuery("SELECT id, broadcast_id, campaign_type, subject, sent, failed, total, sent_at").
		WithArgs(25).
		WillReturnRows(rows)

	store := NewWithDB(db)
	entries, err := store.List(context.Background(), 25)
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, int64(2), entries[0].ID)
	assert.Equal(t, "b-2", entries[0].BroadcastID)
	assert.Equal(t, "Product Update", entries[0].Subject)
	assert.Equal(t, 50, entries[0].Sent)
	assert.Equal(t, "blog-post", entries[1].CampaignType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDefaultsLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, broadcast_id, campaign_type, subject, sent, failed, total, sent_at").
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "broadcast_id", "campaign_type", "subject", "sent", "failed", "total", "sent_at"}))

	store := NewWithDB(db)
	entries, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInit(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS broadcast_history").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewWithDB(db)
	require.NoError(t, store.Init(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
