package search

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestMemoryHistoryNewestFirstAndScoped(t *testing.T) {
	h := NewMemoryHistory()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	_ = h.Record(ctx, HistoryEntry{UserID: 1, Query: "old", CreatedAt: base})
	_ = h.Record(ctx, HistoryEntry{UserID: 1, Query: "new", CreatedAt: base.Add(time.Minute)})
	_ = h.Record(ctx, HistoryEntry{UserID: 2, Query: "other", CreatedAt: base})

	items, err := h.List(ctx, 1, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 || items[0].Query != "new" || items[1].Query != "old" {
		t.Fatalf("unexpected items %+v", items)
	}
	if limited, _ := h.List(ctx, 1, 1); len(limited) != 1 {
		t.Fatalf("expected limit 1, got %d", len(limited))
	}
}

func TestPGHistoryRecordAndList(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := &PGHistory{DB: db}
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO document_search_history")).
		WithArgs(int64(3), "invoice", 2).
		WillReturnResult(sqlmock.NewResult(1, 1))
	if err := repo.Record(ctx, HistoryEntry{UserID: 3, Query: "invoice", ResultsCount: 2}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM document_search_history")).
		WithArgs(int64(3), MaxHistoryLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "query", "results_count", "created_at"}).
			AddRow(int64(9), int64(3), "invoice", 2, created))
	items, err := repo.List(ctx, 3, 500)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].ID != 9 || !items[0].CreatedAt.Equal(created) {
		t.Fatalf("unexpected items %+v", items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
