package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/joseph-ayodele/clinic-menu-ocr/constants"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/repository"
)

func newBatch(id string, created time.Time, valid int) *entity.Batch {
	price := 120.0
	return &entity.Batch{
		ID:        id,
		Status:    constants.BatchStatusExtracted,
		Files:     []entity.FileMeta{{FileID: "f1", OriginalName: "menu.pdf", PageCount: 2}},
		Pages:     []entity.OcrPage{{FileID: "f1", FileName: "menu.pdf", PageNumber: 1, RawText: "Facial $120"}},
		Packages:  []entity.PackageRow{{Title: "Facial", Price: &price, Currency: "USD", Status: "active"}},
		Summary:   entity.Summary{Total: valid, Valid: valid},
		CreatedAt: created,
		ModelName: "anthropic.claude-sonnet-4-5-20250929-v1:0",
	}
}

func stores(t *testing.T) map[string]repository.BatchStore {
	t.Helper()
	ctx := context.Background()
	db, dialect, err := repository.Open(ctx, repository.Config{DSN: ":memory:"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if dialect != repository.DialectSQLite {
		t.Fatalf("dialect = %q", dialect)
	}
	sqlStore, err := repository.NewSQLBatchStore(ctx, db, dialect, nil)
	if err != nil {
		t.Fatal(err)
	}
	return map[string]repository.BatchStore{
		"sqlite": sqlStore,
		"files":  repository.NewFileBatchStore(t.TempDir(), nil),
	}
}

func TestBatchStore_RoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

			if err := store.Save(ctx, newBatch("b_1", t0, 1)); err != nil {
				t.Fatal(err)
			}
			if err := store.Save(ctx, newBatch("b_2", t0.Add(time.Minute), 3)); err != nil {
				t.Fatal(err)
			}

			got, err := store.Get(ctx, "b_1")
			if err != nil {
				t.Fatal(err)
			}
			if got.ID != "b_1" || len(got.Packages) != 1 || *got.Packages[0].Price != 120 || got.Pages[0].RawText != "Facial $120" {
				t.Errorf("round trip = %+v", got)
			}

			// Save is an upsert.
			updated := newBatch("b_1", t0, 1)
			updated.Status = constants.BatchStatusPartial
			if err := store.Save(ctx, updated); err != nil {
				t.Fatal(err)
			}
			got, _ = store.Get(ctx, "b_1")
			if got.Status != constants.BatchStatusPartial {
				t.Errorf("status after upsert = %q", got.Status)
			}

			list, err := store.List(ctx, 10)
			if err != nil {
				t.Fatal(err)
			}
			if len(list) != 2 || list[0].ID != "b_2" || list[0].Summary.Valid != 3 {
				t.Fatalf("list = %+v", list)
			}
			if !list[1].CreatedAt.Equal(t0) {
				t.Errorf("created_at = %v", list[1].CreatedAt)
			}

			if list, _ := store.List(ctx, 1); len(list) != 1 {
				t.Errorf("limit ignored: %d", len(list))
			}
		})
	}
}

func TestBatchStore_Errors(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := store.Get(ctx, "b_missing")
			if !errors.Is(err, common.ErrNotFound) || common.CodeOf(err) != common.CodeNotFound {
				t.Errorf("missing batch err = %v", err)
			}
			if err := store.Save(ctx, &entity.Batch{}); common.CodeOf(err) != common.CodeInvalidInput {
				t.Errorf("empty id err = %v", err)
			}
		})
	}
}

func TestDialectFor(t *testing.T) {
	tests := map[string]repository.Dialect{
		"postgres://u:p@localhost:5432/menus":     repository.DialectPostgres,
		"POSTGRESQL://localhost/menus":            repository.DialectPostgres,
		"./data/menus.db":                         repository.DialectSQLite,
		":memory:":                                repository.DialectSQLite,
		"file:menus.db?_pragma=journal_mode(WAL)": repository.DialectSQLite,
	}
	for dsn, want := range tests {
		if got := repository.DialectFor(dsn); got != want {
			t.Errorf("DialectFor(%q) = %q, want %q", dsn, got, want)
		}
	}
}
