package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
)

func newIndexWithMock(t *testing.T) (*EmbeddingIndex, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewEmbeddingIndex(db, "documentos_pdf", nil), mock, func() { _ = db.Close() }
}

func TestSearchByVectorMapsRows(t *testing.T) {
	index, mock, done := newIndexWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"document", "cmetadata", "distance"}).
		AddRow("Employees get 30 days.", []byte(`{"source":"/data/handbook.pdf","page":4}`), 0.12).
		AddRow("Carry-over is capped.", nil, 0.31)
	mock.ExpectQuery("SELECT e.document, e.cmetadata").
		WithArgs("[0.5,-0.25]", "documentos_pdf", 2).
		WillReturnRows(rows)

	results, err := index.SearchByVector(context.Background(), []float32{0.5, -0.25}, 2)
	if err != nil {
		t.Fatalf("SearchByVector() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	first := results[0]
	if first.SourceID != "/data/handbook.pdf" || first.Page == nil || *first.Page != 4 || first.Distance != 0.12 {
		t.Fatalf("unexpected first result: %+v", first)
	}
	if results[1].SourceID != "" || results[1].Page != nil {
		t.Fatalf("expected empty metadata for second result, got %+v", results[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchByVectorWrapsQueryError(t *testing.T) {
	index, mock, done := newIndexWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT e.document").WillReturnError(errors.New("relation does not exist"))

	_, err := index.SearchByVector(context.Background(), []float32{1}, 3)
	if !domain.IsKind(err, domain.ErrRetrieval) {
		t.Fatalf("expected ErrRetrieval, got %v", err)
	}
}

func TestSearchByVectorRejectsEmptyVector(t *testing.T) {
	index, _, done := newIndexWithMock(t)
	defer done()

	_, err := index.SearchByVector(context.Background(), nil, 3)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCollectionExists(t *testing.T) {
	index, mock, done := newIndexWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("documentos_pdf").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := index.CollectionExists(context.Background())
	if err != nil || !ok {
		t.Fatalf("CollectionExists() = %v, %v", ok, err)
	}
}

func TestParseMetadataPageAsString(t *testing.T) {
	source, page := parseMetadata([]byte(`{"source":"a.pdf","page":"7"}`))
	if source != "a.pdf" || page == nil || *page != 7 {
		t.Fatalf("unexpected metadata: %s %v", source, page)
	}
}
