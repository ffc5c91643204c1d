package catalog

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/openshelf/bookdex/internal/db/mysql"
	"github.com/openshelf/bookdex/internal/domain/search"
	"github.com/openshelf/bookdex/internal/domain/topic"
)

func TestSearch_PassesArgsThrough(t *testing.T) {
	sqldb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer sqldb.Close()

	q, _ := search.NewQuery("pride", search.CriteriaAny, "English", "", 25, 2)

	mock.ExpectQuery(`SELECT MD5, Title, Author, .+ FROM fiction WHERE MATCH`).
		WithArgs("pride", "pride", "English", 25, 25).
		WillReturnRows(sqlmock.NewRows([]string{"MD5", "Title", "Author"}).
			AddRow("abc", "Pride", "Austen"))

	repo := New(mysql.NewClientForTest(sqldb))
	rows, err := repo.Search(context.Background(), topic.Fiction, q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0]["Title"] != "Pride" {
		t.Errorf("rows = %v", rows)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCount(t *testing.T) {
	sqldb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer sqldb.Close()

	q, _ := search.NewQuery("pride", search.CriteriaAny, "", "", 25, 1)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM updated WHERE MATCH`).
		WithArgs("pride").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(40))

	repo := New(mysql.NewClientForTest(sqldb))
	n, err := repo.Count(context.Background(), topic.SciTech, q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 40 {
		t.Errorf("count = %d, want 40", n)
	}
}

func TestMetadata_UnknownMD5ReturnsNil(t *testing.T) {
	sqldb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer sqldb.Close()

	mock.ExpectQuery(`SELECT t\.Title, .+ FROM updated t LEFT JOIN description d`).
		WithArgs("ffffffffffffffffffffffffffffffff").
		WillReturnRows(sqlmock.NewRows([]string{"Title"}))

	repo := New(mysql.NewClientForTest(sqldb))
	row, err := repo.Metadata(context.Background(), topic.SciTech, "ffffffffffffffffffffffffffffffff")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row != nil {
		t.Errorf("row = %v, want nil", row)
	}
}
