package mariadb

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/querydesk/querydesk/internal/query"
)

var describeColumns = []string{"Field", "Type", "Null", "Key", "Default", "Extra"}

func TestDescribeReturnsColumnsInOrder(t *testing.T) {
	db, mock := newSQLMock(t)
	engine := NewEngine(db, time.Second)

	mock.ExpectQuery(regexp.QuoteMeta("DESCRIBE `SUPPLIER_VIEW`")).
		WillReturnRows(sqlmock.NewRows(describeColumns).
			AddRow([]byte("SupplierID"), []byte("int(11)"), "NO", "", nil, "").
			AddRow([]byte("CompanyName"), []byte("varchar(40)"), "NO", "", nil, "").
			AddRow("Country", "varchar(15)", "YES", "", nil, ""))

	got, err := engine.Describe(context.Background(), "SUPPLIER_VIEW")
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	want := query.SchemaDescription{
		View: "SUPPLIER_VIEW",
		Columns: []query.Column{
			{Name: "SupplierID", Type: "int(11)"},
			{Name: "CompanyName", Type: "varchar(40)"},
			{Name: "Country", Type: "varchar(15)"},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Describe() = %#v, want %#v", got, want)
	}
	assertSQLMock(t, mock)
}

func TestDescribeIsIdempotent(t *testing.T) {
	db, mock := newSQLMock(t)
	engine := NewEngine(db, time.Second)

	for i := 0; i < 2; i++ {
		mock.ExpectQuery(regexp.QuoteMeta("DESCRIBE `SUPPLIER_VIEW`")).
			WillReturnRows(sqlmock.NewRows(describeColumns).
				AddRow("SupplierID", "int(11)", "NO", "", nil, "").
				AddRow("City", "varchar(15)", "YES", "", nil, ""))
	}

	first, err := engine.Describe(context.Background(), "SUPPLIER_VIEW")
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	second, err := engine.Describe(context.Background(), "SUPPLIER_VIEW")
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if first.Render() != second.Render() {
		t.Fatalf("Render() differs:\n%s\n---\n%s", first.Render(), second.Render())
	}
	assertSQLMock(t, mock)
}

func TestDescribeMissingViewFails(t *testing.T) {
	db, mock := newSQLMock(t)
	engine := NewEngine(db, time.Second)

	mock.ExpectQuery(regexp.QuoteMeta("DESCRIBE `SUPPLIER_VIEW`")).
		WillReturnError(errors.New("Error 1146: Table 'data_db.SUPPLIER_VIEW' doesn't exist"))

	_, err := engine.Describe(context.Background(), "SUPPLIER_VIEW")
	if err == nil || !strings.Contains(err.Error(), "doesn't exist") {
		t.Fatalf("Describe() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestDescribeRejectsUnsafeViewName(t *testing.T) {
	db, mock := newSQLMock(t)
	engine := NewEngine(db, time.Second)

	if _, err := engine.Describe(context.Background(), "v`; DROP TABLE x"); err == nil {
		t.Fatal("Describe() expected error for unsafe view name")
	}
	assertSQLMock(t, mock)
}

func TestExecuteScansRowsIntoMaps(t *testing.T) {
	db, mock := newSQLMock(t)
	engine := NewEngine(db, time.Second)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT CompanyName, Country FROM SUPPLIER_VIEW WHERE Country='USA'")).
		WillReturnRows(sqlmock.NewRows([]string{"CompanyName", "Country"}).
			AddRow([]byte("New Orleans Cajun Delights"), []byte("USA")).
			AddRow([]byte("Grandma Kelly's Homestead"), []byte("USA")))

	sqlText := "SELECT CompanyName, Country FROM SUPPLIER_VIEW WHERE Country='USA';"
	result, err := engine.Execute(context.Background(), sqlText)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Query != sqlText {
		t.Fatalf("Query = %q", result.Query)
	}
	if result.RowCount != 2 || len(result.Rows) != 2 {
		t.Fatalf("RowCount = %d, len(Rows) = %d", result.RowCount, len(result.Rows))
	}
	if !reflect.DeepEqual(result.Columns, []string{"CompanyName", "Country"}) {
		t.Fatalf("Columns = %#v", result.Columns)
	}
	if result.Rows[1]["CompanyName"] != "Grandma Kelly's Homestead" {
		t.Fatalf("Rows[1] = %#v", result.Rows[1])
	}
	if got := result.Values(result.Rows[0]); !reflect.DeepEqual(got, []any{"New Orleans Cajun Delights", "USA"}) {
		t.Fatalf("Values() = %#v", got)
	}
	assertSQLMock(t, mock)
}

func TestExecuteEmptyResultIsNotNil(t *testing.T) {
	db, mock := newSQLMock(t)
	engine := NewEngine(db, time.Second)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM SUPPLIER_VIEW WHERE City='Atlantis'")).
		WillReturnRows(sqlmock.NewRows([]string{"SupplierID"}))

	result, err := engine.Execute(context.Background(), "SELECT * FROM SUPPLIER_VIEW WHERE City='Atlantis'")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Rows == nil || result.RowCount != 0 {
		t.Fatalf("Rows = %#v, RowCount = %d", result.Rows, result.RowCount)
	}
	assertSQLMock(t, mock)
}

func TestExecutePropagatesDatabaseError(t *testing.T) {
	db, mock := newSQLMock(t)
	engine := NewEngine(db, time.Second)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT Nope FROM SUPPLIER_VIEW")).
		WillReturnError(errors.New("Error 1054: Unknown column 'Nope' in 'field list'"))

	_, err := engine.Execute(context.Background(), "SELECT Nope FROM SUPPLIER_VIEW")
	if err == nil || !strings.Contains(err.Error(), "Unknown column") {
		t.Fatalf("Execute() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestExecuteRejectsBlankStatement(t *testing.T) {
	db, _ := newSQLMock(t)
	if _, err := NewEngine(db, 0).Execute(context.Background(), " ; "); err == nil {
		t.Fatal("Execute() expected error for blank statement")
	}
}

func TestHardenDSNDisablesMultiStatements(t *testing.T) {
	got, err := hardenDSN("root:pw@tcp(127.0.0.1:3307)/data_db?multiStatements=true")
	if err != nil {
		t.Fatalf("hardenDSN() error = %v", err)
	}
	if strings.Contains(got, "multiStatements=true") {
		t.Fatalf("hardenDSN() = %q", got)
	}
	if !strings.Contains(got, "parseTime=true") {
		t.Fatalf("hardenDSN() = %q, want parseTime", got)
	}
	if _, err := hardenDSN(""); err == nil {
		t.Fatal("hardenDSN(\"\") expected error")
	}
}

func newSQLMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "mysql"), mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}
