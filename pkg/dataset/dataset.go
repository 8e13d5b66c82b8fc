// Package dataset provides the embedded SQLite database shared by every
// table part in a scenario. Table parts hold only a table name; the rows
// live here.
package dataset

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/golang/glog"
	_ "github.com/mattn/go-sqlite3"
)

// Record is one row of a result set. Size and contents vary with the query.
type Record []any

// SQLExecError reports a failed statement together with the statement text.
type SQLExecError struct {
	Stmt string
	Err  error
}

func (e *SQLExecError) Error() string {
	return fmt.Sprintf("sql statement %q exec error: %v", e.Stmt, e.Err)
}

func (e *SQLExecError) Unwrap() error { return e.Err }

// DB is the scenario's embedded database. One instance is shared by all
// parts that need a SQL engine.
type DB struct {
	conn *sql.DB
}

// Open opens the database at path; an empty path opens an in-memory
// database, which is the normal mode for a running scenario.
func Open(path string) (*DB, error) {
	if path == "" {
		path = ":memory:"
	}
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	// in-memory databases vanish per connection, so keep exactly one
	conn.SetMaxOpenConns(1)
	return &DB{conn: conn}, nil
}

// Close shuts the connection down. The DB is unusable afterwards.
func (d *DB) Close() error { return d.conn.Close() }

// Exec runs one statement with optional parameters.
func (d *DB) Exec(stmt string, args ...any) error {
	if _, err := d.conn.Exec(stmt, args...); err != nil {
		glog.Errorf("dataset exec failed: %v", err)
		return &SQLExecError{Stmt: stmt, Err: err}
	}
	return nil
}

// ExecScript runs multiple semicolon-separated statements as one script.
func (d *DB) ExecScript(statements string) error {
	if _, err := d.conn.Exec(statements); err != nil {
		first := statements
		if i := strings.IndexByte(first, '\n'); i >= 0 {
			first = first[:i]
		}
		glog.Errorf("dataset script (starting with %q) failed: %v", first, err)
		return &SQLExecError{Stmt: first, Err: err}
	}
	return nil
}

// Query runs a statement and returns every row of its result set.
func (d *DB) Query(stmt string, args ...any) ([]Record, error) {
	rows, err := d.conn.Query(stmt, args...)
	if err != nil {
		return nil, &SQLExecError{Stmt: stmt, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Record
	for rows.Next() {
		rec := make(Record, len(cols))
		ptrs := make([]any, len(cols))
		for i := range rec {
			ptrs[i] = &rec[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CreateTable creates a table with the given column spec, a comma-separated
// list of column definitions. Existing tables are left alone.
func (d *DB) CreateTable(name, columns string) error {
	return d.Exec(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", NormalizeName(name), columns))
}

// DropTable removes a table and its data.
func (d *DB) DropTable(name string) error {
	return d.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", NormalizeName(name)))
}

// TableNames lists the user tables in the database, in name order.
func (d *DB) TableNames() ([]string, error) {
	recs, err := d.Query(
		"SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(recs))
	for _, r := range recs {
		names = append(names, fmt.Sprint(r[0]))
	}
	return names, nil
}

// ColumnNames lists a table's columns in declaration order.
func (d *DB) ColumnNames(table string) ([]string, error) {
	recs, err := d.Query(fmt.Sprintf("PRAGMA table_info(%s)", NormalizeName(table)))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("no such table %q", table)
	}
	names := make([]string, 0, len(recs))
	for _, r := range recs {
		// pragma columns are cid, name, type, notnull, dflt_value, pk
		names = append(names, fmt.Sprint(r[1]))
	}
	return names, nil
}

// InsertRow appends one row of positional values to a table.
func (d *DB) InsertRow(table string, values ...any) error {
	marks := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
	return d.Exec(
		fmt.Sprintf("INSERT INTO %s VALUES (%s)", NormalizeName(table), marks), values...)
}

// Rows fetches rows from a table. fields may be "*" or a comma-separated
// column list; where and limit are optional ("" and 0 mean unrestricted).
func (d *DB) Rows(table, fields, where string, limit int) ([]Record, error) {
	return d.Query(SelectStatement(table, fields, where, limit))
}

// TableDataMatches searches a window of a table's rows for a cell whose text
// contains the pattern, case-insensitively. It returns the name of the first
// column with a hit, or "" when nothing matches.
func (d *DB) TableDataMatches(table, pattern string, firstRow, numRows int) (string, error) {
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(pattern))
	if err != nil {
		return "", err
	}
	cols, err := d.ColumnNames(table)
	if err != nil {
		return "", err
	}
	recs, err := d.Query(fmt.Sprintf(
		"SELECT * FROM %s WHERE rowid>=? AND rowid<=?", NormalizeName(table)),
		firstRow, firstRow+numRows)
	if err != nil {
		return "", err
	}
	for _, rec := range recs {
		for i, cell := range rec {
			if re.MatchString(fmt.Sprint(cell)) {
				return cols[i], nil
			}
		}
	}
	return "", nil
}

// NormalizeName surrounds a table or column name with [] unless it already
// carries them, so names with spaces stay valid in statements.
func NormalizeName(name string) string {
	if !strings.HasPrefix(name, "[") && !strings.HasSuffix(name, "]") {
		return "[" + name + "]"
	}
	return name
}

// SelectStatement builds a SELECT over one table. fields defaults to all
// columns; where and limit are appended only when given.
func SelectStatement(table, fields, where string, limit int) string {
	if fields == "" {
		fields = "*"
	}
	stmt := fmt.Sprintf("SELECT %s FROM %s", fields, NormalizeName(table))
	if where != "" {
		stmt += " WHERE " + where
	}
	if limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", limit)
	}
	return stmt
}
