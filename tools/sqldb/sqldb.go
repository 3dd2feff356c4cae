// Package sqldb provides a read-only SQL query tool backed by database/sql.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenttools/pkg/llmutils"
	"github.com/effective-security/agenttools/pkg/schema"
	"github.com/effective-security/agenttools/tools"
	"github.com/effective-security/xlog"

	// registers the pgx driver with database/sql
	_ "github.com/jackc/pgx/v5/stdlib"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/agenttools", "sqldb")

const (
	QueryToolName       = "SQLQuery"
	ListTablesToolName  = "SQLListTables"
	DescribeTableName   = "SQLDescribeTable"
	defaultMaxRows      = 100
	defaultQueryTimeout = 30 * time.Second
)

// mutatingKeywords are rejected anywhere outside string literals.
// "into" blocks SELECT INTO, "copy" blocks COPY FROM.
var mutatingKeywords = []string{
	"insert", "update", "delete", "drop", "alter", "create",
	"truncate", "grant", "revoke", "merge", "call", "exec", "execute",
	"into", "copy",
}

// Config holds the database handle and query limits.
type Config struct {
	DB *sql.DB
	// MaxRows caps the number of rows returned, 100 by default.
	MaxRows int
	// Timeout bounds a single query, 30 seconds by default.
	Timeout time.Duration
}

// Open connects to a PostgreSQL database with the pgx driver.
func Open(dataSource string) (*Config, error) {
	db, err := sql.Open("pgx", dataSource)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	return &Config{DB: db}, nil
}

func (c *Config) maxRows() int {
	if c.MaxRows > 0 {
		return c.MaxRows
	}
	return defaultMaxRows
}

func (c *Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultQueryTimeout
}

// CheckQuery rejects statements that could mutate the database.
// Keywords are matched outside single-quoted string literals,
// and only a single statement is permitted.
func CheckQuery(query string) error {
	var sb strings.Builder
	inString := false
	for _, r := range query {
		if r == '\'' {
			inString = !inString
			sb.WriteRune(' ')
			continue
		}
		if inString {
			sb.WriteRune(' ')
			continue
		}
		sb.WriteRune(r)
	}
	stripped := sb.String()

	if idx := strings.IndexRune(stripped, ';'); idx >= 0 &&
		strings.TrimSpace(stripped[idx+1:]) != "" {
		return errors.New("multiple statements are not allowed")
	}

	lower := strings.ToLower(stripped)
	for _, kw := range mutatingKeywords {
		idx := 0
		for {
			pos := strings.Index(lower[idx:], kw)
			if pos < 0 {
				break
			}
			pos += idx
			before := pos == 0 || !isWordChar(lower[pos-1])
			afterIdx := pos + len(kw)
			after := afterIdx >= len(lower) || !isWordChar(lower[afterIdx])
			if before && after {
				return errors.Errorf("mutating statements are not allowed: %s", kw)
			}
			idx = pos + len(kw)
		}
	}
	return nil
}

func isWordChar(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// QueryRequest represents the query tool input.
type QueryRequest struct {
	Query string `json:"Query" jsonschema:"title=Query,description=A single read-only SQL statement." validate:"required"`
}

// QueryResult represents the query tool output.
type QueryResult struct {
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	RowCount  int        `json:"row_count"`
	Truncated bool       `json:"truncated,omitempty"`
}

func (r *QueryResult) GetContent() string {
	return llmutils.ToJSON(r)
}

func (r *QueryResult) String() string {
	var sb strings.Builder
	sb.WriteString(strings.Join(r.Columns, " | "))
	sb.WriteString("\n")
	for _, row := range r.Rows {
		sb.WriteString(strings.Join(row, " | "))
		sb.WriteString("\n")
	}
	if r.Truncated {
		sb.WriteString("(truncated)\n")
	}
	return sb.String()
}

// QueryTool executes read-only SQL queries.
type QueryTool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[QueryRequest, QueryResult] = (*QueryTool)(nil)

func NewQueryTool(cfg *Config) (*QueryTool, error) {
	if cfg == nil || cfg.DB == nil {
		return nil, errors.New("database handle is required")
	}
	sc, err := schema.New(reflect.TypeOf(QueryRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &QueryTool{cfg: cfg, funcParams: sc.Parameters}, nil
}

func (t *QueryTool) Name() string { return QueryToolName }

func (t *QueryTool) Description() string {
	return "Executes a single read-only SQL query and returns columns and rows. Mutating statements are rejected."
}

func (t *QueryTool) Parameters() any { return t.funcParams }

func (t *QueryTool) Run(ctx context.Context, req *QueryRequest) (*QueryResult, error) {
	if err := CheckQuery(req.Query); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.timeout())
	defer cancel()

	logger.KV(xlog.DEBUG, "query", llmutils.TruncateString(req.Query, 256))

	rows, err := t.cfg.DB.QueryContext(ctx, req.Query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read columns")
	}

	maxRows := t.cfg.maxRows()
	res := &QueryResult{Columns: cols}
	for rows.Next() {
		if len(res.Rows) >= maxRows {
			res.Truncated = true
			break
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			row[i] = formatValue(v)
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read rows")
	}
	res.RowCount = len(res.Rows)
	return res, nil
}

func formatValue(v any) string {
	switch tv := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(tv)
	case time.Time:
		return tv.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", tv)
	}
}

func (t *QueryTool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[QueryRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

// ListTablesRequest represents the list-tables tool input.
type ListTablesRequest struct {
	Schema string `json:"Schema,omitempty" jsonschema:"title=Schema,description=The schema to list tables from (default public)."`
}

// ListTablesResult represents the list-tables tool output.
type ListTablesResult struct {
	Tables []string `json:"tables"`
}

func (r *ListTablesResult) GetContent() string {
	return llmutils.ToJSON(r)
}

func (r *ListTablesResult) String() string {
	return strings.Join(r.Tables, "\n")
}

// ListTablesTool lists tables from information_schema.
type ListTablesTool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[ListTablesRequest, ListTablesResult] = (*ListTablesTool)(nil)

func NewListTablesTool(cfg *Config) (*ListTablesTool, error) {
	if cfg == nil || cfg.DB == nil {
		return nil, errors.New("database handle is required")
	}
	sc, err := schema.New(reflect.TypeOf(ListTablesRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &ListTablesTool{cfg: cfg, funcParams: sc.Parameters}, nil
}

func (t *ListTablesTool) Name() string { return ListTablesToolName }

func (t *ListTablesTool) Description() string {
	return "Lists the tables in a database schema."
}

func (t *ListTablesTool) Parameters() any { return t.funcParams }

func (t *ListTablesTool) Run(ctx context.Context, req *ListTablesRequest) (*ListTablesResult, error) {
	schemaName := req.Schema
	if schemaName == "" {
		schemaName = "public"
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.timeout())
	defer cancel()

	rows, err := t.cfg.DB.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables WHERE table_schema = $1 ORDER BY table_name`,
		schemaName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tables")
	}
	defer rows.Close()

	res := &ListTablesResult{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		res.Tables = append(res.Tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read rows")
	}
	return res, nil
}

func (t *ListTablesTool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[ListTablesRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

// DescribeTableRequest represents the describe-table tool input.
type DescribeTableRequest struct {
	Table  string `json:"Table" jsonschema:"title=Table,description=The table name." validate:"required"`
	Schema string `json:"Schema,omitempty" jsonschema:"title=Schema,description=The schema (default public)."`
}

// Column describes a table column.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// DescribeTableResult represents the describe-table tool output.
type DescribeTableResult struct {
	Table   string   `json:"table"`
	Columns []Column `json:"columns"`
}

func (r *DescribeTableResult) GetContent() string {
	return llmutils.ToJSON(r)
}

func (r *DescribeTableResult) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:\n", r.Table)
	for _, c := range r.Columns {
		null := "NOT NULL"
		if c.Nullable {
			null = "NULL"
		}
		fmt.Fprintf(&sb, "  %s %s %s\n", c.Name, c.Type, null)
	}
	return sb.String()
}

// DescribeTableTool returns column definitions from information_schema.
type DescribeTableTool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[DescribeTableRequest, DescribeTableResult] = (*DescribeTableTool)(nil)

func NewDescribeTableTool(cfg *Config) (*DescribeTableTool, error) {
	if cfg == nil || cfg.DB == nil {
		return nil, errors.New("database handle is required")
	}
	sc, err := schema.New(reflect.TypeOf(DescribeTableRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &DescribeTableTool{cfg: cfg, funcParams: sc.Parameters}, nil
}

func (t *DescribeTableTool) Name() string { return DescribeTableName }

func (t *DescribeTableTool) Description() string {
	return "Describes the columns of a table: name, type and nullability."
}

func (t *DescribeTableTool) Parameters() any { return t.funcParams }

func (t *DescribeTableTool) Run(ctx context.Context, req *DescribeTableRequest) (*DescribeTableResult, error) {
	schemaName := req.Schema
	if schemaName == "" {
		schemaName = "public"
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.timeout())
	defer cancel()

	rows, err := t.cfg.DB.QueryContext(ctx,
		`SELECT column_name, data_type, is_nullable FROM information_schema.columns
		 WHERE table_schema = $1 AND table_name = $2 ORDER BY ordinal_position`,
		schemaName, req.Table)
	if err != nil {
		return nil, errors.Wrap(err, "failed to describe table")
	}
	defer rows.Close()

	res := &DescribeTableResult{Table: req.Table}
	for rows.Next() {
		var col Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		col.Nullable = strings.EqualFold(nullable, "YES")
		res.Columns = append(res.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read rows")
	}
	if len(res.Columns) == 0 {
		return nil, errors.Errorf("table not found: %s.%s", schemaName, req.Table)
	}
	return res, nil
}

func (t *DescribeTableTool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[DescribeTableRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}
