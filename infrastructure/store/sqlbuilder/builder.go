// ABOUTME: Safe SQL query builder shared by the SQLite and Postgres listing stores
// ABOUTME: Identifiers are validated, values are always parameterized, placeholders follow the dialect

package sqlbuilder

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Dialect selects the placeholder syntax
type Dialect int

// FoldFunction is the SQL function the Question dialect uses for case folding.
// SQLite's LOWER only folds ASCII, so SQLite connections must register it.
const FoldFunction = "fold"

const (
	// Question renders placeholders as ? (SQLite)
	Question Dialect = iota

	// Dollar renders placeholders as $1, $2, ... (Postgres)
	Dollar
)

var safeNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var allowedOperators = map[string]bool{
	"=":  true,
	"!=": true,
	">":  true,
	"<":  true,
	">=": true,
	"<=": true,
}

// QueryBuilder provides a safe way to build SQL queries with automatic parameterization
type QueryBuilder struct {
	dialect    Dialect
	head       string
	conditions []string
	tail       string
	params     []interface{}
	err        error
}

// NewQueryBuilder creates a new query builder instance
func NewQueryBuilder(dialect Dialect) *QueryBuilder {
	return &QueryBuilder{
		dialect: dialect,
		params:  make([]interface{}, 0),
	}
}

// ValidateName validates table/column names to prevent SQL injection
func ValidateName(name string) error {
	if name == "" {
		return errors.New("name cannot be empty")
	}
	if !safeNamePattern.MatchString(name) {
		return fmt.Errorf("invalid name: %s (only alphanumeric and underscore allowed)", name)
	}
	if len(name) > 64 {
		return fmt.Errorf("name too long: %s (max 64 characters)", name)
	}
	return nil
}

func (qb *QueryBuilder) check(names ...string) bool {
	if qb.err != nil {
		return false
	}
	for _, n := range names {
		if err := ValidateName(n); err != nil {
			qb.err = err
			return false
		}
	}
	return true
}

func (qb *QueryBuilder) placeholder(value interface{}) string {
	qb.params = append(qb.params, value)
	if qb.dialect == Dollar {
		return "$" + strconv.Itoa(len(qb.params))
	}
	return "?"
}

func (qb *QueryBuilder) fold(column string) string {
	if qb.dialect == Question {
		return FoldFunction + "(" + column + ")"
	}
	return "LOWER(" + column + ")"
}

// Select builds a SELECT query
func (qb *QueryBuilder) Select(table string, columns ...string) *QueryBuilder {
	if !qb.check(append([]string{table}, columns...)...) {
		return qb
	}
	cols := "*"
	if len(columns) > 0 {
		cols = strings.Join(columns, ", ")
	}
	qb.head = "SELECT " + cols + " FROM " + table
	return qb
}

// Delete builds a DELETE query
func (qb *QueryBuilder) Delete(table string) *QueryBuilder {
	if !qb.check(table) {
		return qb
	}
	qb.head = "DELETE FROM " + table
	return qb
}

// Insert builds an INSERT query with one placeholder per column
func (qb *QueryBuilder) Insert(table string, columns []string, values []interface{}) *QueryBuilder {
	if len(columns) != len(values) {
		qb.err = fmt.Errorf("insert: %d columns but %d values", len(columns), len(values))
		return qb
	}
	if !qb.check(append([]string{table}, columns...)...) {
		return qb
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = qb.placeholder(v)
	}
	qb.head = "INSERT INTO " + table + " (" + strings.Join(columns, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")"
	return qb
}

// Update builds an UPDATE query setting each column
func (qb *QueryBuilder) Update(table string, columns []string, values []interface{}) *QueryBuilder {
	if len(columns) != len(values) {
		qb.err = fmt.Errorf("update: %d columns but %d values", len(columns), len(values))
		return qb
	}
	if !qb.check(append([]string{table}, columns...)...) {
		return qb
	}
	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = c + " = " + qb.placeholder(values[i])
	}
	qb.head = "UPDATE " + table + " SET " + strings.Join(sets, ", ")
	return qb
}

// Where adds a parameterized condition; conditions are joined with AND
func (qb *QueryBuilder) Where(column string, operator string, value interface{}) *QueryBuilder {
	if !qb.check(column) {
		return qb
	}
	if !allowedOperators[operator] {
		qb.err = fmt.Errorf("operator %q not allowed", operator)
		return qb
	}
	qb.conditions = append(qb.conditions, column+" "+operator+" "+qb.placeholder(value))
	return qb
}

// WhereFold adds a case-insensitive equality condition
func (qb *QueryBuilder) WhereFold(column string, value string) *QueryBuilder {
	if !qb.check(column) {
		return qb
	}
	qb.conditions = append(qb.conditions, qb.fold(column)+" = "+qb.placeholder(strings.ToLower(value)))
	return qb
}

// WhereContainsFold adds a case-insensitive substring condition
func (qb *QueryBuilder) WhereContainsFold(column string, substr string) *QueryBuilder {
	if !qb.check(column) {
		return qb
	}
	pattern := "%" + escapeLike(strings.ToLower(substr)) + "%"
	qb.conditions = append(qb.conditions, qb.fold(column)+" LIKE "+qb.placeholder(pattern)+` ESCAPE '\'`)
	return qb
}

// WhereBetween adds optional inclusive bounds. A bounded column must be non-null.
func (qb *QueryBuilder) WhereBetween(column string, min, max *int64) *QueryBuilder {
	if min == nil && max == nil {
		return qb
	}
	if min != nil {
		qb.Where(column, ">=", *min)
	}
	if max != nil {
		qb.Where(column, "<=", *max)
	}
	return qb
}

// OrderBy appends an ORDER BY clause
func (qb *QueryBuilder) OrderBy(columns ...string) *QueryBuilder {
	names := make([]string, len(columns))
	parts := make([]string, len(columns))
	for i, c := range columns {
		name, dir := c, ""
		if strings.HasSuffix(c, " DESC") {
			name, dir = strings.TrimSuffix(c, " DESC"), " DESC"
		}
		names[i] = name
		parts[i] = name + dir
	}
	if !qb.check(names...) {
		return qb
	}
	qb.tail += " ORDER BY " + strings.Join(parts, ", ")
	return qb
}

// Suffix appends a fixed clause such as FOR UPDATE
func (qb *QueryBuilder) Suffix(clause string) *QueryBuilder {
	qb.tail += " " + clause
	return qb
}

// Build returns the built query and parameters, or the first validation error
func (qb *QueryBuilder) Build() (string, []interface{}, error) {
	if qb.err != nil {
		return "", nil, qb.err
	}
	if qb.head == "" {
		return "", nil, errors.New("query has no statement")
	}
	query := qb.head
	if len(qb.conditions) > 0 {
		query += " WHERE " + strings.Join(qb.conditions, " AND ")
	}
	query += qb.tail
	return query, qb.params, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
