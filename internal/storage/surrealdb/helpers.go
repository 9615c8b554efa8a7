package surrealdb

import (
	"context"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

// isNotFoundError reports whether a SurrealDB error indicates a missing
// record rather than a storage failure.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "no record")
}

// querySlice runs a SurrealQL query and unwraps the first result set into a
// slice of pointers. A nil or empty result set returns nil without error.
func querySlice[T any](ctx context.Context, db *surrealdb.DB, sql string, vars map[string]any) ([]*T, error) {
	results, err := surrealdb.Query[[]T](ctx, db, sql, vars)
	if err != nil {
		return nil, err
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	var mapped []*T
	for i := range (*results)[0].Result {
		mapped = append(mapped, &(*results)[0].Result[i])
	}
	return mapped, nil
}

// countResult is the row shape of "SELECT count() AS cnt ... GROUP ALL".
type countResult struct {
	Cnt int `json:"cnt"`
}

// queryCount runs a counting query and returns the single count value.
func queryCount(ctx context.Context, db *surrealdb.DB, sql string, vars map[string]any) (int, error) {
	rows, err := querySlice[countResult](ctx, db, sql, vars)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Cnt, nil
}
