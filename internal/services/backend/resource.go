package backend

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"worldbuilder/internal/apiclient"
	"worldbuilder/internal/services"
)

// Query holds PostgREST filters. Eq values are matched with eq.; Order is
// either "column" or "column.desc".
type Query struct {
	Columns []string
	Eq      map[string]string
	Order   string
	Limit   int
	Offset  int
}

// Values encodes the query as PostgREST URL parameters.
func (q Query) Values() url.Values {
	values := url.Values{}
	if len(q.Columns) > 0 {
		values.Set("select", strings.Join(q.Columns, ","))
	}
	keys := make([]string, 0, len(q.Eq))
	for key := range q.Eq {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		values.Set(key, "eq."+q.Eq[key])
	}
	if order := strings.TrimSpace(q.Order); order != "" {
		if !strings.Contains(order, ".") {
			order += ".asc"
		}
		values.Set("order", order)
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		values.Set("offset", strconv.Itoa(q.Offset))
	}
	return values
}

// Resource addresses one table.
type Resource struct {
	transport *apiclient.Transport
	name      string
	path      string
}

// Name returns the registered table name.
func (r *Resource) Name() string {
	return r.name
}

// Select reads rows matching q.
func Select[T any](ctx context.Context, r *Resource, q Query) apiclient.Result[[]T] {
	var rows []T
	req := apiclient.Request{Method: http.MethodGet, URL: r.path, Query: q.Values()}
	if _, err := r.transport.Do(ctx, req, &rows); err != nil {
		return apiclient.Fail[[]T](services.FromTransport(serviceName, r.name+".select", err))
	}
	if rows == nil {
		rows = []T{}
	}
	return apiclient.OK(rows)
}

// Insert writes rows (a single row or a slice) and returns the stored
// representation.
func Insert[T any](ctx context.Context, r *Resource, rows any) apiclient.Result[[]T] {
	if rows == nil {
		return apiclient.Fail[[]T](services.Wrap(services.ErrValidation, serviceName, r.name+".insert", "no rows", nil))
	}
	var out []T
	req := apiclient.Request{
		Method:  http.MethodPost,
		URL:     r.path,
		Body:    rows,
		Headers: map[string]string{"Prefer": "return=representation"},
	}
	if _, err := r.transport.Do(ctx, req, &out); err != nil {
		return apiclient.Fail[[]T](services.FromTransport(serviceName, r.name+".insert", err))
	}
	return apiclient.OK(out)
}

// Update patches rows matching q. At least one Eq filter is required so a
// missing filter never rewrites the whole table.
func Update[T any](ctx context.Context, r *Resource, q Query, patch any) apiclient.Result[[]T] {
	if len(q.Eq) == 0 {
		return apiclient.Fail[[]T](services.Wrap(services.ErrValidation, serviceName, r.name+".update", "refusing update without filters", nil))
	}
	var out []T
	req := apiclient.Request{
		Method:  http.MethodPatch,
		URL:     r.path,
		Query:   Query{Eq: q.Eq}.Values(),
		Body:    patch,
		Headers: map[string]string{"Prefer": "return=representation"},
	}
	if _, err := r.transport.Do(ctx, req, &out); err != nil {
		return apiclient.Fail[[]T](services.FromTransport(serviceName, r.name+".update", err))
	}
	return apiclient.OK(out)
}

func first[T any](res apiclient.Result[[]T], op string) apiclient.Result[T] {
	rows, err := res.Get()
	if err != nil {
		return apiclient.Fail[T](err)
	}
	if len(rows) == 0 {
		return apiclient.Fail[T](services.Wrap(services.ErrNotFound, serviceName, op, "no rows returned", nil))
	}
	return apiclient.OK(rows[0])
}
