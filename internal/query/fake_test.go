package query

import (
	"context"
	"strings"
	"sync"

	"datamart/internal/warehouse"
)

type fakeResponse struct {
	contains string
	recs     []warehouse.Record
	err      error
}

// fakeStore answers with the first response whose marker appears in the SQL.
type fakeStore struct {
	dialect   warehouse.Dialect
	responses []fakeResponse

	mu    sync.Mutex
	calls []string
}

func (f *fakeStore) Dialect() warehouse.Dialect { return f.dialect }

func (f *fakeStore) Query(_ context.Context, q string, _ ...any) ([]warehouse.Record, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q)
	f.mu.Unlock()

	for _, r := range f.responses {
		if strings.Contains(q, r.contains) {
			return r.recs, r.err
		}
	}
	return []warehouse.Record{}, nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
