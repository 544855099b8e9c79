package service_test

import (
	"context"
	"sync"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/domain"
)

// fakeClient is an in-memory SearchClient.
type fakeClient struct {
	mu       sync.Mutex
	indexes  map[string]bool
	puts     map[string][]byte
	bulk     [][]domain.BulkItem
	updates  map[string][]byte
	lastReq  *domain.SearchRequest
	groupBy  []domain.GroupByItem
	sqlQuery string
	err      error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		indexes: make(map[string]bool),
		puts:    make(map[string][]byte),
		updates: make(map[string][]byte),
	}
}

func (f *fakeClient) IndexExists(_ context.Context, index string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.indexes[index], f.err
}

func (f *fakeClient) CreateIndex(_ context.Context, index string, _ map[string]any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.indexes[index] {
		return false, nil
	}
	f.indexes[index] = true
	return true, nil
}

func (f *fakeClient) DeleteIndex(_ context.Context, index string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.indexes, index)
	return f.err
}

func (f *fakeClient) PutDocument(_ context.Context, index, id string, payload []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == "" {
		id = "generated"
	}
	f.puts[index+"/"+id] = payload
	return id, f.err
}

func (f *fakeClient) GetDocument(_ context.Context, index, id string) (*domain.Hit, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Hit{Index: index, ID: id}, nil
}

func (f *fakeClient) UpdateDocument(_ context.Context, index, id string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[index+"/"+id] = payload
	return f.err
}

func (f *fakeClient) DeleteDocument(_ context.Context, _, id string) (bool, error) {
	return id != "missing", f.err
}

func (f *fakeClient) BulkWrite(_ context.Context, _ string, items []domain.BulkItem) (*domain.BulkResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.bulk = append(f.bulk, items)
	return &domain.BulkResult{Items: len(items)}, nil
}

func (f *fakeClient) SearchQueryString(_ context.Context, req *domain.SearchRequest) (*domain.SearchResult, error) {
	f.lastReq = req
	return &domain.SearchResult{Total: 1, Hits: []domain.Hit{{Index: req.Index, ID: "1"}}}, f.err
}

func (f *fakeClient) GroupBy(context.Context, string, string, string, int) ([]domain.GroupByItem, error) {
	return f.groupBy, f.err
}

func (f *fakeClient) SQLQuery(_ context.Context, query string, _ int) (*domain.SQLResult, error) {
	f.sqlQuery = query
	return &domain.SQLResult{}, f.err
}
