package hooks_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nulpointcorp/llm-gateway/internal/domain"
	"github.com/nulpointcorp/llm-gateway/internal/hooks"
)

type fakeHTTPClient struct {
	result domain.HookResult
	err    error
	calls  int
	mu     sync.Mutex
}

func (f *fakeHTTPClient) Do(_ context.Context, _ string, _ []byte) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return json.Marshal(f.result)
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func TestRun_DenyRequestShortCircuits(t *testing.T) {
	client := &fakeHTTPClient{result: domain.HookResult{DenyRequest: true}}
	ex := hooks.New(client, nil, newMemCache(), time.Hour)

	hookList := []domain.Hook{
		{ID: uuid.New(), Type: domain.HookTypeInput, Provider: domain.HookProviderHTTP, Config: map[string]any{"url": "http://example.test/hook"}},
	}
	logs, denied := ex.Run(context.Background(), domain.HookTypeInput, "chat_complete", hookList, []byte(`{}`), nil, false)
	if !denied {
		t.Fatal("expected deny_request to short-circuit")
	}
	if len(logs) != 1 || !logs[0].Result.DenyRequest {
		t.Errorf("logs = %+v", logs)
	}
}

func TestRun_PreservesInputOrder(t *testing.T) {
	client := &fakeHTTPClient{result: domain.HookResult{}}
	ex := hooks.New(client, nil, newMemCache(), time.Hour)

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	hookList := make([]domain.Hook, len(ids))
	for i, id := range ids {
		hookList[i] = domain.Hook{ID: id, Type: domain.HookTypeInput, Provider: domain.HookProviderHTTP, Config: map[string]any{"url": "http://example.test/hook"}}
	}

	logs, _ := ex.Run(context.Background(), domain.HookTypeInput, "chat_complete", hookList, []byte(`{}`), nil, false)
	if len(logs) != len(ids) {
		t.Fatalf("logs len = %d, want %d", len(logs), len(ids))
	}
	for i, id := range ids {
		if logs[i].HookID != id {
			t.Errorf("logs[%d].HookID = %v, want %v (input order not preserved)", i, logs[i].HookID, id)
		}
	}
}

func TestRun_FailureDoesNotDenyAndRecordsError(t *testing.T) {
	client := &fakeHTTPClient{err: errBoom}
	ex := hooks.New(client, nil, newMemCache(), time.Hour)

	hookList := []domain.Hook{
		{ID: uuid.New(), Type: domain.HookTypeInput, Provider: domain.HookProviderHTTP, Config: map[string]any{"url": "http://example.test/hook"}},
	}
	logs, denied := ex.Run(context.Background(), domain.HookTypeInput, "chat_complete", hookList, []byte(`{}`), nil, false)
	if denied {
		t.Fatal("a failing hook must not deny the request")
	}
	if logs[0].Error == "" {
		t.Error("expected hook log to record the error")
	}
	if logs[0].Result.DenyRequest {
		t.Error("failed hook result must have deny_request=false")
	}
}

func TestRun_CacheHitSkipsProviderCall(t *testing.T) {
	client := &fakeHTTPClient{result: domain.HookResult{}}
	c := newMemCache()
	ex := hooks.New(client, nil, c, time.Hour)

	hookList := []domain.Hook{
		{ID: uuid.New(), Type: domain.HookTypeInput, Provider: domain.HookProviderHTTP, CacheMode: domain.CacheModeSimple, Config: map[string]any{"url": "http://example.test/hook"}},
	}
	_, _ = ex.Run(context.Background(), domain.HookTypeInput, "chat_complete", hookList, []byte(`{}`), nil, false)
	if client.calls != 1 {
		t.Fatalf("first run calls = %d, want 1", client.calls)
	}

	_, _ = ex.Run(context.Background(), domain.HookTypeInput, "chat_complete", hookList, []byte(`{}`), nil, false)
	if client.calls != 1 {
		t.Errorf("second run calls = %d, want still 1 (cache hit)", client.calls)
	}
}

func TestRun_ForceRefreshBypassesCache(t *testing.T) {
	client := &fakeHTTPClient{result: domain.HookResult{}}
	c := newMemCache()
	ex := hooks.New(client, nil, c, time.Hour)

	hookList := []domain.Hook{
		{ID: uuid.New(), Type: domain.HookTypeInput, Provider: domain.HookProviderHTTP, CacheMode: domain.CacheModeSimple, Config: map[string]any{"url": "http://example.test/hook"}},
	}
	_, _ = ex.Run(context.Background(), domain.HookTypeInput, "chat_complete", hookList, []byte(`{}`), nil, false)
	_, _ = ex.Run(context.Background(), domain.HookTypeInput, "chat_complete", hookList, []byte(`{}`), nil, true)
	if client.calls != 2 {
		t.Errorf("calls = %d, want 2 (force_refresh bypasses hook cache)", client.calls)
	}
}

var errBoom = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
