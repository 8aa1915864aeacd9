package listing

import (
	"context"
	"io"
	"net/url"
	"strings"
	"sync"

	"listings-aggregator-api/core/interfaces"
)

type routeFunc func(ctx context.Context) (*mockResponse, error)

// mockHTTPClient answers by request host and counts calls per host
type mockHTTPClient struct {
	mu     sync.Mutex
	calls  map[string]int
	routes map[string]routeFunc
}

func newMockHTTPClient(routes map[string]routeFunc) *mockHTTPClient {
	return &mockHTTPClient{calls: make(map[string]int), routes: routes}
}

func (m *mockHTTPClient) Get(ctx context.Context, rawURL string, headers map[string]string) (interfaces.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls[u.Host]++
	route := m.routes[u.Host]
	m.mu.Unlock()

	if route == nil {
		return &mockResponse{statusCode: 404, body: "no route"}, nil
	}
	resp, err := route(ctx)
	if resp == nil {
		return nil, err
	}
	return resp, err
}

func (m *mockHTTPClient) callCount(host string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[host]
}

func respond(status int, body string) routeFunc {
	return func(ctx context.Context) (*mockResponse, error) {
		return &mockResponse{statusCode: status, body: body}, nil
	}
}

func fail(err error) routeFunc {
	return func(ctx context.Context) (*mockResponse, error) {
		return nil, err
	}
}

// hang blocks until the request context ends
func hang() routeFunc {
	return func(ctx context.Context) (*mockResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
}

type mockResponse struct {
	statusCode int
	body       string
}

func (m *mockResponse) StatusCode() int { return m.statusCode }

func (m *mockResponse) Body() io.ReadCloser {
	return io.NopCloser(strings.NewReader(m.body))
}

func (m *mockResponse) Header(key string) string { return "" }

// mockLogger records messages per level
type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Debug(msg string, fields map[string]interface{}) {}
func (m *mockLogger) Warn(msg string, fields map[string]interface{})  {}

func (m *mockLogger) Info(msg string, fields map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, fields map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) errorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}
