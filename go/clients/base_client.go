package clients

import (
	"context"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
)

// BaseClient holds the HTTP client and headers shared by every call.
type BaseClient struct {
	baseURL string
	client  *http.Client

	mu      sync.RWMutex
	headers map[string]string
}

func NewBaseClient(baseURL string) *BaseClient {
	return &BaseClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers: make(map[string]string),
	}
}

func (c *BaseClient) SetHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers[key] = value
}

func (c *BaseClient) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// headerInterceptor stamps the configured headers on every outgoing request.
func (c *BaseClient) headerInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if req.Spec().IsClient {
				c.mu.RLock()
				for key, value := range c.headers {
					req.Header().Set(key, value)
				}
				c.mu.RUnlock()
			}
			return next(ctx, req)
		}
	}
}
