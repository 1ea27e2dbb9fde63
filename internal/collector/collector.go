package collector

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"VIXBar/internal/model"
)

// MockFetcher returns a controllable fixed value for development and testing.
type MockFetcher struct {
	Value float64
	Err   error

	calls atomic.Int64
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchLatest(_ context.Context, symbol string) (model.Quote, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return model.Quote{}, m.Err
	}
	return model.Quote{Symbol: symbol, Value: m.Value, ObservedAt: time.Now()}, nil
}

// Calls reports how many times FetchLatest has been invoked.
func (m *MockFetcher) Calls() int64 { return m.calls.Load() }

// Collector binds a Fetcher to the tracked symbol.
type Collector struct {
	Fetcher Fetcher
	Symbol  string
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, symbol string) *Collector {
	return &Collector{Fetcher: fetcher, Symbol: symbol}
}

// Collect fetches the latest quote for the tracked symbol.
func (c *Collector) Collect(ctx context.Context) (model.Quote, error) {
	q, err := c.Fetcher.FetchLatest(ctx, c.Symbol)
	if err != nil {
		return model.Quote{}, fmt.Errorf("collect %s from %s: %w", c.Symbol, c.Fetcher.Name(), err)
	}
	return q, nil
}
