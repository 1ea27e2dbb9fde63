package collector

import (
	"context"
	"errors"

	"VIXBar/internal/model"
)

// Fetch failure classes. Fetchers wrap one of these so callers can use errors.Is.
var (
	ErrTransport = errors.New("transport error")
	ErrProtocol  = errors.New("protocol error")
	ErrParse     = errors.New("parse error")
)

// Fetcher defines the interface for fetching the latest index value.
type Fetcher interface {
	FetchLatest(ctx context.Context, symbol string) (model.Quote, error)
	Name() string
}
