package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "github.com/Proton-105/gigip2p-bot/internal/errors"
)

// ErrRejected marks a request the price source answered but refused, such as an unknown
// symbol. The upstream is healthy, so it neither trips the breaker nor deserves a retry.
var ErrRejected = errors.New("price request rejected")

// HTTPSource reads spot prices from a ticker endpoint answering
// {"symbol":"TONUSDT","price":"5.12"} for ?symbol=TONUSDT.
type HTTPSource struct {
	endpoint   string
	quoteAsset string
	client     *http.Client

	mu       sync.Mutex
	breakers map[string]*apperrors.CircuitBreaker
}

var _ Source = (*HTTPSource)(nil)

// NewHTTPSource builds a ticker source with one circuit breaker per symbol.
func NewHTTPSource(endpoint, quoteAsset string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	return &HTTPSource{
		endpoint:   endpoint,
		quoteAsset: strings.ToUpper(quoteAsset),
		client:     &http.Client{Timeout: timeout},
		breakers:   make(map[string]*apperrors.CircuitBreaker),
	}
}

func (s *HTTPSource) breaker(symbol string) *apperrors.CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	cb, ok := s.breakers[symbol]
	if !ok {
		cb = apperrors.NewCircuitBreaker(apperrors.WithFailureFilter(isUpstreamFailure))
		s.breakers[symbol] = cb
	}
	return cb
}

// isUpstreamFailure counts transport errors, 5xx and 429 against the source. Refusals and
// cancellations by the caller do not.
func isUpstreamFailure(err error) bool {
	return !errors.Is(err, ErrRejected) && !errors.Is(err, context.Canceled)
}

type tickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// SpotPrice returns the last traded price of symbol against the quote asset.
func (s *HTTPSource) SpotPrice(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(symbol)

	var price float64
	err := s.breaker(symbol).Call(func() error {
		p, err := s.fetch(ctx, symbol)
		if err != nil {
			return err
		}
		price = p
		return nil
	})
	if err != nil {
		return 0, apperrors.NewUpstreamUnavailableError("price source", err)
	}

	return price, nil
}

func (s *HTTPSource) fetch(ctx context.Context, symbol string) (float64, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return 0, fmt.Errorf("parse price endpoint: %w", err)
	}
	q := u.Query()
	q.Set("symbol", symbol+s.quoteAsset)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("build price request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return 0, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
		}
		return 0, fmt.Errorf("price source returned status %d", resp.StatusCode)
	}

	var body tickerResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode price response: %w", err)
	}

	price, err := strconv.ParseFloat(body.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", body.Price, err)
	}

	return price, nil
}
