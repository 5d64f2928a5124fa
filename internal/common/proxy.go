package common

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Proxy performs GET requests against an external REST API while honoring
// the configured rate restrictions. Vital requests (triggered by a user
// command) may wait for a free slot; background requests are dropped when
// the budget is spent
type Proxy struct {
	header      map[string]string
	client      http.Client
	rateLimiter *RateLimiter
}

func NewProxy(header map[string]string, restrictions []Restriction) Proxy {
	return Proxy{
		header:      header,
		client:      http.Client{Timeout: 30 * time.Second},
		rateLimiter: NewRateLimiter(restrictions),
	}
}

// Request performs a GET against url and returns the response body.
// A dropped or failed request is an error the caller can log and skip
func (proxy *Proxy) Request(url string, vital bool) ([]byte, error) {

	if !proxy.rateLimiter.Allow(vital) {
		return nil, fmt.Errorf("rate limiter is not allowing the request to %s", url)
	}

	request, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request for url %s: %w", url, err)
	}
	for key, value := range proxy.header {
		request.Header.Set(key, value)
	}

	res, err := proxy.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("could not perform request to %s: %w", url, err)
	}
	defer res.Body.Close()
	log.Debug().Msg(fmt.Sprintf("%d %s for %s", res.StatusCode, http.StatusText(res.StatusCode), url))

	switch res.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, fmt.Errorf("could not read the response for url %s: %w", url, err)
		}
		return body, nil
	case http.StatusTooManyRequests:
		proxy.rateLimiter.ReceivedRateLimit()
		return nil, fmt.Errorf("rate limited by the server on %s", url)
	default:
		return nil, fmt.Errorf("request to %s failed with status %d", url, res.StatusCode)
	}
}
