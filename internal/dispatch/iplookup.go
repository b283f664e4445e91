package dispatch

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/BarkinBalci/adclick-detector/internal/domain"
)

// UnknownIP is reported when the lookup fails.
const UnknownIP = domain.UnknownIP

// HTTPIPLookup asks a JSON echo service ({"ip": "..."}) for the public address.
type HTTPIPLookup struct {
	url    string
	client *http.Client
	log    *zap.Logger
}

// NewHTTPIPLookup creates a lookup against url. An empty url always yields UnknownIP.
func NewHTTPIPLookup(url string, client *http.Client, log *zap.Logger) *HTTPIPLookup {
	return &HTTPIPLookup{url: url, client: client, log: log}
}

// LookupIP never fails; errors are logged and reported as UnknownIP.
func (l *HTTPIPLookup) LookupIP(ctx context.Context) string {
	if l.url == "" {
		return UnknownIP
	}

	ip, err := l.lookup(ctx)
	if err != nil {
		l.log.Debug("IP lookup failed", zap.Error(err))
		return UnknownIP
	}
	if ip == "" {
		return UnknownIP
	}
	return ip
}

func (l *HTTPIPLookup) lookup(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build ip lookup request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call ip lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ip lookup returned status %d", resp.StatusCode)
	}

	var body struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode ip lookup response: %w", err)
	}

	return body.IP, nil
}
