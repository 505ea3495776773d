package sources

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// RemoteClient fetches flag segment documents from a segment database
// service over HTTP. The endpoint serves the same JSON document shape
// as segment files on disk, one document per instrument.
type RemoteClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewRemoteClient constructs a client targeting the configured segment
// database.
func NewRemoteClient(baseURL string, timeout time.Duration, logger *slog.Logger) *RemoteClient {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RemoteClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchInstrument retrieves the flag documents for one instrument via
// GET {base}/segments/{instrument}.
func (c *RemoteClient) FetchInstrument(ctx context.Context, instrument string) ([]FlagData, error) {
	if c == nil {
		return nil, fmt.Errorf("remote segment client not initialised")
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("remote segment base URL not configured")
	}

	endpoint := c.resolvePath("/segments/" + url.PathEscape(instrument))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote segment request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote segment source returned %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read remote segment response: %w", err)
	}
	out, err := parseSegmentJSON(endpoint, data)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("remote segments fetched", "instrument", instrument, "flags", len(out))
	return out, nil
}

func (c *RemoteClient) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}
