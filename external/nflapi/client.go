package nflapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/gridstats/nfldb/internal/platform/logging"
	"github.com/gridstats/nfldb/internal/platform/resilience"
	"github.com/gridstats/nfldb/internal/store"
	syncpkg "github.com/gridstats/nfldb/internal/sync"
)

const defaultBaseURL = "https://feeds.gridstats.io/nfl/v1"

var errTransient = crerr.New("nfl feed transient failure")

// ErrUnavailable marks requests rejected while the circuit breaker is open.
var ErrUnavailable = crerr.New("nfl feed temporarily unavailable")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the upstream statistics feed. Every fetch method returns
// plain field-mapping records; pagination and rate limiting are the feed's
// concern, not modeled here.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

var _ syncpkg.Client = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		token:          strings.TrimSpace(cfg.Token),
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

func (c *Client) Teams(ctx context.Context) ([]store.Record, error) {
	return c.getRecords(ctx, "/teams", nil)
}

func (c *Client) Schedules(ctx context.Context, filter syncpkg.ScheduleFilter) ([]store.Record, error) {
	query := map[string]string{"season": strconv.Itoa(filter.Season)}
	if !filter.WholeSeason() {
		query["season_type"] = filter.SeasonType
		query["week"] = strconv.Itoa(filter.Week)
	}
	return c.getRecords(ctx, "/schedules", query)
}

// Rosters fetches current roster rows for the given team records.
func (c *Client) Rosters(ctx context.Context, teams []store.Record) ([]store.Record, error) {
	return c.postRecords(ctx, "/rosters", subsetRequest{"teams": teams})
}

// PlayerProfiles fetches the full profile documents for the given roster
// subset.
func (c *Client) PlayerProfiles(ctx context.Context, rosters []store.Record) ([]store.Record, error) {
	return c.postRecords(ctx, "/player-profiles", subsetRequest{"rosters": rosters})
}

// PlayerGamelogs fetches per-week game logs for the given roster subset in
// one season.
func (c *Client) PlayerGamelogs(ctx context.Context, rosters []store.Record, season int) ([]store.Record, error) {
	return c.postRecords(ctx, "/player-gamelogs", subsetRequest{
		"rosters": rosters,
		"season":  season,
	})
}

func (c *Client) GameSummaries(ctx context.Context, schedules []store.Record) ([]store.Record, error) {
	return c.postRecords(ctx, "/game-summaries", subsetRequest{"schedules": schedules})
}

func (c *Client) GameScores(ctx context.Context, schedules []store.Record) ([]store.Record, error) {
	return c.postRecords(ctx, "/game-scores", subsetRequest{"schedules": schedules})
}

func (c *Client) GameDrives(ctx context.Context, schedules []store.Record) ([]store.Record, error) {
	return c.postRecords(ctx, "/game-drives", subsetRequest{"schedules": schedules})
}

func (c *Client) GamePlays(ctx context.Context, schedules []store.Record) ([]store.Record, error) {
	return c.postRecords(ctx, "/game-plays", subsetRequest{"schedules": schedules})
}

type subsetRequest map[string]any

type recordsEnvelope struct {
	Data []store.Record `json:"data"`
}

func (c *Client) getRecords(ctx context.Context, path string, query map[string]string) ([]store.Record, error) {
	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	// Identical in-flight GETs collapse to one upstream call.
	key := path + "?" + values.Encode()
	out, err, _ := c.flight.Do(key, func() (any, error) {
		return c.roundTrip(ctx, http.MethodGet, fullURL, nil)
	})
	if err != nil {
		return nil, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, crerr.Newf("unexpected response payload type %T", out)
	}
	return decodeRecords(raw)
}

func (c *Client) postRecords(ctx context.Context, path string, req subsetRequest) ([]store.Record, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	body, err := sonic.Marshal(req)
	if err != nil {
		return nil, crerr.Wrap(err, "encode feed request")
	}
	if _, err := buf.Write(body); err != nil {
		return nil, crerr.Wrap(err, "buffer feed request")
	}

	raw, err := c.roundTrip(ctx, http.MethodPost, c.baseURL+path, buf.Bytes())
	if err != nil {
		return nil, err
	}
	return decodeRecords(raw)
}

func decodeRecords(raw []byte) ([]store.Record, error) {
	var envelope recordsEnvelope
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return nil, crerr.Wrap(err, "decode feed payload")
	}
	return envelope.Data, nil
}

func (c *Client) roundTrip(ctx context.Context, method, fullURL string, body []byte) ([]byte, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "nfl feed circuit breaker rejected request", "state", c.breaker.State())
			return nil, ErrUnavailable
		}
	}

	raw, err := c.executeRequest(ctx, method, fullURL, body)
	if c.circuitEnabled {
		if err != nil && crerr.Is(err, errTransient) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}
	return raw, err
}

func (c *Client) executeRequest(ctx context.Context, method, fullURL string, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
		if err != nil {
			return nil, crerr.Wrap(err, "build request")
		}
		req.Header.Set("accept", "application/json")
		if body != nil {
			req.Header.Set("content-type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = crerr.Wrapf(errTransient, "send request: %v", err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = crerr.Wrapf(errTransient, "read response body: %v", readErr)
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return raw, nil
			} else if isRetryableStatus(resp.StatusCode) {
				lastErr = crerr.Wrapf(errTransient, "feed status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			} else {
				return nil, crerr.Newf("feed status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = crerr.New("feed request failed")
	}
	c.logger.WarnContext(ctx, "nfl feed request failed", "method", method, "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(raw))
	if len(s) > limit {
		return fmt.Sprintf("%s... (%d bytes)", s[:limit], len(s))
	}
	return s
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}
