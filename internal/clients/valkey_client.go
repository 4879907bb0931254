package clients

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/spacesedan/tweet-sentiment/config"
	"github.com/spacesedan/tweet-sentiment/internal/models"
)

const VALKEY_PREDICTION_PREFIX = "sentiment:prediction:"

// ValkeyClient caches prediction results per artifact fingerprint and exact
// trimmed text. The cache is best effort: failures are logged and reported
// as misses. Reconnecting is left to Ping so requests never wait on a dial.
type ValkeyClient struct {
	Client valkey.Client
	cfg    config.ValkeyConfig
	dial   func(config.ValkeyConfig) (valkey.Client, error)
	mu     sync.Mutex
}

func NewValkeyClient(cfg config.ValkeyConfig) (*ValkeyClient, error) {
	client, err := connect(cfg)
	if err != nil {
		return nil, err
	}

	slog.Info("[ValkeyClient] Successfully connected to valkey",
		slog.String("address", cfg.Address))

	return &ValkeyClient{Client: client, cfg: cfg, dial: connect}, nil
}

func connect(cfg config.ValkeyConfig) (valkey.Client, error) {
	opts := valkey.ClientOption{
		InitAddress: []string{
			cfg.Address,
		},
		Password:         cfg.Password,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}

	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), PING_TIMEOUT)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", err)
	}

	return client, nil
}

func (vc *ValkeyClient) client() valkey.Client {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	return vc.Client
}

// recreateClient dials outside the lock; only the swap is guarded.
func (vc *ValkeyClient) recreateClient() {
	slog.Warn("[ValkeyClient] Attempting to recreate Valkey client...")
	client, err := vc.dial(vc.cfg)
	if err != nil {
		slog.Error("[ValkeyClient] Recreate failed",
			slog.String("error", err.Error()))
		return
	}

	vc.mu.Lock()
	old := vc.Client
	vc.Client = client
	vc.mu.Unlock()

	old.Close()
	slog.Info("[ValkeyClient] Successfully reconnected to valkey")
}

func (vc *ValkeyClient) Close() {
	vc.client().Close()
}

// Ping is used by the health monitor, which is also the only caller that
// reconnects after a connection error.
func (vc *ValkeyClient) Ping(ctx context.Context) error {
	c := vc.client()
	err := c.Do(ctx, c.B().Ping().Build()).Error()
	if isConnectionError(err) {
		vc.recreateClient()
	}
	return err
}

func (vc *ValkeyClient) Get(ctx context.Context, fingerprint, text string) (models.PredictionResult, bool) {
	var result models.PredictionResult
	c := vc.client()

	raw, err := c.Do(ctx, c.B().Get().Key(cacheKey(fingerprint, text)).Build()).ToString()
	if err != nil {
		if !valkey.IsValkeyNil(err) {
			slog.Warn("[ValkeyClient] Cache lookup failed",
				slog.String("error", err.Error()))
		}
		return result, false
	}

	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		slog.Warn("[ValkeyClient] Discarding malformed cache entry",
			slog.String("error", err.Error()))
		return result, false
	}
	return result, true
}

func (vc *ValkeyClient) Set(ctx context.Context, fingerprint, text string, result models.PredictionResult) {
	// the baseline is recomputed per request so the cache only holds model output
	result.Baseline = nil
	payload, err := json.Marshal(result)
	if err != nil {
		slog.Warn("[ValkeyClient] Failed to encode prediction",
			slog.String("error", err.Error()))
		return
	}

	key := cacheKey(fingerprint, text)
	build := func(c valkey.Client) []valkey.Completed {
		return []valkey.Completed{
			c.B().Set().Key(key).Value(string(payload)).Build(),
			c.B().Expire().Key(key).Seconds(int64(vc.cfg.TTL / time.Second)).Build(),
		}
	}

	for _, res := range vc.DoMultiWithRetry(ctx, build, CACHE_RETRIES) {
		if err := res.Error(); err != nil {
			slog.Warn("[ValkeyClient] Failed to cache prediction",
				slog.String("error", err.Error()))
			return
		}
	}
}

// DoMultiWithRetry rebuilds the commands on every attempt since completed
// commands are recycled once sent. Connection errors end the loop early;
// retrying against a dead connection only delays the request.
func (vc *ValkeyClient) DoMultiWithRetry(ctx context.Context, build func(valkey.Client) []valkey.Completed, retries int) []valkey.ValkeyResult {
	var results []valkey.ValkeyResult

	for i := 0; i < retries; i++ {
		c := vc.client()
		results = c.DoMulti(ctx, build(c)...)

		var failed error
		for _, r := range results {
			if err := r.Error(); err != nil {
				failed = err
				break
			}
		}
		if failed == nil {
			return results
		}

		slog.Warn("[ValkeyClient] Do Multi failed",
			slog.Int("attempt", i+1),
			slog.String("error", failed.Error()))
		if isConnectionError(failed) || i == retries-1 {
			break
		}

		select {
		case <-ctx.Done():
			return results
		case <-time.After(CACHE_RETRY_DELAY):
		}
	}

	return results
}

func cacheKey(fingerprint, text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return VALKEY_PREDICTION_PREFIX + fingerprint + ":" + hex.EncodeToString(sum[:])
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
