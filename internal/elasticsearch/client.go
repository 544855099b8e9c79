// Package elasticsearch is the search client used by the buffer, the services
// and the CLI. It wraps go-elasticsearch/v8 with index lifecycle, document,
// bulk, query-string, SQL and aggregation calls.
package elasticsearch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/logger"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/retry"
	"github.com/jonesrussell/north-cloud/index-buffer/internal/telemetry"
)

const (
	defaultURL         = "http://localhost:9200"
	defaultPutTimeout  = 5 * time.Second
	defaultPingTimeout = 5 * time.Second
)

// Config holds connection settings.
type Config struct {
	URL      string
	Username string
	Password string
	APIKey   string

	// CACert is a PEM bundle trusted in addition to the system roots.
	CACert      []byte
	MaxRetries  int
	Timeout     time.Duration
	PingTimeout time.Duration
	PutTimeout  time.Duration

	// Refresh is passed to write calls ("", "true", "false" or "wait_for").
	Refresh string
	Retry   retry.Config
}

func (c *Config) setDefaults() {
	c.URL = normalizeURL(c.URL)
	if c.PingTimeout <= 0 {
		c.PingTimeout = defaultPingTimeout
	}
	if c.PutTimeout <= 0 {
		c.PutTimeout = defaultPutTimeout
	}
}

// Client is a thin, stateless wrapper over *es.Client.
type Client struct {
	es         *es.Client
	log        logger.Logger
	telemetry  *telemetry.Provider
	putTimeout time.Duration
	refresh    string
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithTelemetry records bulk request metrics through p.
func WithTelemetry(p *telemetry.Provider) Option {
	return func(c *Client) { c.telemetry = p }
}

// WithPutTimeout bounds single-document writes.
func WithPutTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.putTimeout = d
		}
	}
}

// WithRefresh sets the refresh policy of write calls.
func WithRefresh(policy string) Option {
	return func(c *Client) { c.refresh = policy }
}

// New wraps an existing go-elasticsearch client.
func New(esClient *es.Client, opts ...Option) *Client {
	c := &Client{
		es:         esClient,
		log:        logger.NewNop(),
		putTimeout: defaultPutTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect builds a client from cfg and pings the cluster, retrying transient
// failures with backoff.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	cfg.setDefaults()

	esCfg := es.Config{
		Addresses:  []string{cfg.URL},
		MaxRetries: cfg.MaxRetries,
	}
	transport, err := newTransport(cfg.Timeout, cfg.CACert)
	if err != nil {
		return nil, err
	}
	esCfg.Transport = transport
	switch {
	case cfg.APIKey != "":
		esCfg.APIKey = cfg.APIKey
	case cfg.Username != "" && cfg.Password != "":
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	esClient, err := es.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	opts = append([]Option{WithPutTimeout(cfg.PutTimeout), WithRefresh(cfg.Refresh)}, opts...)
	c := New(esClient, opts...)

	c.log.Info("Verifying Elasticsearch connection", logger.String("url", cfg.URL))
	if err = retry.Do(ctx, cfg.Retry, func() error {
		return c.Ping(ctx, cfg.PingTimeout)
	}); err != nil {
		return nil, fmt.Errorf("connect to elasticsearch: %w", err)
	}
	c.log.Info("Elasticsearch connection established", logger.String("url", cfg.URL))

	return c, nil
}

func normalizeURL(url string) string {
	if url == "" {
		return defaultURL
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "http://" + url
	}
	return url
}

func newTransport(timeout time.Duration, caCert []byte) (*http.Transport, error) {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if timeout > 0 {
		t.ResponseHeaderTimeout = timeout
	}
	if len(caCert) > 0 {
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("elasticsearch: no certificates found in CA bundle")
		}
		t.TLSClientConfig = &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
	}
	return t, nil
}

// Ping checks that the cluster answers within timeout.
func (c *Client) Ping(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		c.log.Debug("Elasticsearch ping failed", logger.Error(err))
		return fmt.Errorf("ping: %w", err)
	}
	defer c.closeBody(res)

	if res.IsError() {
		return fmt.Errorf("ping: %w", responseError(res))
	}
	return nil
}

func (c *Client) closeBody(res *esapi.Response) {
	if res == nil || res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, res.Body)
	if err := res.Body.Close(); err != nil {
		c.log.Debug("Failed to close response body", logger.Error(err))
	}
}

func (c *Client) logFailure(op, index string, err error) {
	c.log.Error("Elasticsearch operation failed",
		logger.String("operation", op),
		logger.String("index", index),
		logger.Error(err),
	)
}
