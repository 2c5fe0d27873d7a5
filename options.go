package nosqlite

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	// remote mode
	url        string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client

	// embedded mode
	dataDir     string
	journalMode string
	busyTimeout time.Duration
	concurrency int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithServer connects the client to a nosqlited server at url
// (for example "http://localhost:8080"). Without it the client runs the
// storage engine in-process.
func WithServer(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.url = url
	})
}

// WithAPIKey sets the bearer token sent to the server.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = key
	})
}

// WithTimeout bounds every remote call. A call that times out fails on the
// client, but whatever the server already committed stays committed.
// Default: 30s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithHTTPClient replaces the HTTP client used in remote mode.
// WithTimeout is ignored when this is set.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithDataDir sets the directory holding database files in embedded mode.
// Default: the current directory.
func WithDataDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.dataDir = dir
	})
}

// WithJournalMode sets the SQLite journal mode of file-backed databases in
// embedded mode. Default: WAL.
func WithJournalMode(mode string) Option {
	return optionFunc(func(c *clientConfig) {
		c.journalMode = mode
	})
}

// WithBusyTimeout sets how long embedded SQLite waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.busyTimeout = d
	})
}

// WithConcurrency bounds in-flight requests in embedded mode.
func WithConcurrency(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.concurrency = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
