package store

import (
	"net/http"

	"github.com/jrsteele09/go-budget-client/api"
	"github.com/jrsteele09/go-budget-client/internal/config"
	"github.com/jrsteele09/go-budget-client/token"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// OpenOption adjusts what Open builds beyond the configuration.
type OpenOption func(*openOptions)

type openOptions struct {
	httpClient *http.Client
	registerer prometheus.Registerer
	logger     zerolog.Logger
}

// WithHTTPClient makes Open use httpClient for every request.
func WithHTTPClient(httpClient *http.Client) OpenOption {
	return func(o *openOptions) {
		o.httpClient = httpClient
	}
}

// WithRegisterer sets where request metrics go when metrics are enabled.
// Defaults to prometheus.DefaultRegisterer.
func WithRegisterer(reg prometheus.Registerer) OpenOption {
	return func(o *openOptions) {
		o.registerer = reg
	}
}

func WithOpenLogger(logger zerolog.Logger) OpenOption {
	return func(o *openOptions) {
		o.logger = logger
	}
}

// Open builds a Store from configuration: a file token store at the
// configured path (encrypted when a passphrase is set) and an API client for
// the configured base URL.
func Open(cfg config.Config, options ...OpenOption) (*Store, error) {
	o := openOptions{
		registerer: prometheus.DefaultRegisterer,
		logger:     log.Logger,
	}
	for _, opt := range options {
		opt(&o)
	}

	fileOpts := []token.FileStoreOption{token.WithLogger(o.logger)}
	if passphrase := cfg.GetTokenPassphrase(); passphrase != "" {
		fileOpts = append(fileOpts, token.WithPassphrase(passphrase))
	}
	tokens := token.NewFileStore(cfg.GetTokenFile(), fileOpts...)

	clientOpts := []api.ClientOption{api.WithLogger(o.logger)}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, api.WithHTTPClient(o.httpClient))
	}
	if cfg.GetMetricsEnabled() && o.registerer != nil {
		clientOpts = append(clientOpts, api.WithMetrics(o.registerer))
	}
	client, err := api.New(cfg.GetBaseURL(), clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "[store.Open] failed to create API client")
	}

	return New(client, tokens, WithFencing(cfg.GetFencing()), WithLogger(o.logger)), nil
}
