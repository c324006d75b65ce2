package internal

import (
	"io"
	"net/http"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config     *Config
	out        io.Writer
	logOut     io.Writer
	in         io.Reader
	httpClient *http.Client
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithOutput sets where the console report is written. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.out = w
	}
}

// WithLogOutput sets where structured logs are written. Defaults to stderr.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOut = w
	}
}

// WithInput sets the stream the MCP server reads from. Defaults to stdin.
func WithInput(r io.Reader) Option {
	return func(a *application) {
		a.in = r
	}
}

// WithHTTPClient overrides the HTTP client used for the remote API.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *application) {
		a.httpClient = hc
	}
}
