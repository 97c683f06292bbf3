package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/eveview/internal/backend"
	"github.com/kiranshivaraju/eveview/internal/config"
	"github.com/kiranshivaraju/eveview/internal/credential"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// GlobalOptions configure access to the results service. Flags override the
// EVE_* environment variables.
type GlobalOptions struct {
	Backend config.BackendConfig
}

func DefaultGlobalOptions() GlobalOptions {
	b, err := config.LoadBackend()
	if err != nil {
		slog.Warn("ignoring results service environment", "error", err)
		b = config.BackendConfig{
			ResultsPath: "/api/results",
			UploadPath:  "/api/upload",
			Timeout:     30 * time.Second,
		}
	}
	return GlobalOptions{Backend: b}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Backend.BaseURL, "base-url", "u", o.Backend.BaseURL, "Address of the results service (EVE_BASE_URL)")
	fs.StringVar(&o.Backend.Token, "token", o.Backend.Token, "Bearer token for the results service (EVE_TOKEN)")
	fs.DurationVar(&o.Backend.Timeout, "timeout", o.Backend.Timeout, "Timeout for each request to the results service")
}

func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	return o.Backend.Validate()
}

// Client builds a results service client and the session state behind it.
func (o *GlobalOptions) Client() (*backend.HTTPClient, *credential.Store) {
	store := credential.NewStore(o.Backend.Token)
	return backend.NewHTTPClient(o.Backend, store), store
}

// SetupLogging installs the JSON slog handler as the default logger.
func SetupLogging(w io.Writer, level slog.Level) {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

func unauthorizedHint(loginURL string) string {
	return fmt.Sprintf("log in again at %s and pass the new token with --token", loginURL)
}
