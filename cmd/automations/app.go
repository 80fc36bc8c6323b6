package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/automations/internal/automation"
	"github.com/joseph-ayodele/automations/internal/common"
	"github.com/joseph-ayodele/automations/internal/gateway"
)

// app is what every subcommand needs: validated config, a logger, the gateway transport and
// the selected kind.
type app struct {
	cfg    *common.Config
	logger *slog.Logger
	gw     *gateway.Client
	kind   automation.Kind
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg := common.LoadConfig()
	if rootKind != "" {
		cfg.Gateway.Kind = rootKind
	}
	if rootGateway != "" {
		cfg.Gateway.BaseURL = rootGateway
	}
	if rootTimeout != "" {
		d, err := time.ParseDuration(rootTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid --timeout %q: %w", rootTimeout, err)
		}
		cfg.Gateway.Timeout = d
	}
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}

	kind, err := automation.DefaultRegistry().Lookup(cfg.Gateway.Kind)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cmd.ErrOrStderr(), rootVerbose)
	gw := gateway.NewClient(cfg.Gateway.BaseURL, logger, gateway.WithTimeout(cfg.Gateway.Timeout))
	logger.Debug("cli.gateway", "base_url", gw.BaseURL(), "kind", kind.Name, "timeout", cfg.Gateway.Timeout)
	return &app{cfg: cfg, logger: logger, gw: gw, kind: kind}, nil
}

// newLogger writes messages with their attributes but no time or level.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}
