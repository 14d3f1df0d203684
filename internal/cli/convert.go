package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/harun/jsonlfmt/internal/config"
	"github.com/harun/jsonlfmt/internal/logger"
	"github.com/harun/jsonlfmt/internal/tracing"
	"github.com/harun/jsonlfmt/pkg/transcript"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// ErrWatchSelf is returned when watch mode would rewrite the file it watches
var ErrWatchSelf = errors.New("cannot watch a file that is its own transcript")

func runConvert(cmd *cobra.Command, opts *options, input string) error {
	cfg, err := config.NewLoader(opts.cfgFile).Load()
	if err != nil {
		return err
	}
	applyFlags(cmd, opts, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Watch.Enabled && transcript.OutputPath(input) == input {
		return fmt.Errorf("%w: %s", ErrWatchSelf, input)
	}

	lg, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		Output:    cmd.ErrOrStderr(),

		RedactPatterns: cfg.Logging.RedactPatterns,
	})
	if err != nil {
		return err
	}
	defer lg.Close()

	ctx := tracing.NewRunContext(cmd.Context(), input)
	log := tracing.LoggerFromContext(ctx, lg.GetZerolog())
	log.Debug().RawJSON("config", []byte(cfg.String())).Msg("Configuration loaded")

	extractor := transcript.NewExtractorWithConfig(lg.GetZerolog(), transcript.Config{
		MaxLineSize: cfg.Transcript.MaxLineSize,
	})

	if _, err := extractor.ConvertFile(ctx, input); err != nil {
		return err
	}

	if !cfg.Watch.Enabled {
		return nil
	}
	return watchSession(ctx, log, extractor, input, cfg.Watch)
}

// applyFlags lets explicitly set flags override the config file
func applyFlags(cmd *cobra.Command, opts *options, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if flags.Changed("verbose") {
		cfg.Transcript.Verbose = opts.verbose
	}
	if flags.Changed("watch") {
		cfg.Watch.Enabled = opts.watch
	}
	if cfg.Transcript.Verbose {
		cfg.Logging.Level = zerolog.LevelDebugValue
	}
}

func watchSession(ctx context.Context, log zerolog.Logger, extractor *transcript.Extractor, input string, cfg config.WatchConfig) error {
	watcher, err := transcript.NewWatcher(log, transcript.WatcherConfig{
		Path:     input,
		Debounce: cfg.Debounce(),
	})
	if err != nil {
		return err
	}

	log.Info().Msg("Watching session file for changes")

	return watcher.Run(ctx, func(ctx context.Context) error {
		res, err := extractor.ConvertFile(ctx, input)
		if err != nil {
			return err
		}
		log.Info().
			Int("turns", res.Stats.Turns).
			Int("skipped", res.Stats.TotalSkipped()).
			Msg("Transcript re-rendered")
		return nil
	})
}
