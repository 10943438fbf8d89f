package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/cory-johannsen/imposter/internal/config"
	"github.com/cory-johannsen/imposter/internal/frontend/handlers"
	"github.com/cory-johannsen/imposter/internal/frontend/telnet"
	"github.com/cory-johannsen/imposter/internal/frontend/web"
	"github.com/cory-johannsen/imposter/internal/game/clock"
	"github.com/cory-johannsen/imposter/internal/game/command"
	"github.com/cory-johannsen/imposter/internal/game/random"
	"github.com/cory-johannsen/imposter/internal/game/session"
	"github.com/cory-johannsen/imposter/internal/game/words"
	"github.com/cory-johannsen/imposter/internal/gameserver"
	"github.com/cory-johannsen/imposter/internal/observability"
	"github.com/cory-johannsen/imposter/internal/server"
)

// flagKeys maps command-line flags onto configuration keys. Flags win over
// the config file, which wins over IMPOSTER_* environment variables.
var flagKeys = map[string]string{
	"log-level":     "logging.level",
	"log-format":    "logging.format",
	"time-unit":     "game.time_unit",
	"max-players":   "game.max_players",
	"words":         "game.words_file",
	"telnet":        "telnet.enabled",
	"telnet-bind":   "telnet.host",
	"telnet-port":   "telnet.port",
	"web":           "web.enabled",
	"web-bind":      "web.host",
	"web-port":      "web.port",
	"prefix":        "web.prefix",
	"one-vote-only": "game.one_vote_per_player",
}

type options struct {
	configPath string
	seed       uint64
}

func newCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:     "imposterd",
		Short:   "Host a game of imposter: everyone gets the secret word except one player.",
		Args:    cobra.ExactArgs(0),
		Version: releaseVersion,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags(), opts.configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, opts.seed)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML configuration file")
	fs.Uint64Var(&opts.seed, "seed", 0, "seed for imposter and word selection; 0 uses crypto/rand")
	fs.String("log-level", "info", "minimum log level: debug, info, warn, error")
	fs.String("log-format", "json", "log format: json or console")
	fs.Duration("time-unit", 0, "wall-clock length of one game time unit (default 1s)")
	fs.Int("max-players", 6, "roster capacity, 3-6")
	fs.String("words", "", "YAML word table replacing the built-in words")
	fs.Bool("telnet", true, "serve the Telnet frontend")
	fs.String("telnet-bind", "0.0.0.0", "Telnet address to bind to")
	fs.IntP("telnet-port", "t", 4000, "Telnet port to listen on")
	fs.Bool("web", true, "serve the web frontend")
	fs.String("web-bind", "0.0.0.0", "HTTP address to bind to")
	fs.IntP("web-port", "p", 8080, "HTTP port to listen on")
	fs.String("prefix", "", "path to prepend to all URLs, for use behind a reverse proxy")
	fs.Bool("one-vote-only", true, "reject repeat votes from the same player")

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("imposterd v{{.Version}}\n")
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

// loadConfig layers explicitly set flags over the config file and environment.
func loadConfig(fs *pflag.FlagSet, path string) (config.Config, error) {
	v := config.NewViper(path)
	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			return config.Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	var bindErr error
	fs.Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(key, f)
	})
	if bindErr != nil {
		return config.Config{}, fmt.Errorf("binding flags: %w", bindErr)
	}
	return config.LoadFromViper(v)
}

// run wires the session to its frontends and blocks until shutdown.
func run(ctx context.Context, cfg config.Config, seed uint64) error {
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	table := words.DefaultTable()
	if cfg.Game.WordsFile != "" {
		if table, err = words.LoadFromFile(cfg.Game.WordsFile); err != nil {
			return fmt.Errorf("loading words: %w", err)
		}
	}

	src := random.NewCryptoSource()
	if seed != 0 {
		src = random.NewSeededSource(seed)
	}
	picker := random.NewPicker(src, observability.Component(logger, "random"))

	sess := session.New(
		session.OptionsFromConfig(cfg.Game),
		session.NewAssigner(picker, table),
		clock.Real(),
		observability.Component(logger, "session"),
	)
	dispatcher := gameserver.NewDispatcher(sess, command.DefaultRegistry(), observability.Component(logger, "dispatcher"))

	logger.Info("starting imposterd",
		zap.String("version", releaseVersion),
		zap.Int("words", table.Len()),
		zap.Duration("turn_limit", cfg.Game.TurnLimit()),
		zap.Duration("voting_window", cfg.Game.VotingWindow()),
		zap.Bool("telnet", cfg.Telnet.Enabled),
		zap.Bool("web", cfg.Web.Enabled),
	)

	lc := server.NewLifecycle(logger, server.DefaultShutdownTimeout)
	lc.Add("session", &server.FuncService{ShutdownFn: func(context.Context) error {
		sess.Close()
		return nil
	}})
	if cfg.Telnet.Enabled {
		h := handlers.NewGameHandler(sess, dispatcher, observability.Component(logger, "telnet"))
		lc.Add("telnet", telnet.NewAcceptor(cfg.Telnet, h, observability.Component(logger, "telnet")))
	}
	if cfg.Web.Enabled {
		lc.Add("web", web.NewServer(cfg.Web, sess, dispatcher, releaseVersion, observability.Component(logger, "web")))
	}
	return lc.Run(ctx)
}
