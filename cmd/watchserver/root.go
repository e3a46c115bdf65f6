// File created by olandr (c) 2025.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	"github.com/olandr/watch"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCmd builds the watchserver command bound to v.
func NewRootCmd(v *viper.Viper) *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "watchserver [path...]",
		Short: "Watch directory trees and log filesystem events",
		Long: heredoc.Doc(`
			Registers every path, and its subdirectories down to --depth levels,
			with the selected watch backend and logs each create, modify, delete
			and overflow event until interrupted.
		`),
		Example: heredoc.Doc(`
			# Watch ./src and two levels of subdirectories
			$ watchserver --depth 3 ./src

			# Poll a network mount every two seconds
			$ watchserver --backend poll --sensitivity high /mnt/share

			# Only report go.mod being created or removed
			$ watchserver --kinds create,delete --include go.mod .
		`),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, args)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is $HOME/.watchserver.yaml)")
	cmd.Flags().IntP("depth", "d", 1, "Levels of directories to watch, the given path being level 1")
	cmd.Flags().StringSliceP("kinds", "k", nil, "Event kinds to subscribe to (create, modify, delete, overflow)")
	cmd.Flags().StringP("backend", "b", string(watch.BackendNative), "Watch backend: native, fsnotify or poll")
	cmd.Flags().String("sensitivity", "", "Poll interval: high, medium, low or a duration")
	cmd.Flags().StringSlice("include", nil, "Only report events for these entry names")
	cmd.Flags().String("log-level", "info", "Log level: debug, info, warn or error")

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		panic(err)
	}
	v.SetEnvPrefix("WATCHSERVER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return cmd
}

func initConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return errors.Wrap(err, "locate home directory")
		}
		v.AddConfigPath(home)
		v.SetConfigName(".watchserver")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "read config")
	}
	return nil
}

func newLogger(level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "watchserver",
	})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		logger.Warn("unknown log level, using info", "level", level)
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

func serve(ctx context.Context, cfg Config, logger *log.Logger) error {
	opts, err := cfg.options(logger)
	if err != nil {
		return err
	}
	server, err := watch.Open(opts...)
	if err != nil {
		return err
	}
	defer server.Close()

	for _, path := range cfg.Paths {
		if err := server.RegisterPath(path, cfg.Depth); err != nil {
			return err
		}
	}
	logger.Info("watching", "paths", cfg.Paths, "directories", server.Len(), "depth", cfg.Depth)

	err = server.Run(ctx, eventLogger(logger), cfg.filter())
	logger.Info("stopped")
	return err
}

func eventLogger(logger *log.Logger) watch.Handlers {
	logFn := func(msg string) watch.Consumer {
		return func(event watch.Event, dir string) {
			logger.Info(msg, "path", filepath.Join(dir, event.Name), "count", event.Count)
		}
	}
	return watch.Handlers{
		Create: logFn("create"),
		Modify: logFn("modify"),
		Delete: logFn("delete"),
		Overflow: func(event watch.Event, dir string) {
			logger.Warn("overflow, events were lost", "dir", dir, "count", event.Count)
		},
	}
}
