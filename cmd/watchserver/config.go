// File created by olandr (c) 2025.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package main

import (
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/olandr/watch"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the daemon configuration. Values come from flags, WATCHSERVER_*
// environment variables and the YAML config file, in that order of
// precedence.
type Config struct {
	Paths       []string `mapstructure:"paths"`
	Depth       int      `mapstructure:"depth"`
	Kinds       []string `mapstructure:"kinds"`
	Backend     string   `mapstructure:"backend"`
	Sensitivity string   `mapstructure:"sensitivity"`
	Include     []string `mapstructure:"include"`
	LogLevel    string   `mapstructure:"log-level"`
}

func loadConfig(v *viper.Viper, args []string) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(err, "decode config")
	}
	if len(args) > 0 {
		cfg.Paths = args
	}
	if len(cfg.Paths) == 0 {
		return cfg, errors.New("no paths to watch")
	}
	if cfg.Depth < 1 {
		cfg.Depth = 1
	}
	return cfg, nil
}

var kindNames = map[string]watch.Kind{
	"create":   watch.Create,
	"modify":   watch.Modify,
	"delete":   watch.Delete,
	"overflow": watch.Overflow,
	"all":      watch.All,
}

// parseKinds folds kind names into a kinds set. No names means all kinds.
func parseKinds(names []string) (watch.Kind, error) {
	var kinds watch.Kind
	for _, name := range names {
		for _, part := range strings.Split(name, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			k, ok := kindNames[part]
			if !ok {
				return 0, errors.Errorf("unknown event kind %q", part)
			}
			kinds |= k
		}
	}
	if kinds == 0 {
		kinds = watch.All
	}
	return kinds, nil
}

// parseSensitivity accepts high, medium, low or a Go duration.
func parseSensitivity(s string) (watch.Sensitivity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return 0, nil
	case "high":
		return watch.SensitivityHigh, nil
	case "medium":
		return watch.SensitivityMedium, nil
	case "low":
		return watch.SensitivityLow, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(err, "sensitivity %q", s)
	}
	if d <= 0 {
		return 0, errors.Errorf("sensitivity %q must be positive", s)
	}
	return watch.Sensitivity(d), nil
}

func (c Config) options(logger *log.Logger) ([]watch.Option, error) {
	backend, err := watch.ParseBackend(c.Backend)
	if err != nil {
		return nil, err
	}
	kinds, err := parseKinds(c.Kinds)
	if err != nil {
		return nil, err
	}
	sensitivity, err := parseSensitivity(c.Sensitivity)
	if err != nil {
		return nil, err
	}
	opts := []watch.Option{
		watch.WithLogger(logger),
		watch.WithBackend(backend),
		watch.WithKinds(kinds),
	}
	if sensitivity > 0 {
		opts = append(opts, watch.WithPollInterval(sensitivity), watch.WithModifiers(sensitivity))
	}
	return opts, nil
}

func (c Config) filter() watch.Filter {
	if len(c.Include) == 0 {
		return nil
	}
	return watch.NameFilter(c.Include...)
}
