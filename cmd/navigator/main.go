// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

//go:build linux

// Package main implements the navigator service.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/vorlif/spreak"

	"github.com/mercatocomunale/navigator/internal/config"
	"github.com/mercatocomunale/navigator/internal/http"
	"github.com/mercatocomunale/navigator/internal/i18n"
	"github.com/mercatocomunale/navigator/internal/logger"
	"github.com/mercatocomunale/navigator/internal/server"
	"github.com/mercatocomunale/navigator/internal/service"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGABRT, os.Interrupt)
	defer cancel()

	// Initialize Logger
	log := logger.NewLogger(slog.LevelError)

	// Read config
	confRead := false
	confPath := flag.String("config", "", "path to the config file")
	serve := flag.Bool("serve", false, "serve the host API instead of guiding to the configured destination")
	flag.Parse()

	conf, err := config.New()
	if err != nil {
		log.Error("failed to load config", logger.Err(err))
		os.Exit(1)
	}

	if *confPath != "" {
		file := filepath.Base(*confPath)
		path := filepath.Dir(*confPath)
		conf, err = config.NewFromFile(path, file)
		if err != nil {
			log.Error("failed to load config from file", logger.Err(err))
			os.Exit(1)
		}
		confRead = true
	}

	// Check if we have a config file in the default location
	if path, file := findConfigFile(); !confRead && (path != "" && file != "") {
		conf, err = config.NewFromFile(path, file)
		if err != nil {
			log.Error("failed to load config from file", logger.Err(err))
			os.Exit(1)
		}
	}

	log = logger.NewLogger(conf.LogLevel)
	t, err := i18n.New(conf.Locale)
	if err != nil {
		log.Error("failed to initialize localizer", logger.Err(err))
		os.Exit(1)
	}

	log.Info(t.Get("starting navigator service"), slog.String("version", version),
		slog.String("commit", commit), slog.String("date", date))
	if *serve {
		err = runServer(ctx, conf, log, t)
	} else {
		err = runService(ctx, conf, log, t)
	}
	if err != nil {
		log.Error(t.Get("failed to start navigator service"), logger.Err(err))
	}
	log.Info(t.Get("shutting down navigator service"))
	if err != nil {
		os.Exit(1)
	}
}

func runService(ctx context.Context, conf *config.Config, log *logger.Logger, t *spreak.Localizer) error {
	serv, err := service.New(conf, log, t)
	if err != nil {
		return err
	}
	return serv.Run(ctx)
}

func runServer(ctx context.Context, conf *config.Config, log *logger.Logger, t *spreak.Localizer) error {
	provider, err := service.SelectRouteProvider(conf, http.New(log), log)
	if err != nil {
		return err
	}
	manager, err := server.NewManager(conf, provider, log)
	if err != nil {
		return err
	}
	srv, err := server.NewServer(manager, log, t)
	if err != nil {
		return err
	}
	return srv.Listen(ctx, conf.Server.Listen)
}

func findConfigFile() (string, string) {
	homedir, err := os.UserHomeDir()
	if err != nil {
		return "", ""
	}
	exts := []string{"toml", "yaml", "yml", "json"}
	for _, ext := range exts {
		path := filepath.Join(homedir, ".config", "navigator", "config."+ext)
		if _, err = os.Stat(path); err == nil {
			return filepath.Dir(path), filepath.Base(path)
		}
	}
	return "", ""
}
