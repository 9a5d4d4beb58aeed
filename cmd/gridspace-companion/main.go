// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

//go:build linux

// Package main implements the gridspace-companion service.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/wneessen/gridspace-companion/internal/config"
	"github.com/wneessen/gridspace-companion/internal/logger"
	"github.com/wneessen/gridspace-companion/internal/service"
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
	log := logger.New(slog.LevelError)

	confPath := pflag.StringP("config", "c", "", "path to the config file")
	envFile := pflag.String("env-file", ".env", "path to a dotenv file with GRIDSPACE_* overrides")
	pflag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Error("failed to load environment file", slog.String("file", *envFile), logger.Err(err))
		os.Exit(1)
	}

	conf, err := config.Load(*confPath)
	if err != nil {
		log.Error("failed to load config", logger.Err(err))
		os.Exit(1)
	}

	log = logger.New(conf.LogLevel)
	serv, err := service.New(conf, log)
	if err != nil {
		log.Error("failed to initialize gridspace-companion service", logger.Err(err))
		os.Exit(1)
	}

	log.Info("starting gridspace-companion service", slog.String("version", version),
		slog.String("commit", commit), slog.String("date", date))
	if err = serv.Run(ctx); err != nil {
		log.Error("gridspace-companion service failed", logger.Err(err))
		os.Exit(1)
	}
	log.Info("shutting down gridspace-companion service")
}
