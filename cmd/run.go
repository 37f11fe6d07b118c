// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package cmd implements the go-tarpipe cli tool that streams the
// regular-file members of tar archives to a listing or to a destination
// directory.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	tarpipe "github.com/hashicorp/go-tarpipe"
)

// CLI are the cli parameters for the go-tarpipe binary
type CLI struct {
	Archives     []string         `arg:"" name:"archives" required:"" help:"Tar archives to stream." type:"existing file"`
	Destination  string           `short:"d" optional:"" help:"Write member contents below this directory instead of listing them."`
	Mode         string           `short:"m" default:"r:*" help:"Open mode applied to every archive, e.g. r, r:* or r:gz."`
	MaxInputSize int64            `optional:"" default:"-1" help:"Maximum input size per archive (in bytes). (disable check: -1)"`
	Parallel     bool             `short:"P" help:"Run one independent stage per archive."`
	Telemetry    bool             `short:"T" optional:"" default:"false" help:"Print telemetry to log after each archive."`
	Verbose      bool             `short:"v" optional:"" help:"Verbose logging."`
	Version      kong.VersionFlag `short:"V" optional:"" help:"Print release version information."`
}

// Run is the entrypoint into go-tarpipe as a cli tool
func Run(version, commit, date string) {
	ctx := context.Background()
	var cli CLI
	kong.Parse(&cli,
		kong.Description("A streaming tar extraction utility"),
		kong.UsageOnError(),
		kong.Vars{
			"version": fmt.Sprintf("%s (%s), commit %s, built at %s", filepath.Base(os.Args[0]), version, commit, date),
		},
	)

	// Check for verbose output
	logLevel := slog.LevelError
	if cli.Verbose {
		logLevel = slog.LevelDebug
	}

	// setup logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	// setup telemetry hook
	telemetryToLog := func(ctx context.Context, td *tarpipe.TelemetryData) {
		if cli.Telemetry {
			logger.Info("archive finished", "telemetry", td)
		}
	}

	opts := []tarpipe.ConfigOption{
		tarpipe.WithLogger(logger),
		tarpipe.WithMaxInputSize(cli.MaxInputSize),
		tarpipe.WithMode(cli.Mode),
		tarpipe.WithTelemetryHook(telemetryToLog),
	}

	if err := stream(ctx, &cli, opts); err != nil {
		logger.Error("error during extraction", "error", err)
		os.Exit(-1)
	}
}

// stream consumes one stage over all archives, or one stage per archive if
// parallel execution is requested. Running independent stages over disjoint
// inputs is safe because a stage shares no state with other stages.
func stream(ctx context.Context, cli *CLI, opts []tarpipe.ConfigOption) error {
	if !cli.Parallel {
		stage := tarpipe.NewStage(tarpipe.FromPaths(cli.Archives...), opts...)
		return consume(ctx, cli, stage)
	}

	eg, ctx := errgroup.WithContext(ctx)
	for _, archive := range cli.Archives {
		archive := archive
		eg.Go(func() error {
			stage := tarpipe.NewStage(tarpipe.FromPaths(archive), opts...)
			return consume(ctx, cli, stage)
		})
	}
	return eg.Wait()
}

// consume drains a stage, either listing members or writing their contents
// below the destination directory.
func consume(ctx context.Context, cli *CLI, stage *tarpipe.Stage) error {
	it := stage.Extract(ctx)
	defer it.Close()

	for {
		f, err := it.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if cli.Destination == "" {
			fmt.Printf("%d\t%s\n", f.Size, f.Name)
			continue
		}

		if err := writeFile(cli.Destination, f); err != nil {
			return err
		}
	}
}

// writeFile copies one member stream to dst, keeping the inner path below it
func writeFile(dst string, f *tarpipe.File) error {
	// strip path traversal sequences from the inner path
	name := filepath.Join(dst, filepath.Clean(string(filepath.Separator)+f.Name))

	if err := os.MkdirAll(filepath.Dir(name), 0750); err != nil {
		return errors.Wrap(err, "cannot create output directory")
	}

	out, err := os.Create(name)
	if err != nil {
		return errors.Wrap(err, "cannot create output file")
	}
	defer out.Close()

	if _, err := io.Copy(out, f); err != nil {
		return errors.Wrapf(err, "cannot write %s", f.Name)
	}
	return nil
}
