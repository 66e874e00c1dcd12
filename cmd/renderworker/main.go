// Command renderworker serves the render protocol over HTTP or renders a
// single program from the command line.
//
//	renderworker serve [-port :8080]
//	renderworker render -in card.tsx -out card.png
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cryguy/renderworker"
	"github.com/cryguy/renderworker/internal/artifact"
	"github.com/cryguy/renderworker/internal/config"
	"github.com/cryguy/renderworker/internal/server"
	"github.com/cryguy/renderworker/internal/session"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "serve":
		err = serve(ctx, os.Args[2:])
	case "render":
		err = render(ctx, os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "renderworker:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: renderworker serve [flags] | render -in file.tsx -out image.png [flags]")
}

func setupLogger(level slog.Level) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	renderworker.SetLogger(logger)
}

func serve(ctx context.Context, args []string) error {
	cfg, err := config.Load(flag.NewFlagSet("serve", flag.ExitOnError), args)
	if err != nil {
		return err
	}
	setupLogger(cfg.LogLevel)

	store, err := artifact.FromConfig(cfg.Artifact)
	if err != nil {
		return err
	}
	srv := server.New(ctx, session.Options{Config: cfg.Worker, Store: store})
	defer srv.Close()

	httpSrv := &http.Server{
		Addr:              cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting render server", "addr", cfg.Port, "s3", cfg.Artifact.Enabled())
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("shutting down render server")
		return httpSrv.Shutdown(shutdownCtx)
	}
}

func render(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	in := fs.String("in", "", "program source (.tsx); - reads stdin")
	out := fs.String("out", "", "output image path; empty prints the artifact URI")
	timeout := fs.Duration("timeout", 30*time.Second, "overall render timeout")
	cfg, err := config.Load(fs, args)
	if err != nil {
		return err
	}
	setupLogger(cfg.LogLevel)
	if *in == "" {
		return errors.New("-in is required")
	}

	var code []byte
	if *in == "-" {
		code, err = io.ReadAll(os.Stdin)
	} else {
		code, err = os.ReadFile(*in)
	}
	if err != nil {
		return fmt.Errorf("reading program: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	store, err := artifact.FromConfig(cfg.Artifact)
	if err != nil {
		return err
	}
	client := renderworker.NewClient(ctx, renderworker.Options{Config: cfg.Worker, Store: store})
	defer client.Close()

	select {
	case <-client.Ready():
	case <-client.Done():
		return sessionErr("session failed to start", client.Err())
	case <-ctx.Done():
		return ctx.Err()
	}

	if _, err := client.Render(ctx, string(code)); err != nil {
		return err
	}
	var res renderworker.RenderResult
	select {
	case r, ok := <-client.Accepted():
		if !ok {
			return sessionErr("session stopped", client.Err())
		}
		res = r
	case <-ctx.Done():
		return ctx.Err()
	}
	if !res.OK() {
		return errors.New(res.Message)
	}
	slog.Info("rendered", "duration_ms", res.DurationMs, "format", res.Options.Format)

	if *out == "" || !strings.HasPrefix(res.ArtifactURI, "data:") {
		fmt.Println(res.ArtifactURI)
		return nil
	}
	data, err := artifact.DecodeDataURI(res.ArtifactURI)
	if err != nil {
		return err
	}
	return os.WriteFile(*out, data, 0o644)
}

func sessionErr(what string, err error) error {
	if err == nil {
		return errors.New(what)
	}
	return fmt.Errorf("%s: %w", what, err)
}
