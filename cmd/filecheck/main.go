// Command filecheck classifies one local file interactively.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"

	appfilecheck "github.com/bryanwahyu/automaton-filecheck/internal/application/filecheck"
	"github.com/bryanwahyu/automaton-filecheck/internal/config"
	domain "github.com/bryanwahyu/automaton-filecheck/internal/domain/filecheck"
	"github.com/bryanwahyu/automaton-filecheck/internal/infra/intelix"
	"github.com/bryanwahyu/automaton-filecheck/internal/logging"
)

func main() {
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	// the console is for the operator; only warnings go to the log
	log := logging.NewWithWriter(os.Stderr, "warn")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Stdin, os.Stdout, newAnalyzer(cfg, log), log); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newAnalyzer(cfg *config.Config, log *slog.Logger) domain.Analyzer {
	httpClient := &http.Client{Timeout: cfg.Intelix.HTTPTimeout}
	session := intelix.NewSession(cfg.Intelix.Credentials, cfg.Intelix.AuthURL, httpClient)
	return intelix.NewClient(session, httpClient, intelix.Config{
		LookupURL:    cfg.Intelix.LookupURL,
		StaticURL:    cfg.Intelix.StaticURL,
		DynamicURL:   cfg.Intelix.DynamicURL,
		PollInterval: cfg.Intelix.PollInterval,
		MaxPolls:     cfg.Intelix.MaxPolls,
	}, intelix.WithLogger(log))
}

func run(ctx context.Context, in io.Reader, out io.Writer, analyzer domain.Analyzer, log *slog.Logger) error {
	fmt.Fprintln(out, "Test a file for malware using SophosLabs Intelix")
	fmt.Fprint(out, "Please enter a filename: ")

	sc := bufio.NewScanner(in)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return fmt.Errorf("read filename: %w", err)
		}
		return fmt.Errorf("%w: no filename given", domain.ErrIO)
	}
	name := strings.TrimSpace(sc.Text())
	if name == "" {
		return fmt.Errorf("%w: no filename given", domain.ErrIO)
	}
	fmt.Fprintf(out, "File being analyzed is %s\n", name)

	engine := &appfilecheck.Engine{Analyzer: analyzer, Logger: log}
	_, err := engine.Classify(ctx, name, appfilecheck.ConsoleReporter{W: out})
	return err
}
