package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitekit/internal/build"
	"git.home.luguber.info/inful/sitekit/internal/config"
	"git.home.luguber.info/inful/sitekit/internal/content"
	"git.home.luguber.info/inful/sitekit/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	JSON            bool     `help:"Print the report and prepared entries as JSON"`
	SkipGenerator   bool     `name:"skip-generator" help:"Do not run the icon map generator"`
	Drafts          bool     `help:"Include draft entries"`
	Collection      []string `short:"C" help:"Restrict preparation to these collections (repeatable)"`
	MetricsTextfile string   `name:"metrics-textfile" help:"Write Prometheus metrics to this file after the build"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RunBuild(ctx, cfg, b, g.Logger, os.Stdout)
}

// RunBuild runs one build and prints its summary to out.
func RunBuild(ctx context.Context, cfg *config.Config, opts *BuildCmd, logger *slog.Logger, out io.Writer) error {
	var prom *metrics.PrometheusRecorder
	var rec metrics.Recorder = metrics.NoopRecorder{}
	if opts.MetricsTextfile != "" {
		prom = metrics.NewPrometheusRecorder(nil)
		rec = prom
	}

	bopts := []build.Option{
		build.WithLogger(logger),
		build.WithRecorder(rec),
		build.WithDrafts(opts.Drafts),
		build.WithCollections(opts.Collection...),
	}
	if opts.SkipGenerator {
		bopts = append(bopts, build.WithoutGenerator())
	}
	if opts.JSON {
		// Keep stdout parseable.
		bopts = append(bopts, build.WithGeneratorOutput(os.Stderr, os.Stderr))
	}
	builder, err := build.New(cfg, bopts...)
	if err != nil {
		return err
	}

	res, runErr := builder.Run(ctx)

	if prom != nil {
		if err := prom.WriteTextfile(opts.MetricsTextfile); err != nil {
			slog.Warn("Failed to write metrics textfile", "path", opts.MetricsTextfile, "error", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	summary := summarize(cfg, res)
	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	printSummary(out, summary)
	return nil
}

// entrySummary is the printable view of one prepared entry.
type entrySummary struct {
	Collection string                 `json:"collection"`
	Slug       string                 `json:"slug"`
	Title      string                 `json:"title,omitempty"`
	URL        string                 `json:"url"`
	Unresolved int                    `json:"unresolved,omitempty"`
	Entry      *content.PreparedEntry `json:"prepared,omitempty"`
}

type buildSummary struct {
	Report  *build.Report  `json:"report"`
	Entries []entrySummary `json:"entries"`
}

func summarize(cfg *config.Config, res *build.Result) buildSummary {
	s := buildSummary{Report: res.Report, Entries: make([]entrySummary, 0, len(res.Prepared))}
	for i := range res.Prepared {
		pe := &res.Prepared[i]
		s.Entries = append(s.Entries, entrySummary{
			Collection: pe.Collection,
			Slug:       pe.Entry.Slug,
			Title:      pe.Entry.Title,
			URL:        cfg.Site.AbsURL(pe.Permalink()),
			Unresolved: len(pe.Diagnostics),
			Entry:      pe,
		})
	}
	return s
}

func printSummary(out io.Writer, s buildSummary) {
	for _, e := range s.Entries {
		line := fmt.Sprintf("%s/%s\t%s", e.Collection, e.Slug, e.URL)
		if e.Unresolved > 0 {
			line += fmt.Sprintf("\t(%d unresolved)", e.Unresolved)
		}
		_, _ = fmt.Fprintln(out, line)
	}
	r := s.Report
	_, _ = fmt.Fprintf(out, "Build %s: %d collection(s), %d prepared, %d skipped draft(s), %d invalid, %d unresolved reference(s)\n",
		r.Outcome, len(r.Collections), r.Prepared, r.SkippedDrafts, r.InvalidEntries, r.Unresolved)
}
