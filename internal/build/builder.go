package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"git.home.luguber.info/inful/sitekit/internal/config"
	"git.home.luguber.info/inful/sitekit/internal/content"
	"git.home.luguber.info/inful/sitekit/internal/contentstore"
	"git.home.luguber.info/inful/sitekit/internal/integration"
	"git.home.luguber.info/inful/sitekit/internal/logfields"
	"git.home.luguber.info/inful/sitekit/internal/metrics"
)

// State is the mutable pipeline state shared by stages of a single run.
type State struct {
	Config   *config.Config
	Registry *content.Registry
	Store    *contentstore.Store
	Prepared []content.PreparedEntry
	Report   *Report
}

// Result is what a run produced. It is returned even when the run fails so
// callers can inspect the partial report.
type Result struct {
	Report   *Report
	Registry *content.Registry
	Prepared []content.PreparedEntry
}

// Builder runs the content pipeline for one configuration.
type Builder struct {
	cfg         *config.Config
	logger      *slog.Logger
	recorder    metrics.Recorder
	extra       []integration.Integration
	generator   bool
	genStdout   io.Writer
	genStderr   io.Writer
	drafts      bool
	collections []string
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used by stages and hooks.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) {
		if r != nil {
			b.recorder = r
		}
	}
}

// WithIntegrations registers additional lifecycle integrations. They run after
// the icon map generator.
func WithIntegrations(in ...integration.Integration) Option {
	return func(b *Builder) { b.extra = append(b.extra, in...) }
}

// WithoutGenerator disables the icon map generator regardless of configuration.
func WithoutGenerator() Option {
	return func(b *Builder) { b.generator = false }
}

// WithGeneratorOutput redirects generator stdio. Defaults to the process stdio.
func WithGeneratorOutput(stdout, stderr io.Writer) Option {
	return func(b *Builder) {
		b.genStdout = stdout
		b.genStderr = stderr
	}
}

// WithDrafts includes draft entries in preparation.
func WithDrafts(include bool) Option {
	return func(b *Builder) { b.drafts = include }
}

// WithCollections restricts preparation to the named collections.
func WithCollections(names ...string) Option {
	return func(b *Builder) { b.collections = append(b.collections, names...) }
}

// New creates a Builder. cfg must be non-nil.
func New(cfg *config.Config, opts ...Option) (*Builder, error) {
	if cfg == nil {
		return nil, errors.New("build: nil config")
	}
	b := &Builder{
		cfg:       cfg,
		logger:    slog.Default(),
		recorder:  metrics.NoopRecorder{},
		generator: cfg.Generator.IsEnabled(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// runner assembles a fresh integration runner. The generator hook is
// single-use, so every run gets its own instance.
func (b *Builder) runner() (*integration.Runner, error) {
	r := integration.NewRunner(b.logger)
	if b.generator {
		gopts := []integration.GeneratorOption{integration.WithRecorder(b.recorder)}
		if b.genStdout != nil || b.genStderr != nil {
			gopts = append(gopts, integration.WithOutput(b.genStdout, b.genStderr))
		}
		gen := integration.NewIconMapGenerator(b.cfg.Generator, gopts...)
		if err := r.Register(gen.Integration()); err != nil {
			return nil, err
		}
	}
	for _, in := range b.extra {
		if err := r.Register(in); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Run executes config_setup, discover_collections, load_entries and
// prepare_entries in order. A failing hook aborts the run before discovery.
func (b *Builder) Run(ctx context.Context) (*Result, error) {
	report := newReport()
	logger := b.logger.With(logfields.BuildID(report.ID))
	st := &State{Config: b.cfg, Report: report}

	runner, err := b.runner()
	if err != nil {
		report.finish(err, b.recorder)
		return &Result{Report: report}, err
	}

	defs := []StageDef{
		{Name: StageConfigSetup, Fn: func(ctx context.Context, st *State) error {
			if err := runner.Dispatch(ctx, integration.EventConfigSetup, st.Config); err != nil {
				return fmt.Errorf("%w: %w", ErrHook, err)
			}
			return nil
		}},
		{Name: StageDiscoverCollections, Fn: b.stageDiscover},
		{Name: StageLoadEntries, Fn: b.stageLoad},
		{Name: StagePrepareEntries, Fn: func(ctx context.Context, st *State) error {
			return b.stagePrepare(ctx, st, logger)
		}},
	}

	logger.Info("Build started", logfields.Path(b.cfg.Content.Root))
	err = runStages(ctx, st, defs, b.recorder, logger)
	report.finish(err, b.recorder)
	logger.Info("Build finished",
		slog.String("outcome", string(report.Outcome)),
		slog.Int("prepared", report.Prepared),
		slog.Int("unresolved", report.Unresolved),
		logfields.DurationMS(float64(report.End.Sub(report.Start).Milliseconds())))

	return &Result{Report: report, Registry: st.Registry, Prepared: st.Prepared}, err
}

func (b *Builder) stageDiscover(_ context.Context, st *State) error {
	reg, err := content.BuildRegistry(st.Config.Content.Root)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDiscovery, err)
	}
	for _, name := range b.collections {
		if _, err := reg.Get(name); err != nil {
			return fmt.Errorf("%w: %w", ErrDiscovery, err)
		}
	}
	st.Registry = reg
	st.Report.Collections = reg.Names()
	b.recorder.SetCollections(reg.Len())
	return nil
}

func (b *Builder) stageLoad(_ context.Context, st *State) error {
	store, err := contentstore.Load(st.Registry)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}
	st.Store = store
	st.Report.Entries = store.Len()
	problems := store.Problems()
	if len(problems) == 0 {
		return nil
	}
	for i := range problems {
		st.Report.addWarning(problems[i].Error())
	}
	return newWarnStageError(StageLoadEntries, fmt.Errorf("%w: %d file(s) skipped", ErrLoad, len(problems)))
}

func (b *Builder) selected(name string) bool {
	if len(b.collections) == 0 {
		return true
	}
	for _, c := range b.collections {
		if c == name {
			return true
		}
	}
	return false
}

// lookup hides drafts unless they are being prepared, so references to
// unpublished entries resolve to the unresolved sentinel.
func (b *Builder) lookup(store *contentstore.Store) content.LookupFunc {
	if b.drafts {
		return store.Lookup
	}
	return func(collection, slug string) (content.Entry, bool) {
		e, ok := store.Lookup(collection, slug)
		if !ok || e.Draft {
			return content.Entry{}, false
		}
		return e, true
	}
}

func (b *Builder) stagePrepare(ctx context.Context, st *State, logger *slog.Logger) error {
	invalid := 0
	lookup := b.lookup(st.Store)
	for _, desc := range st.Registry.Ordered() {
		name := desc.Name()
		if !b.selected(name) {
			continue
		}
		prepared, unresolved := 0, 0
		for _, e := range st.Store.Entries(name) {
			if err := ctx.Err(); err != nil {
				return err
			}
			if e.Draft && !b.drafts {
				st.Report.SkippedDrafts++
				continue
			}
			pe, err := content.Prepare(e, desc, lookup)
			if err != nil {
				var ie *content.InvalidEntryError
				if !errors.As(err, &ie) {
					return fmt.Errorf("%w: %w", ErrPrepare, err)
				}
				invalid++
				st.Report.addWarning(err.Error())
				logger.Warn("Skipping invalid entry", logfields.Collection(name), logfields.Slug(e.Slug), logfields.Field(ie.Field), logfields.Error(err))
				continue
			}
			for _, d := range pe.Diagnostics {
				logger.Warn("Unresolved reference",
					logfields.Collection(d.Collection),
					logfields.Slug(d.Slug),
					logfields.Field(d.Field),
					logfields.Target(d.Target))
			}
			unresolved += len(pe.Diagnostics)
			st.Report.Diagnostics = append(st.Report.Diagnostics, pe.Diagnostics...)
			st.Prepared = append(st.Prepared, pe)
			prepared++
		}
		st.Report.Prepared += prepared
		st.Report.Unresolved += unresolved
		b.recorder.AddPreparedEntries(name, prepared)
		b.recorder.AddUnresolvedReferences(name, unresolved)
	}
	st.Report.InvalidEntries = invalid
	if invalid > 0 {
		return newWarnStageError(StagePrepareEntries, fmt.Errorf("%w: %d invalid entr(ies) skipped", ErrPrepare, invalid))
	}
	return nil
}
