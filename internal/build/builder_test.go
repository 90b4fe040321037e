package build

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitekit/internal/config"
	"git.home.luguber.info/inful/sitekit/internal/content"
	"git.home.luguber.info/inful/sitekit/internal/integration"
	"git.home.luguber.info/inful/sitekit/internal/metrics"
)

func writeSite(t *testing.T, tree map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, body := range tree {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}
	return root
}

func testConfig(root string) *config.Config {
	disabled := false
	return &config.Config{
		Content:   config.ContentConfig{Root: root},
		Generator: config.GeneratorConfig{Enabled: &disabled},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

var blogSite = map[string]string{
	"authors/_meta.yaml": "title: Authors\norder: 2\n",
	"authors/ada.md":     "---\ntitle: Ada Lovelace\n---\nBio.\n",
	"blog/_meta.yaml":    "title: Blog\norder: 1\nschema: post\nreferences: [author]\n",
	"blog/first.md":      "---\ntitle: First\ndate: 2024-03-01\nauthor: authors/ada\nrelated: [second]\n---\nBody.\n",
	"blog/second.md":     "---\ntitle: Second\ndate: 2024-03-02\nauthor: authors/grace\n---\nBody.\n",
}

func TestBuilder_RunPreparesAllCollections(t *testing.T) {
	root := writeSite(t, blogSite)
	b, err := New(testConfig(root), WithLogger(quietLogger()))
	require.NoError(t, err)

	res, err := b.Run(t.Context())
	require.NoError(t, err)
	require.Equal(t, []string{"authors", "blog"}, res.Report.Collections)
	require.Equal(t, 3, res.Report.Entries)
	require.Equal(t, 3, res.Report.Prepared)
	require.Len(t, res.Prepared, 3)

	// blog has order 1, so its entries come first.
	first := res.Prepared[0]
	require.Equal(t, "blog", first.Collection)
	require.Equal(t, "first", first.Entry.Slug)
	author := first.Reference("author")
	require.NotNil(t, author)
	require.Equal(t, "Ada Lovelace", author.Title)
	related := first.Reference("related")
	require.NotNil(t, related)
	require.Equal(t, "second", related.Slug)

	// The missing author is a diagnostic, not a failure.
	require.Equal(t, 1, res.Report.Unresolved)
	require.Len(t, res.Report.Diagnostics, 1)
	require.Equal(t, "authors/grace", res.Report.Diagnostics[0].Target)
	require.Equal(t, OutcomeWarning, res.Report.Outcome)
	for _, s := range []StageName{StageConfigSetup, StageDiscoverCollections, StageLoadEntries, StagePrepareEntries} {
		require.True(t, res.Report.StageRan(s), "stage %s", s)
	}
	require.NotEmpty(t, res.Report.ID)
}

func TestBuilder_CleanSiteSucceeds(t *testing.T) {
	root := writeSite(t, map[string]string{
		"docs/intro.md": "# Intro\n",
	})
	b, err := New(testConfig(root), WithLogger(quietLogger()))
	require.NoError(t, err)

	res, err := b.Run(t.Context())
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, res.Report.Outcome)
	require.Equal(t, "Intro", res.Prepared[0].Entry.Title)
	require.Equal(t, "/docs/intro/", res.Prepared[0].Permalink())
}

func TestBuilder_GeneratorFailureStopsBeforeDiscovery(t *testing.T) {
	root := writeSite(t, blogSite)
	scriptDir := t.TempDir()
	script := filepath.Join(scriptDir, "icons.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexit 1\n"), 0o755))

	enabled := true
	cfg := testConfig(root)
	cfg.Generator = config.GeneratorConfig{Enabled: &enabled, Command: "sh", Script: script, Dir: scriptDir, Timeout: 10 * time.Second}

	discovered := false
	b, err := New(cfg,
		WithLogger(quietLogger()),
		WithGeneratorOutput(&bytes.Buffer{}, &bytes.Buffer{}),
		WithIntegrations(integration.Integration{Name: "after", Hooks: map[integration.Event]integration.Handler{
			integration.EventConfigSetup: func(context.Context, integration.HookContext) error {
				discovered = true
				return nil
			},
		}}))
	require.NoError(t, err)

	res, err := b.Run(t.Context())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrHook)
	var gfe *integration.GeneratorFailedError
	require.True(t, errors.As(err, &gfe))
	require.Equal(t, 1, gfe.ExitCode)

	require.False(t, discovered)
	require.True(t, res.Report.StageRan(StageConfigSetup))
	require.False(t, res.Report.StageRan(StageDiscoverCollections))
	require.Nil(t, res.Registry)
	require.Empty(t, res.Prepared)
	require.Equal(t, OutcomeFailed, res.Report.Outcome)
}

func TestBuilder_CancelDuringGeneratorIsCanceled(t *testing.T) {
	root := writeSite(t, blogSite)
	scriptDir := t.TempDir()
	script := filepath.Join(scriptDir, "icons.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexec sleep 5\n"), 0o755))

	enabled := true
	cfg := testConfig(root)
	cfg.Generator = config.GeneratorConfig{Enabled: &enabled, Command: "sh", Script: script, Dir: scriptDir, Timeout: 10 * time.Second}
	b, err := New(cfg, WithLogger(quietLogger()), WithGeneratorOutput(&bytes.Buffer{}, &bytes.Buffer{}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	time.AfterFunc(200*time.Millisecond, cancel)
	res, err := b.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	var gfe *integration.GeneratorFailedError
	require.False(t, errors.As(err, &gfe))
	require.Equal(t, OutcomeCanceled, res.Report.Outcome)
	require.Equal(t, StageErrorCanceled, res.Report.StageResults[StageConfigSetup])
	require.False(t, res.Report.StageRan(StageDiscoverCollections))
}

func TestBuilder_HookRunsBeforeDiscovery(t *testing.T) {
	root := writeSite(t, map[string]string{"docs/a.md": "# A\n"})
	hook := integration.Integration{Name: "seed", Hooks: map[integration.Event]integration.Handler{
		integration.EventConfigSetup: func(_ context.Context, hc integration.HookContext) error {
			dir := filepath.Join(hc.Config.Content.Root, "generated")
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			return os.WriteFile(filepath.Join(dir, "icons.md"), []byte("# Icons\n"), 0o600)
		},
	}}
	b, err := New(testConfig(root), WithLogger(quietLogger()), WithIntegrations(hook))
	require.NoError(t, err)

	res, err := b.Run(t.Context())
	require.NoError(t, err)
	require.Equal(t, []string{"docs", "generated"}, res.Report.Collections)
	require.Equal(t, 2, res.Report.Prepared)
}

func TestBuilder_DraftsSkippedUnlessRequested(t *testing.T) {
	root := writeSite(t, map[string]string{
		"docs/live.md":  "# Live\n",
		"docs/draft.md": "---\ndraft: true\n---\n# Draft\n",
	})

	b, err := New(testConfig(root), WithLogger(quietLogger()))
	require.NoError(t, err)
	res, err := b.Run(t.Context())
	require.NoError(t, err)
	require.Equal(t, 1, res.Report.Prepared)
	require.Equal(t, 1, res.Report.SkippedDrafts)

	b, err = New(testConfig(root), WithLogger(quietLogger()), WithDrafts(true))
	require.NoError(t, err)
	res, err = b.Run(t.Context())
	require.NoError(t, err)
	require.Equal(t, 2, res.Report.Prepared)
	require.Zero(t, res.Report.SkippedDrafts)
}

func TestBuilder_ReferenceToDraftIsUnresolved(t *testing.T) {
	root := writeSite(t, map[string]string{
		"blog/_meta.yaml": "references: [related]\n",
		"blog/a.md":       "---\ntitle: A\nrelated: secret\n---\n",
		"blog/secret.md":  "---\ntitle: Unpublished\ndraft: true\n---\n",
	})

	b, err := New(testConfig(root), WithLogger(quietLogger()))
	require.NoError(t, err)
	res, err := b.Run(t.Context())
	require.NoError(t, err)
	require.Equal(t, 1, res.Report.Prepared)
	require.Equal(t, 1, res.Report.SkippedDrafts)
	require.Len(t, res.Prepared, 1)
	a := res.Prepared[0]
	require.Nil(t, a.Reference("related"))
	require.Len(t, a.Diagnostics, 1)
	require.Equal(t, "related", a.Diagnostics[0].Field)
	require.Equal(t, "secret", a.Diagnostics[0].Target)
	require.Equal(t, 1, res.Report.Unresolved)

	b, err = New(testConfig(root), WithLogger(quietLogger()), WithDrafts(true))
	require.NoError(t, err)
	res, err = b.Run(t.Context())
	require.NoError(t, err)
	require.Len(t, res.Prepared, 2)
	related := res.Prepared[0].Reference("related")
	require.NotNil(t, related)
	require.Equal(t, "Unpublished", related.Title)
	require.Empty(t, res.Prepared[0].Diagnostics)
}

func TestBuilder_InvalidEntryIsWarning(t *testing.T) {
	root := writeSite(t, map[string]string{
		"blog/_meta.yaml": "schema: post\n",
		"blog/dated.md":   "---\ndate: 2024-01-01\n---\n# Dated\n",
		"blog/undated.md": "# Undated\n",
	})
	b, err := New(testConfig(root), WithLogger(quietLogger()))
	require.NoError(t, err)

	res, err := b.Run(t.Context())
	require.NoError(t, err)
	require.Equal(t, 1, res.Report.Prepared)
	require.Equal(t, 1, res.Report.InvalidEntries)
	require.Equal(t, OutcomeWarning, res.Report.Outcome)
	require.Equal(t, StageErrorWarning, res.Report.StageResults[StagePrepareEntries])
}

func TestBuilder_CollectionFilter(t *testing.T) {
	root := writeSite(t, blogSite)

	b, err := New(testConfig(root), WithLogger(quietLogger()), WithCollections("authors"))
	require.NoError(t, err)
	res, err := b.Run(t.Context())
	require.NoError(t, err)
	require.Len(t, res.Prepared, 1)
	require.Equal(t, "authors", res.Prepared[0].Collection)

	b, err = New(testConfig(root), WithLogger(quietLogger()), WithCollections("missing"))
	require.NoError(t, err)
	res, err = b.Run(t.Context())
	require.ErrorIs(t, err, ErrDiscovery)
	var nf *content.CollectionNotFoundError
	require.True(t, errors.As(err, &nf))
	require.Equal(t, "missing", nf.Name)
	require.Equal(t, OutcomeFailed, res.Report.Outcome)
}

func TestBuilder_MalformedMetaFailsDiscovery(t *testing.T) {
	root := writeSite(t, map[string]string{
		"docs/_meta.yaml": "title: [unclosed\n",
	})
	b, err := New(testConfig(root), WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = b.Run(t.Context())
	require.ErrorIs(t, err, ErrDiscovery)
	var mpe *content.MetadataParseError
	require.True(t, errors.As(err, &mpe))
}

func TestBuilder_CanceledContext(t *testing.T) {
	root := writeSite(t, blogSite)
	b, err := New(testConfig(root), WithLogger(quietLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	res, err := b.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, OutcomeCanceled, res.Report.Outcome)
	require.False(t, res.Report.StageRan(StageConfigSetup))
}

func TestBuilder_RecordsMetrics(t *testing.T) {
	root := writeSite(t, blogSite)
	rec := metrics.NewPrometheusRecorder(nil)
	b, err := New(testConfig(root), WithLogger(quietLogger()), WithRecorder(rec))
	require.NoError(t, err)

	_, err = b.Run(t.Context())
	require.NoError(t, err)

	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	require.True(t, names["sitekit_collections"])
	require.True(t, names["sitekit_build_outcomes_total"])
	require.True(t, names["sitekit_stage_duration_seconds"])
}

func TestNew_RejectsNilConfig(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestNew_DuplicateIntegrationFailsRun(t *testing.T) {
	root := writeSite(t, map[string]string{"docs/a.md": "# A\n"})
	in := integration.Integration{Name: "dup"}
	b, err := New(testConfig(root), WithLogger(quietLogger()), WithIntegrations(in, in))
	require.NoError(t, err)

	res, err := b.Run(t.Context())
	require.Error(t, err)
	require.Equal(t, OutcomeFailed, res.Report.Outcome)
}
