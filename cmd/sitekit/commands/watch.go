package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/sitekit/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Debounce      time.Duration `help:"Quiet period before a rebuild" default:"500ms"`
	SkipGenerator bool          `name:"skip-generator" help:"Do not run the icon map generator on the initial build"`
	Drafts        bool          `help:"Include draft entries"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The generator runs once; rebuilds only rescan and prepare.
	initial := &BuildCmd{SkipGenerator: w.SkipGenerator, Drafts: w.Drafts}
	if err := RunBuild(ctx, cfg, initial, g.Logger, os.Stdout); err != nil {
		return err
	}
	rebuild := &BuildCmd{SkipGenerator: true, Drafts: w.Drafts}

	watcher, err := watch.New(cfg.Content.Root, w.Debounce, func(ctx context.Context) error {
		return RunBuild(ctx, cfg, rebuild, g.Logger, os.Stdout)
	}, g.Logger)
	if err != nil {
		return err
	}
	return watcher.Run(ctx)
}
