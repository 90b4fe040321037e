package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/sitekit/internal/config"
	"git.home.luguber.info/inful/sitekit/internal/content"
	"git.home.luguber.info/inful/sitekit/internal/contentstore"
	kerrors "git.home.luguber.info/inful/sitekit/internal/errors"
	"git.home.luguber.info/inful/sitekit/internal/logfields"
)

// PrepareCmd implements the 'prepare' command.
type PrepareCmd struct {
	Collection string `arg:"" help:"Collection name"`
	Slug       string `arg:"" help:"Entry slug"`
}

func (p *PrepareCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	return prepareOne(os.Stdout, cfg, p.Collection, p.Slug, g.Logger)
}

type preparedView struct {
	URL string `json:"url"`
	content.PreparedEntry
}

func prepareOne(out io.Writer, cfg *config.Config, collection, slug string, logger *slog.Logger) error {
	reg, err := content.BuildRegistry(cfg.Content.Root)
	if err != nil {
		return err
	}
	desc, err := reg.Get(collection)
	if err != nil {
		return err
	}
	store, err := contentstore.Load(reg)
	if err != nil {
		return err
	}
	entry, ok := store.Lookup(collection, slug)
	if !ok {
		return kerrors.New(kerrors.CategoryContent, kerrors.SeverityError, fmt.Sprintf("entry %s/%s not found", collection, slug)).
			WithContext("collection", collection)
	}
	pe, err := content.Prepare(entry, desc, store.Lookup)
	if err != nil {
		return err
	}
	for _, d := range pe.Diagnostics {
		logger.Warn("Unresolved reference", logfields.Field(d.Field), logfields.Target(d.Target))
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(preparedView{URL: cfg.Site.AbsURL(pe.Permalink()), PreparedEntry: pe})
}
