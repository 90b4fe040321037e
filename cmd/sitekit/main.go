package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitekit/cmd/sitekit/commands"
	"git.home.luguber.info/inful/sitekit/internal/errors"
	"git.home.luguber.info/inful/sitekit/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("sitekit"),
		kong.Description("Content collections, entry preparation and build hooks for static sites."),
		kong.Vars{"version": version.Version},
	)
	if err := ctx.Run(&commands.Global{Logger: slog.Default()}, &cli); err != nil {
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
