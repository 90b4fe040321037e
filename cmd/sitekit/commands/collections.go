package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"git.home.luguber.info/inful/sitekit/internal/content"
)

// CollectionsCmd implements the 'collections' command.
type CollectionsCmd struct {
	JSON bool `help:"Print collections as JSON"`
}

func (c *CollectionsCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	reg, err := content.BuildRegistry(cfg.Content.Root)
	if err != nil {
		return err
	}
	return writeCollections(os.Stdout, reg, c.JSON)
}

type collectionView struct {
	Name       string         `json:"name"`
	Title      string         `json:"title"`
	Path       string         `json:"path"`
	Schema     content.Schema `json:"schema,omitempty"`
	Order      int            `json:"order"`
	References []string       `json:"references,omitempty"`
}

func writeCollections(out io.Writer, reg *content.Registry, asJSON bool) error {
	descs := reg.Ordered()
	views := make([]collectionView, 0, len(descs))
	for _, d := range descs {
		views = append(views, collectionView{
			Name:       d.Name(),
			Title:      d.DisplayTitle(),
			Path:       d.Directory.Path,
			Schema:     d.Meta.Schema,
			Order:      d.Meta.Order,
			References: d.Meta.ReferenceFields(),
		})
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}
	if len(views) == 0 {
		_, err := fmt.Fprintf(out, "No collections under %s\n", reg.Root())
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tTITLE\tSCHEMA\tREFERENCES")
	for _, v := range views {
		schema := string(v.Schema)
		if schema == "" {
			schema = "-"
		}
		refs := strings.Join(v.References, ",")
		if refs == "" {
			refs = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.Name, v.Title, schema, refs)
	}
	return tw.Flush()
}
