// Command iref inspects, builds and queries ISOBMFF 'iref' boxes.
//
// Input files may be raw box dumps or wrapped in zip, zstd, lz4, brotli or
// xz. The wrapping is taken from the file extension or sniffed from the data.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/logicossoftware/go-iref"
	"github.com/logicossoftware/go-iref/internal/compress"
	"github.com/logicossoftware/go-iref/internal/graphjson"
	"github.com/logicossoftware/go-iref/internal/logging"
)

var stdout io.Writer = os.Stdout

// Globals are the flags shared by every command.
type Globals struct {
	LogLevel   string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)"`
	LogFormat  string `name:"log-format" default:"text" enum:"text,json" help:"Log format (text, json)"`
	MaxBoxSize uint64 `name:"max-box-size" default:"16777216" help:"Largest iref box accepted, in bytes"`
	Strict     bool   `help:"Reject reference types outside the known set"`
}

func (g *Globals) readOptions() []iref.ReadOption {
	l := iref.DefaultLimits()
	l.MaxBoxSize = g.MaxBoxSize
	return []iref.ReadOption{iref.WithReadLimits(l), iref.WithStrictTypes(g.Strict)}
}

// CLI defines the command-line interface for iref.
var CLI struct {
	Globals

	Inspect InspectCmd `cmd:"" help:"Print an iref box as JSON"`
	Build   BuildCmd   `cmd:"" help:"Encode an iref box from a JSON description"`
	Query   QueryCmd   `cmd:"" help:"List references of one type"`
}

// loadBox reads, unwraps and decodes the box stored at path.
func loadBox(g *Globals, path string) (graphjson.Graph, *iref.ItemReferenceBox, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return graphjson.Graph{}, nil, err
	}
	data, comp, err := compress.Open(path, raw, g.MaxBoxSize)
	if err != nil {
		return graphjson.Graph{}, nil, err
	}
	slog.Debug("read box", "path", path, "compression", comp.String(), "bytes", len(data))

	graph, box, err := graphjson.Describe(data, g.readOptions()...)
	if err != nil {
		return graphjson.Graph{}, nil, fmt.Errorf("%s: %w", path, err)
	}
	if int(graph.Size) < len(data) {
		slog.Warn("trailing bytes after iref box", "path", path, "bytes", len(data)-int(graph.Size))
	}
	return graph, box, nil
}

// InspectCmd prints a box as JSON.
type InspectCmd struct {
	Path string `arg:"" help:"Box file" type:"existingfile"`
}

func (c *InspectCmd) Run(g *Globals) error {
	graph, _, err := loadBox(g, c.Path)
	if err != nil {
		return err
	}
	slog.Info("decoded iref box", "path", c.Path, "version", graph.Version, "references", len(graph.References))
	return graphjson.Write(stdout, graph)
}

// BuildCmd encodes a box from a JSON description.
type BuildCmd struct {
	Input    string `arg:"" help:"JSON description of the references" type:"existingfile"`
	Out      string `short:"o" required:"" help:"Output file" type:"path"`
	Compress string `default:"none" help:"Wrap output in none, zip, zstd, lz4, brotli or xz"`
	Wide     bool   `help:"Always write 32-bit item ids (version 1)"`
}

func (c *BuildCmd) Run(g *Globals) error {
	comp, err := compress.Parse(c.Compress)
	if err != nil {
		return err
	}
	f, err := os.Open(c.Input)
	if err != nil {
		return err
	}
	graph, err := graphjson.Read(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", c.Input, err)
	}
	box, err := graph.Box()
	if err != nil {
		return fmt.Errorf("%s: %w", c.Input, err)
	}

	opts := []iref.WriteOption{}
	if c.Wide {
		opts = append(opts, iref.WithMinIDWidth(iref.Wide))
	}
	bw := iref.NewWriter(nil)
	if err := box.WriteBox(bw, opts...); err != nil {
		return err
	}
	out, err := compress.Compress(comp, bw.Bytes())
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.Out, out, 0o644); err != nil {
		return err
	}
	slog.Info("wrote iref box",
		"path", c.Out,
		"references", box.Len(),
		"bytes", bw.Offset(),
		"compression", comp.String(),
		"blake3", graphjson.Digest(bw.Bytes()))
	return nil
}

// QueryCmd lists the references of one type.
type QueryCmd struct {
	Path string `arg:"" help:"Box file" type:"existingfile"`
	Type string `required:"" help:"Reference type, e.g. dimg or thmb"`
	From int64  `default:"-1" help:"Only references from this item id"`
}

func (c *QueryCmd) Run(g *Globals) error {
	typ, err := iref.ParseFourCC(c.Type)
	if err != nil {
		return err
	}
	_, box, err := loadBox(g, c.Path)
	if err != nil {
		return err
	}
	refs := box.ReferencesOfType(typ)
	n := 0
	for _, r := range refs {
		if c.From >= 0 && int64(r.FromItemID()) != c.From {
			continue
		}
		fmt.Fprintln(stdout, r)
		n++
	}
	if n == 0 {
		return fmt.Errorf("%w: no %s references", errNoMatch, typ)
	}
	return nil
}

var errNoMatch = errors.New("no match")

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("iref"),
		kong.Description("Inspect and build ISOBMFF item reference boxes"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	if _, err := logging.Setup(os.Stderr, CLI.LogLevel, CLI.LogFormat); err != nil {
		ctx.FatalIfErrorf(err)
	}
	err := ctx.Run(&CLI.Globals)
	ctx.FatalIfErrorf(err)
}
