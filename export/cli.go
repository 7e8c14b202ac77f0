package export

import (
	"flag"
	"fmt"
	"io"
	"os"
)

// Format selects the CLI's output encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatPlantUML Format = "plantuml"
	FormatMermaid  Format = "mermaid"
	FormatMarkdown Format = "markdown"
)

// CLIOptions configures RunCLI: the output writer plus the diagram and
// overlay knobs the export model needs.
type CLIOptions struct {
	Format  Format
	Overlay string // path to a YAML pretty-name overlay, optional
	Output  io.Writer
}

// DefaultCLIOptions renders JSON to stdout.
func DefaultCLIOptions() CLIOptions {
	return CLIOptions{Format: FormatJSON, Output: os.Stdout}
}

// Render writes snap to opts.Output in opts.Format, applying an overlay
// first if one is configured.
func Render(snap Snapshot, opts CLIOptions) error {
	if opts.Overlay != "" {
		ov, err := LoadOverlay(opts.Overlay)
		if err != nil {
			return err
		}
		snap = ov.Apply(snap)
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	var data []byte
	var err error
	switch opts.Format {
	case FormatYAML:
		data, err = YAML(snap)
	case FormatPlantUML:
		data = []byte(Diagram(snap, PlantUML))
	case FormatMermaid:
		data = []byte(Diagram(snap, Mermaid))
	case FormatMarkdown:
		data = []byte(Diagram(snap, MarkdownTable))
	default:
		data, err = JSON(snap)
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", opts.Format, err)
	}

	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if _, err := out.Write([]byte("\n")); err != nil {
		return fmt.Errorf("write trailing newline: %w", err)
	}
	return nil
}

// RunCLI provides a small export/diagram front-end:
// Usage: export -format=json|yaml|plantuml|mermaid|markdown [-overlay=FILE] [-o=FILE]
func RunCLI(snap Snapshot, args []string) error {
	fs := flag.NewFlagSet("hsm-export", flag.ContinueOnError)

	format := fs.String("format", string(FormatJSON), "Output format: json, yaml, plantuml, mermaid, markdown")
	overlay := fs.String("overlay", "", "Pretty-name overlay YAML file")
	output := fs.String("o", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := CLIOptions{Format: Format(*format), Overlay: *overlay, Output: os.Stdout}

	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		opts.Output = f
	}

	return Render(snap, opts)
}
