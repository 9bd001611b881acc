package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rendis/codeflow/internal/classify"
	"github.com/rendis/codeflow/internal/flowchart"
	"github.com/rendis/codeflow/pkg/schema"
)

func newRenderCmd(opts *rootOptions) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render the flowchart of a Java file (or stdin) without a server",
		Long: `render reads Java source from the named file, or from stdin when the file
is "-" or omitted, and writes its flowchart in the chosen format. Source that
does not parse renders as the error diagram.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := schema.RenderFormat(strings.ToLower(format))
			if !f.Valid() {
				return fmt.Errorf("unknown format %q (want one of %v)", format, schema.RenderFormats)
			}
			cfg, err := opts.config()
			if err != nil {
				return err
			}

			src, err := readSource(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			logger, _ := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			c, err := classify.NewFromConfig(cfg.Classifier.Engine, cfg.Classifier.Rules)
			if err != nil {
				return err
			}
			gen := flowchart.New(flowchart.Deps{
				Classifier:     c,
				Logger:         logger,
				MaxSourceBytes: cfg.MaxCodeBytes,
			})

			out, err := gen.Render(cmd.Context(), src, f)
			if err != nil {
				return err
			}
			if f == schema.FormatMermaid || f == schema.FormatASCII {
				out = append(out, '\n')
			}
			return writeOutput(cmd.OutOrStdout(), output, out)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(schema.FormatMermaid), "output format: mermaid, dot, svg, png, ascii")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func readSource(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	return string(data), nil
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
