package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rendis/codeflow/internal/logging"
)

// rootOptions carries the persistent flags shared by every subcommand.
type rootOptions struct {
	configFile string
	v          *viper.Viper
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "codeflow",
		Short: "Generate control-flow diagrams from Java source",
		Long: `codeflow parses Java source (a class, a bare method, or bare statements)
and draws its control flow as a Mermaid flowchart, DOT, SVG, PNG or ASCII.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(opts.configFile)
			if err != nil {
				return err
			}
			if err := v.BindPFlag("log_level", cmd.Root().PersistentFlags().Lookup("log-level")); err != nil {
				return err
			}
			opts.v = v
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default ~/.codeflow/settings.yaml)")
	cmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")

	cmd.AddCommand(
		newServeCmd(opts),
		newRenderCmd(opts),
		newMCPCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// config decodes the effective configuration after flags are bound.
func (o *rootOptions) config() (Config, error) {
	return loadConfig(o.v)
}

// newLogger builds the process logger; lv lets serve change the level live.
func newLogger(w io.Writer, level string) (*slog.Logger, *slog.LevelVar) {
	lv := new(slog.LevelVar)
	lv.Set(logging.ParseLevel(level))
	return logging.New(w, lv), lv
}
