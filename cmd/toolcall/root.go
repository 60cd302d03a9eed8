package main

import (
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-toolcall/internal/config"
	"github.com/teslashibe/go-toolcall/internal/log"
)

// globals holds persistent flag values and the loaded config.
type globals struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "toolcall",
		Short: "Realtime session tool-call controller",
		Long: `toolcall mediates between a realtime conversational session and its tools.

It registers the tool catalog when the session is created, dispatches
function calls to local or remote handlers, and sends each result back
as a follow-up instruction. A dashboard shows the current tool view and
the diagnostic log.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			if g.logLevel != "" {
				cfg.Log.Level = g.logLevel
			}
			if g.logFormat != "" {
				cfg.Log.Format = g.logFormat
			}
			log.Init(cfg.Log.Level, cfg.Log.Format)
			g.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "log format: text or json")

	root.AddCommand(
		newRunCmd(g),
		newToolsCmd(g),
		newAskCmd(g),
	)
	return root
}
