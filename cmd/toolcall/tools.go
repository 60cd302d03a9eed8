package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-toolcall/pkg/catalog"
	"github.com/teslashibe/go-toolcall/pkg/controller"
)

func newToolsCmd(_ *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tool registration event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(controller.RegistrationEvent(catalog.Default()))
		},
	}
}
