package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-toolcall/internal/config"
	"github.com/teslashibe/go-toolcall/internal/log"
	"github.com/teslashibe/go-toolcall/pkg/predict"
)

func newAskCmd(g *globals) *cobra.Command {
	var (
		sessionID string
		endpoint  string
		jsonOut   bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Send one enquiry to the prediction service",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if endpoint == "" {
				endpoint = g.cfg.Prediction.Endpoint
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
			}

			client, err := predict.New(
				predict.WithEndpoint(endpoint),
				predict.WithTimeout(g.cfg.Prediction.Timeout),
				predict.WithLogger(log.L()),
			)
			if err != nil {
				return err
			}

			resp, err := client.Predict(cmd.Context(), predict.NewRequest(strings.Join(args, " "), sessionID))
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp.Body)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
			return err
		},
	}

	cmd.Flags().StringVar(&sessionID, "session-id", "", "session id sent as overrideConfig.sessionId (default: random)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "prediction endpoint (default: config or $"+config.EnvPredictionEndpoint+")")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the full response body")
	return cmd
}
