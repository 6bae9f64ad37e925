package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/datecontext/internal/mcpserver"
	"github.com/Sternrassler/datecontext/pkg/datecontext"
	"github.com/spf13/cobra"
)

// errAnalysisFailed signals an error payload was printed.
var errAnalysisFailed = errors.New("analysis failed")

func newAnalyzeCmd(c *cli) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "analyze <place>",
		Short: "Print the date context for a place",
		Long: `Resolve a place and print the same JSON the analyze_date_context tool returns.

Examples:
  datecontext analyze London
  datecontext analyze "JFK Airport" --as-of 2026-02-15`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, c.cfg, c.logger, true)
			if err != nil {
				return err
			}
			defer a.close()

			server, err := mcpserver.NewServer(a.service, c.logger)
			if err != nil {
				return err
			}

			out := server.Analyze(ctx, strings.Join(args, " "), asOf)
			fmt.Fprintln(cmd.OutOrStdout(), out)

			if isErrorPayload(out) {
				return errAnalysisFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "date to use as today, ISO 8601 (e.g. 2026-02-15)")

	return cmd
}

func isErrorPayload(out string) bool {
	var payload datecontext.ErrorPayload
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		return false
	}
	return payload.Error != ""
}
