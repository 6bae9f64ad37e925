package main

import (
	"github.com/Sternrassler/datecontext/internal/mcpserver"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		// Skip config loading
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("datecontext version %s\n", mcpserver.Version)
		},
	}
}
