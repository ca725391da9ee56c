package commands

import (
	"os"

	"github.com/spf13/cobra"

	cliconfig "github.com/leapstack-labs/forthls/internal/cli/config"
	"github.com/leapstack-labs/forthls/internal/lsp"
)

// NewLSPCommand creates the lsp command.
func NewLSPCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		Long: `Start the LSP server for editor integration.

The server communicates over stdin/stdout using JSON-RPC. The project
root is taken from the client's initialization request (rootUri), and
forthls.yaml is loaded from there unless --config is given.`,
		Example: `  # Start LSP server (usually called by an editor)
  forthls lsp

  # Force a configuration file
  forthls lsp --config ~/forth/forthls.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLSP(cmd, version)
		},
	}

	return cmd
}

func runLSP(cmd *cobra.Command, version string) error {
	opts := lsp.Options{
		Logger:  cliconfig.GetLogger(cmd.Context()),
		Version: version,
	}
	if f := cmd.Flag("config"); f != nil && f.Changed {
		opts.Config = cliconfig.GetConfig(cmd.Context())
	}

	server := lsp.NewServerWithOptions(os.Stdin, os.Stdout, opts)
	return server.Run(cmd.Context())
}
