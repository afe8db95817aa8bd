package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/hdl-ift/internal/design"
	"github.com/mvp-joe/hdl-ift/internal/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for design inspection",
	Long: `Start the Model Context Protocol (MCP) server so coding assistants can
inspect hardware designs.

The MCP server provides:
- hdl_hierarchy: module order and dependencies of a design
- hdl_module: source text of one module
- hdl_ancestors: modules containing a module

Hierarchy reports are cached while the server runs. It communicates via stdio.

Example:
  hdlift mcp`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	prep, cache, err := newCachedPreparer(cfg)
	if err != nil {
		return err
	}
	defer cache.Close()

	load := func(dir string) (string, error) {
		source, _, err := design.LoadSources(dir, cfg.Sources.Include, cfg.Sources.Ignore)
		return source, err
	}

	// stdout belongs to the protocol
	fmt.Fprintf(os.Stderr, "hdlift MCP server %s\n", Version)

	srv := mcp.NewServer(Version, prep, load, logger)
	return srv.Serve(cmd.Context())
}
