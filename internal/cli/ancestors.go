package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/hdl-ift/internal/design"
	"github.com/mvp-joe/hdl-ift/internal/graph"
)

var (
	ancestorsPolicy string
	ancestorsJSON   bool
)

// ancestorsCmd represents the ancestors command
var ancestorsCmd = &cobra.Command{
	Use:   "ancestors <folder> <top-module> <module>",
	Short: "Print the modules that contain a module",
	Long: `Resolve the ancestors of a module: the modules that instantiate it directly
or transitively, nearest first. These are the modules whose analysis context is
handed to the module during a review.

Policies:
  all-paths   walk every instantiation path (default from config)
  first-path  follow only the first parent found at each level

Example:
  hdlift ancestors designs/aes aes_top aes_sbox --policy first-path`,
	Args: cobra.ExactArgs(3),
	RunE: runAncestors,
}

func init() {
	ancestorsCmd.Flags().StringVar(&ancestorsPolicy, "policy", "", "ancestor policy: all-paths or first-path")
	ancestorsCmd.Flags().BoolVar(&ancestorsJSON, "json", false, "print the chain as JSON")
	rootCmd.AddCommand(ancestorsCmd)
}

func runAncestors(cmd *cobra.Command, args []string) error {
	folder, top, module := args[0], args[1], args[2]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	policy := graph.AncestorPolicy(cfg.Analysis.AncestorPolicy)
	if ancestorsPolicy != "" {
		policy = graph.AncestorPolicy(ancestorsPolicy)
	}
	if !policy.Valid() {
		return fmt.Errorf("invalid policy %q (expected all-paths or first-path)", policy)
	}

	ctx, stop := signalContext()
	defer stop()

	d, err := newPreparer(cfg).Prepare(ctx, design.Input{Dir: folder, Top: top})
	if err != nil {
		return err
	}
	if !d.Adjacency.Has(module) {
		return fmt.Errorf("module %s is not part of the %s hierarchy", module, top)
	}

	ancestors := d.Ancestors(module, policy)
	w := cmd.OutOrStdout()
	if ancestorsJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Module    string   `json:"module"`
			Policy    string   `json:"policy"`
			Ancestors []string `json:"ancestors"`
		}{module, string(policy), ancestors})
	}
	renderAncestors(w, module, ancestors)
	return nil
}
