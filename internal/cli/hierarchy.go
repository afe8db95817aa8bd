package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/hdl-ift/internal/config"
	"github.com/mvp-joe/hdl-ift/internal/design"
	"github.com/mvp-joe/hdl-ift/internal/graph"
	"github.com/mvp-joe/hdl-ift/internal/watcher"
)

var (
	hierarchyJSON  bool
	hierarchyWatch bool
	hierarchySave  bool
)

// hierarchyCmd represents the hierarchy command
var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy <folder> <top-module>",
	Short: "Print the module order and dependencies of a design",
	Long: `Run the yosys hierarchy pass over every source file of a design folder and
print the modules in dependency order (submodules before the modules that
instantiate them), each with its direct dependencies.

With --watch the hierarchy is printed again whenever a source file changes.
With --save the graph is written to <folder>/.hdlift/graphs/<top>.graph.json
and modules added or removed since the previous save are reported.

Example:
  hdlift hierarchy designs/aes aes_top
  hdlift hierarchy designs/aes aes_top --json`,
	Args: cobra.ExactArgs(2),
	RunE: runHierarchy,
}

func init() {
	hierarchyCmd.Flags().BoolVar(&hierarchyJSON, "json", false, "print the design as JSON")
	hierarchyCmd.Flags().BoolVarP(&hierarchyWatch, "watch", "w", false, "print again when sources change")
	hierarchyCmd.Flags().BoolVar(&hierarchySave, "save", false, "save the design graph under the folder")
	rootCmd.AddCommand(hierarchyCmd)
}

func runHierarchy(cmd *cobra.Command, args []string) error {
	folder, top := args[0], args[1]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	if !hierarchyWatch {
		prep := newPreparer(cfg)
		return showHierarchy(ctx, cmd.OutOrStdout(), prep, folder, top)
	}
	return watchHierarchy(ctx, cmd.OutOrStdout(), cfg, folder, top)
}

func showHierarchy(ctx context.Context, w io.Writer, prep *design.Preparer, folder, top string) error {
	d, err := prep.Prepare(ctx, design.Input{Dir: folder, Top: top})
	if err != nil {
		return err
	}

	if hierarchyJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(d); err != nil {
			return err
		}
	} else {
		renderDesign(w, d)
	}

	if hierarchySave {
		// Keep --json output parseable
		out := w
		if hierarchyJSON {
			out = os.Stderr
		}
		return saveGraph(out, folder, d)
	}
	return nil
}

// saveGraph writes the design graph to <folder>/.hdlift/graphs and reports how the
// module set changed since the last save.
func saveGraph(w io.Writer, folder string, d *design.Design) error {
	store, err := graph.NewStorage(filepath.Join(folder, config.DirName, "graphs"))
	if err != nil {
		return err
	}

	prev, err := store.Load(d.Top)
	if err != nil {
		logger.Warn("ignoring previous design graph", "top", d.Top, "error", err)
		prev = nil
	}

	next := d.GraphData()
	if err := store.Save(next); err != nil {
		return fmt.Errorf("failed to save design graph: %w", err)
	}

	if prev != nil {
		renderChanges(w, graph.DiffModules(prev, next))
	}
	logger.Info("design graph saved", "folder", folder, "top", d.Top, "modules", len(d.Order))
	return nil
}

// watchHierarchy prints the hierarchy and again after every debounced batch of
// source changes until ctx is cancelled.
func watchHierarchy(ctx context.Context, w io.Writer, cfg *config.Config, folder, top string) error {
	prep, cache, err := newCachedPreparer(cfg)
	if err != nil {
		return err
	}
	defer cache.Close()

	filter, err := design.NewSourceFilter(cfg.Sources.Include, cfg.Sources.Ignore)
	if err != nil {
		return err
	}

	if err := showHierarchy(ctx, w, prep, folder, top); err != nil {
		// A broken design is reported and watched until it is fixed
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	fw, err := watcher.New(folder,
		watcher.WithMatcher(filter.Match),
		watcher.WithLogger(logger))
	if err != nil {
		return err
	}

	changed := make(chan []string, 1)
	if err := fw.Start(ctx, func(files []string) {
		select {
		case changed <- files:
		default:
		}
	}); err != nil {
		return err
	}
	defer fw.Stop()

	fmt.Fprintf(os.Stderr, "Watching %s for changes (Ctrl+C to stop)\n", folder)
	for {
		select {
		case <-ctx.Done():
			return nil
		case files := <-changed:
			logger.Info("sources changed", "files", len(files))
			fmt.Fprintln(w)
			if err := showHierarchy(ctx, w, prep, folder, top); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		}
	}
}
