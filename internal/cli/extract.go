package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/hdl-ift/internal/design"
	"github.com/mvp-joe/hdl-ift/internal/extract"
)

var extractLexical bool

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <file-or-folder> [module]",
	Short: "Print the source text of a module",
	Long: `Print the definition of one module, from the "module" keyword through the
matching "endmodule". Without a module name, list every definition with its
line range.

A folder is read the same way the design pipeline reads it, so line numbers
refer to the combined source in that case.

Example:
  hdlift extract rtl/aes.v aes_sbox
  hdlift extract designs/aes`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().BoolVar(&extractLexical, "lexical", false, "ignore keywords inside comments and strings")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	source, err := readSource(args[0], cfg.Sources.Include, cfg.Sources.Ignore)
	if err != nil {
		return err
	}

	mode := cfg.ExtractMode()
	if extractLexical {
		mode = extract.Lexical
	}
	ex := extract.New(mode)

	w := cmd.OutOrStdout()
	if len(args) == 1 {
		renderSpans(w, source, ex.Scan(source))
		return nil
	}

	text, ok := ex.ExtractOne(source, args[1])
	if !ok {
		return fmt.Errorf("module %s not found in %s", args[1], args[0])
	}
	fmt.Fprintln(w, text)
	return nil
}

// readSource reads a single file, or combines the sources of a folder.
func readSource(path string, include, ignore []string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		source, _, err := design.LoadSources(path, include, ignore)
		return source, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
