package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	// Version information - typically set via ldflags at build time
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of hdlift",
	Long:  `Print the hdlift version and the version of the yosys binary it will run.`,
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "hdlift %s\n", Version)
		fmt.Fprintf(w, "Git commit: %s\n", GitCommit)
		fmt.Fprintf(w, "Build date: %s\n", BuildDate)

		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(w, "yosys: unknown (%v)\n", err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		v, err := cfg.Runner(logger).Version(ctx)
		if err != nil {
			fmt.Fprintf(w, "yosys: not available (%v)\n", err)
			return
		}
		fmt.Fprintf(w, "yosys: %s\n", v)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
