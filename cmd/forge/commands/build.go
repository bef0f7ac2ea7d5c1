package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/forge/internal/app"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	var opts app.BuildOptions

	cmd := &cobra.Command{
		Use:   "build [target]",
		Short: "Bring a target up to date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Target = args[0]
			return c.app.Run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ManifestPath, "file", "f", "build.yaml", "Path to the build manifest")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "Path to the build database directory")
	cmd.Flags().StringVar(&opts.TracePath, "trace", "", "Path to the engine trace log")
	cmd.Flags().IntVarP(&opts.Parallelism, "jobs", "j", 0, "Maximum parallel commands (0 = NumCPU)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Rebuild when files change")

	return cmd
}
