package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jaxxstorm/pulumi-nginx-demo/cmd/nginx-demo/handlers"
)

// Preview returns the preview command.
func Preview(opts *handlers.Options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show what up would change without touching the cluster",
		Long: `Preview renders the controller chart and the configured apps and
compares them with the saved stack state. Nothing is applied.

With --output yaml the rendered manifests are printed instead of the plan.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Preview(cmd.Context(), *opts, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", handlers.OutputPlan,
		fmt.Sprintf("Output format: %s or %s", handlers.OutputPlan, handlers.OutputYAML))

	return cmd
}
