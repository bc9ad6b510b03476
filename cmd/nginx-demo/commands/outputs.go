package commands

import (
	"github.com/spf13/cobra"

	"github.com/jaxxstorm/pulumi-nginx-demo/cmd/nginx-demo/handlers"
)

// Outputs returns the outputs command.
func Outputs(opts *handlers.Options) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "outputs",
		Short: "Print the stack outputs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Outputs(cmd.Context(), *opts, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print outputs as JSON")

	return cmd
}
