package commands

import (
	"github.com/spf13/cobra"

	"github.com/jaxxstorm/pulumi-nginx-demo/cmd/nginx-demo/handlers"
)

// Destroy returns the destroy command.
func Destroy(opts *handlers.Options) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Delete every resource recorded in the stack state",
		Long: `Destroy deletes every resource recorded in the stack state in reverse
order: DNS records and app objects first, then the ingress controller and its
namespace. Objects that no longer exist are skipped.

On a terminal you are asked for confirmation unless --yes is given.

WARNING: This operation is irreversible.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Destroy(cmd.Context(), *opts, yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
