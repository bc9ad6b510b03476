package commands

import (
	"github.com/spf13/cobra"

	"github.com/jaxxstorm/pulumi-nginx-demo/cmd/nginx-demo/handlers"
)

// Up returns the up command.
func Up(opts *handlers.Options) *cobra.Command {
	var upOpts handlers.UpOptions

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Create or update the ingress controller and apps",
		Long: `Up renders the nginx-ingress chart, applies it into the controller
namespace and waits for the controller's load balancer address. It then
applies every configured app (Namespace, Deployment, Service and Ingress)
and, when a DNS provider is configured, a CNAME from the app's host to the
load balancer (an A record when the load balancer only reports an IP).

Resources declared by an earlier run but no longer configured are deleted.

Example:
  nginx-demo up -c nginx-demo.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Up(cmd.Context(), *opts, upOpts)
		},
	}

	cmd.Flags().BoolVar(&upOpts.WaitForApps, "wait", false, "Wait until every app Deployment is available")
	cmd.Flags().BoolVar(&upOpts.NoTUI, "no-tui", false, "Print plain progress lines instead of the interactive view")

	return cmd
}
