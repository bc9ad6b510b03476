// Package commands defines the CLI command structure and flag bindings.
//
// Command execution is delegated to handler functions in the handlers
// package.
package commands

import (
	"os"

	"github.com/spf13/cobra"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/jaxxstorm/pulumi-nginx-demo/cmd/nginx-demo/handlers"
)

// Root returns the root command for the nginx-demo CLI.
func Root() *cobra.Command {
	opts := &handlers.Options{}

	cmd := &cobra.Command{
		Use:           "nginx-demo",
		Short:         "Deploy the NGINX ingress controller and production apps behind it",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger := zap.New(zap.UseDevMode(opts.Verbose), zap.WriteTo(os.Stderr))
			log.SetLogger(logger)
			cmd.SetContext(log.IntoContext(cmd.Context(), logger))
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "Path to the stack configuration file (default: nginx-demo.yaml in the current or a parent directory)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&opts.MetricsFile, "metrics-file", "", "Write operation metrics in the Prometheus text format to this file")

	cmd.AddCommand(Up(opts))
	cmd.AddCommand(Preview(opts))
	cmd.AddCommand(Destroy(opts))
	cmd.AddCommand(Outputs(opts))
	cmd.AddCommand(Version())

	return cmd
}
