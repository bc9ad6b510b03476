// Package main is the entry point for the nginx-demo CLI.
//
// nginx-demo installs the NGINX ingress controller from its Helm chart into a
// Kubernetes cluster and deploys production apps behind it, optionally
// binding a DNS name for each app to the controller's load balancer.
//
// Commands: up, preview, destroy, outputs, version.
//
// For detailed usage information, run:
//
//	nginx-demo --help
package main

import (
	"fmt"
	"os"

	"github.com/jaxxstorm/pulumi-nginx-demo/cmd/nginx-demo/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
