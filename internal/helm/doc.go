// Package helm provides Helm chart support for the ingress controller.
//
// It includes a chart registry mapping component names to chart
// specifications, downloading with an on-disk cache, deep-merged values and
// offline rendering with the Helm engine. Rendered output is ordered the way
// Helm installs a release: CRDs first, then templates sorted by kind, then
// non-test hooks.
package helm
