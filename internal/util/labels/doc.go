// Package labels provides consistent labeling for the Kubernetes objects this
// tool declares.
//
// Selector labels stay minimal ({"name": <app>}) so pods keep matching across
// releases; metadata labels additionally identify the owning stack and the
// managing tool through a builder.
package labels
