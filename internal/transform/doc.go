// Package transform decodes rendered manifests into unstructured objects and
// runs mutation hooks over them before they are applied.
package transform
