// Package state persists the inventory of resources a stack has applied,
// together with its exported outputs. The inventory drives deletion of
// resources that are no longer declared.
package state
