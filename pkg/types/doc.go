// Package types defines the scheme and layer entity types, the partial-patch
// merge engine, the layer-data variant registry, the Persistence interface,
// and the standard error values shared by the Easel synchronization engine.
package types
