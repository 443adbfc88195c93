// Package easel identifies the module and its release version.
package easel

// Version is the semantic version of the easel module.
const Version = "0.1.0"

// ModulePath is the canonical import path, printed by the version command.
const ModulePath = "github.com/liverylab/easel"
