// Package builtin embeds the default UAD 1004 rule documents.
package builtin

import (
	"embed"
	"io/fs"
)

//go:embed schema registry
var files embed.FS

// FS returns the embedded rules file system, laid out as schema/ and
// registry/ directories.
func FS() fs.FS {
	return files
}
