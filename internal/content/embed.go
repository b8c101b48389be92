package content

import (
	"embed"
	"io/fs"
)

//go:embed data/scripts
var embeddedScripts embed.FS

// DefaultScripts returns the scripts compiled into the binary.
func DefaultScripts() fs.FS {
	sub, err := fs.Sub(embeddedScripts, "data/scripts")
	if err != nil {
		panic("content: failed to create scripts sub filesystem: " + err.Error())
	}
	return sub
}
