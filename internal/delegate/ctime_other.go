//go:build !unix && !windows

package delegate

import (
	"os"
	"time"
)

func creationTime(_ string, fi os.FileInfo) time.Time {
	return fi.ModTime()
}
