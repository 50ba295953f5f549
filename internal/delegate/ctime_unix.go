//go:build unix

package delegate

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

func creationTime(path string, fi os.FileInfo) time.Time {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return fi.ModTime()
	}
	return time.Unix(st.Ctim.Unix())
}
