//go:build linux || darwin

package localfs

import (
	"syscall"

	"github.com/glorpus-work/apkstash/pkg/errutils"
)

func freeSpace(dir string) (uint64, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(dir, &st); err != nil {
		return 0, errutils.Wrapf(errutils.Classify(err), "failed to stat filesystem of %s", dir)
	}
	return uint64(st.Bavail) * uint64(st.Bsize), nil
}
