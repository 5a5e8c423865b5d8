//go:build linux || darwin || freebsd || netbsd || openbsd

package monitoring

import "golang.org/x/sys/unix"

// diskUsage reports the size and the space available to unprivileged users
// of the filesystem holding path.
func diskUsage(path string) (total uint64, available uint64, err error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	blockSize := uint64(stat.Bsize)
	return stat.Blocks * blockSize, stat.Bavail * blockSize, nil
}
