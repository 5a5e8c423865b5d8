//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package monitoring

import "errors"

func diskUsage(string) (uint64, uint64, error) {
	return 0, 0, errors.New("filesystem usage not supported on this platform")
}
