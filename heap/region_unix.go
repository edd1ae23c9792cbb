//go:build unix

package heap

import (
	"golang.org/x/sys/unix"
)

func reserveRegion(capacity int) ([]byte, func() error, error) {
	data, err := unix.Mmap(-1, 0, capacity, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, nil, err
	}

	release := func() error {
		return unix.Munmap(data)
	}
	return data, release, nil
}
