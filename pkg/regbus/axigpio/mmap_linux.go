//go:build linux
// +build linux

package axigpio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	fx "github.com/robotalks/rigctl/pkg/framework"
)

// Open maps both GPIO blocks from physical memory.
func Open(conf Config) (*Device, error) {
	f, err := os.OpenFile(conf.MemPath, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}
	// mappings stay valid after the descriptor is closed.
	defer f.Close()

	set, err := mapBlock(f, conf.SetBase)
	if err != nil {
		return nil, err
	}
	get, err := mapBlock(f, conf.GetBase)
	if err != nil {
		unix.Munmap(set)
		return nil, err
	}
	d, err := New(set, get)
	if err != nil {
		unix.Munmap(set)
		unix.Munmap(get)
		return nil, err
	}
	d.closer = func() error {
		var errs fx.AggregatedError
		return errs.Add(unix.Munmap(set), unix.Munmap(get)).Aggregate()
	}
	return d, nil
}

func mapBlock(f *os.File, base uint64) ([]byte, error) {
	if base%uint64(os.Getpagesize()) != 0 {
		return nil, fmt.Errorf("base %#x not page aligned", base)
	}
	mem, err := unix.Mmap(int(f.Fd()), int64(base), BlockSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %#x: %v", base, err)
	}
	return mem, nil
}
