//go:build !linux
// +build !linux

package axigpio

import "errors"

// Open is only supported on linux.
func Open(conf Config) (*Device, error) {
	return nil, errors.New("axigpio: physical memory access requires linux")
}
