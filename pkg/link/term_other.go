//go:build !linux
// +build !linux

package link

func makeRaw(fd int) (func() error, error) {
	return nil, nil
}

func isTerminal(fd int) bool {
	return false
}
