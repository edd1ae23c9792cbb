//go:build !unix

package heap

func reserveRegion(capacity int) ([]byte, func() error, error) {
	data := make([]byte, capacity)
	release := func() error { return nil }
	return data, release, nil
}
