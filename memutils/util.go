package memutils

import (
	cerrors "github.com/cockroachdb/errors"
)

// SizeAlignment is the granularity that every requested payload size is rounded up to
const SizeAlignment uint = 4

type Number interface {
	~int | ~uint
}

func CheckPow2[T Number](number T, name string) error {
	if number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

// AlignUp rounds value up to the next multiple of alignment, which must be a power of two.
// Values that are already a multiple of alignment are returned unchanged.
func AlignUp(value int, alignment uint) int {
	DebugCheckPow2(alignment, "alignment")
	return (value + int(alignment) - 1) & int(^(alignment - 1))
}

func AlignDown(value int, alignment uint) int {
	DebugCheckPow2(alignment, "alignment")
	return value & int(^(alignment - 1))
}

// AlignSize rounds a requested allocation size up to SizeAlignment
func AlignSize(size int) int {
	return AlignUp(size, SizeAlignment)
}
