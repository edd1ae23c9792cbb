// Package memutils holds the pieces shared by the block chain and the allocators built on it:
// size alignment, statistics accumulators and consistency checks that can be compiled in
// with the debug_brkheap build tag.
package memutils

import "github.com/pkg/errors"

// PowerOfTwoError is wrapped by CheckPow2 when an alignment is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")

// Validatable is anything that can check its own structure. Block chains run DebugValidate
// against themselves after every allocation and release.
type Validatable interface {
	Validate() error
}
