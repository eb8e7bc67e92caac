package localexittree

import "errors"

// Structural misuse of a tree. Fatal for the call; ErrTreeFull is fatal for
// the tree instance.
var (
	ErrInvalidDepth    = errors.New("local exit tree: invalid depth")
	ErrTreeFull        = errors.New("local exit tree: tree is full")
	ErrIndexOutOfRange = errors.New("local exit tree: leaf index out of range")
	ErrCorruptSnapshot = errors.New("local exit tree: corrupt snapshot")
	ErrInvalidFrontier = errors.New("local exit tree: invalid frontier")
)
