// Package hasher defines the two-to-one commitment functions a local exit tree
// is parameterized over.
//
// A Hasher is always used as a type parameter, never as a runtime value. Two
// trees built over different hashers are therefore different Go types and
// their digests can not be mixed by accident.
package hasher

// Hasher merges two child digests into their parent digest.
//
// Implementations must be deterministic, side-effect free and usable through
// their zero value. The zero value of D is the canonical zero digest, the
// value of a leaf that was never inserted.
type Hasher[D comparable] interface {
	Merge(left, right D) D
}
