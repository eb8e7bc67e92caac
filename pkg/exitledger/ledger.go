package exitledger

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/agglayer/exit-tree-go/pkg/bridgeexit"
	"github.com/agglayer/exit-tree-go/pkg/hasher"
	"github.com/agglayer/exit-tree-go/pkg/localexittree"
	"github.com/agglayer/exit-tree-go/pkg/persistence"
)

// Tree is the keccak local exit tree kept per network.
type Tree = localexittree.LocalExitTreeData[common.Hash, hasher.Keccak256]

// Proof is an inclusion proof against a Tree root.
type Proof = localexittree.LETMerkleProof[common.Hash, hasher.Keccak256]

// Frontier is the compact append-only form of a Tree.
type Frontier = localexittree.Frontier[common.Hash, hasher.Keccak256]

var (
	ErrLedgerClosed  = errors.New("exit ledger is closed")
	ErrDepthMismatch = errors.New("stored tree depth does not match ledger depth")
	ErrNilBridgeExit = errors.New("bridge exit is nil")
)

// networkEntry serializes access to one network's tree. tree is nil until
// loaded from storage, and again after a failed save.
type networkEntry struct {
	mu   sync.RWMutex
	tree *Tree
}

// Ledger keeps one local exit tree per network ID on top of a persistence
// backend. Every append is persisted before it becomes visible to readers.
type Ledger struct {
	depth  int
	store  persistence.ILETPersistence
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	networks map[uint32]*networkEntry
	closed   bool
}

// NewLedger creates a ledger over store. Trees are loaded lazily on first use.
func NewLedger(depth int, store persistence.ILETPersistence, logger *zap.Logger) (*Ledger, error) {
	if depth < 1 || depth > localexittree.MaxDepth {
		return nil, errors.Wrapf(localexittree.ErrInvalidDepth, "depth %d", depth)
	}
	if store == nil {
		return nil, errors.New("persistence backend is required")
	}

	return &Ledger{
		depth:    depth,
		store:    store,
		logger:   logger,
		now:      time.Now,
		networks: make(map[uint32]*networkEntry),
	}, nil
}

// Depth returns the height of every tree in the ledger.
func (l *Ledger) Depth() int {
	return l.depth
}

func (l *Ledger) entry(networkID uint32) (*networkEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrLedgerClosed
	}

	e, ok := l.networks[networkID]
	if !ok {
		e = &networkEntry{}
		l.networks[networkID] = e
	}
	return e, nil
}

// load restores the network's tree from storage, or starts an empty one.
// Caller must hold e.mu for writing.
func (l *Ledger) load(networkID uint32, e *networkEntry) error {
	if e.tree != nil {
		return nil
	}

	record, err := l.store.LoadTree(networkID)
	if err != nil {
		return errors.Wrapf(err, "failed to load tree for network %d", networkID)
	}

	if record == nil {
		tree, err := localexittree.New[common.Hash, hasher.Keccak256](l.depth)
		if err != nil {
			return err
		}
		e.tree = tree
		return nil
	}

	if record.Depth != l.depth {
		return errors.Wrapf(ErrDepthMismatch, "network %d: stored %d, ledger %d", networkID, record.Depth, l.depth)
	}
	tree, err := localexittree.Restore[common.Hash, hasher.Keccak256](record.Snapshot())
	if err != nil {
		return errors.Wrapf(err, "failed to restore tree for network %d", networkID)
	}

	l.logger.Sugar().Debugw("Loaded local exit tree",
		"networkId", networkID,
		"leafCount", tree.LeafCount(),
	)
	e.tree = tree
	return nil
}

// read runs fn against the network's tree while holding the entry read lock,
// loading the tree first if needed.
func (l *Ledger) read(networkID uint32, fn func(*Tree) error) error {
	e, err := l.entry(networkID)
	if err != nil {
		return err
	}

	e.mu.RLock()
	if e.tree != nil {
		defer e.mu.RUnlock()
		return fn(e.tree)
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := l.load(networkID, e); err != nil {
		return err
	}
	return fn(e.tree)
}

// AddLeaf appends leaf to the network's tree, persists the tree and returns
// the leaf index with the new root. If persisting fails the append is
// discarded and the tree is reloaded from storage on next use.
//
// Each call rewrites the network's whole tree record, so its storage cost
// grows linearly with the number of leaves already in the tree.
func (l *Ledger) AddLeaf(networkID uint32, leaf common.Hash) (uint32, common.Hash, error) {
	e, err := l.entry(networkID)
	if err != nil {
		return 0, common.Hash{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := l.load(networkID, e); err != nil {
		return 0, common.Hash{}, err
	}

	index, err := e.tree.AddLeaf(leaf)
	if err != nil {
		return 0, common.Hash{}, errors.Wrapf(err, "failed to append to network %d", networkID)
	}

	record := persistence.NewTreeRecord(networkID, e.tree.Snapshot(), l.now().Unix())
	if err := l.store.SaveTree(record); err != nil {
		e.tree = nil
		l.logger.Sugar().Errorw("Failed to persist local exit tree, discarding append",
			"networkId", networkID,
			"index", index,
			"error", err,
		)
		return 0, common.Hash{}, errors.Wrapf(err, "failed to persist tree for network %d", networkID)
	}

	root := e.tree.GetRoot()
	l.logger.Sugar().Debugw("Appended leaf",
		"networkId", networkID,
		"index", index,
		"leaf", leaf.Hex(),
		"root", root.Hex(),
	)
	return index, root, nil
}

// AddBridgeExit appends the leaf hash of exit to the network's tree.
func (l *Ledger) AddBridgeExit(networkID uint32, exit *bridgeexit.BridgeExit) (uint32, common.Hash, error) {
	if exit == nil {
		return 0, common.Hash{}, ErrNilBridgeExit
	}
	return l.AddLeaf(networkID, exit.Hash())
}

// Root returns the current root of the network's tree. A network with no
// stored tree has the empty root.
func (l *Ledger) Root(networkID uint32) (common.Hash, error) {
	var root common.Hash
	err := l.read(networkID, func(t *Tree) error {
		root = t.GetRoot()
		return nil
	})
	return root, err
}

// LeafCount returns the number of leaves appended to the network's tree.
func (l *Ledger) LeafCount(networkID uint32) (uint64, error) {
	var count uint64
	err := l.read(networkID, func(t *Tree) error {
		count = t.LeafCount()
		return nil
	})
	return count, err
}

// Proof returns the inclusion proof of the leaf at index together with the
// root it verifies against.
func (l *Ledger) Proof(networkID uint32, index uint32) (*Proof, common.Hash, error) {
	var (
		proof *Proof
		root  common.Hash
	)
	err := l.read(networkID, func(t *Tree) error {
		p, err := t.GetProof(index)
		if err != nil {
			return errors.Wrapf(err, "network %d", networkID)
		}
		proof, root = p, t.GetRoot()
		return nil
	})
	if err != nil {
		return nil, common.Hash{}, err
	}
	return proof, root, nil
}

// Frontier returns the compact append-only form of the network's tree.
func (l *Ledger) Frontier(networkID uint32) (*Frontier, error) {
	var f *Frontier
	err := l.read(networkID, func(t *Tree) error {
		f = t.Frontier()
		return nil
	})
	return f, err
}

// Networks returns the IDs of all networks with a persisted tree.
func (l *Ledger) Networks() ([]uint32, error) {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return nil, ErrLedgerClosed
	}

	networks, err := l.store.ListNetworks()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list networks")
	}
	return networks, nil
}

// DeleteNetwork removes the network's stored tree and its cached copy. Later
// reads see the empty tree. Deleting a network with no tree is not an error.
func (l *Ledger) DeleteNetwork(networkID uint32) error {
	e, err := l.entry(networkID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := l.store.DeleteTree(networkID); err != nil {
		return errors.Wrapf(err, "failed to delete tree for network %d", networkID)
	}
	e.tree = nil

	l.logger.Sugar().Infow("Deleted local exit tree", "networkId", networkID)
	return nil
}

// HealthCheck reports whether the persistence backend is usable.
func (l *Ledger) HealthCheck() error {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return ErrLedgerClosed
	}

	if err := l.store.HealthCheck(); err != nil {
		return errors.Wrap(err, "persistence health check failed")
	}
	return nil
}

// Close releases every cached tree and closes the persistence backend.
func (l *Ledger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.networks = nil
	l.mu.Unlock()

	if err := l.store.Close(); err != nil {
		return errors.Wrap(err, "failed to close persistence")
	}
	l.logger.Sugar().Info("Exit ledger closed")
	return nil
}
