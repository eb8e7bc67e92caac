package main

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/agglayer/exit-tree-go/pkg/bridgeexit"
	"github.com/agglayer/exit-tree-go/pkg/config"
	"github.com/agglayer/exit-tree-go/pkg/exitledger"
	"github.com/agglayer/exit-tree-go/pkg/hasher"
	"github.com/agglayer/exit-tree-go/pkg/localexittree"
	"github.com/agglayer/exit-tree-go/pkg/logger"
)

type appendResult struct {
	NetworkID uint32      `json:"networkId"`
	Index     uint32      `json:"index"`
	Leaf      common.Hash `json:"leaf"`
	Root      common.Hash `json:"root"`
}

type rootResult struct {
	NetworkID uint32      `json:"networkId"`
	Root      common.Hash `json:"root"`
	LeafCount uint64      `json:"leafCount"`
}

type proofResult struct {
	NetworkID uint32        `json:"networkId"`
	Index     uint32        `json:"index"`
	Root      common.Hash   `json:"root"`
	Siblings  []common.Hash `json:"siblings"`
}

type verifyResult struct {
	Valid bool `json:"valid"`
}

type frontierResult struct {
	NetworkID uint32        `json:"networkId"`
	LeafCount uint64        `json:"leafCount"`
	Root      common.Hash   `json:"root"`
	Branch    []common.Hash `json:"branch"`
}

type networksResult struct {
	Networks []uint32 `json:"networks"`
}

type healthResult struct {
	PersistenceType string `json:"persistenceType"`
	Healthy         bool   `json:"healthy"`
}

type deleteResult struct {
	NetworkID uint32 `json:"networkId"`
	Deleted   bool   `json:"deleted"`
}

// ledgerConfigFromContext maps the global flags onto a LedgerConfig
func ledgerConfigFromContext(c *cli.Context) (*config.LedgerConfig, error) {
	persistenceType, err := config.ParsePersistenceType(c.String("persistence-type"))
	if err != nil {
		return nil, err
	}

	cfg := &config.LedgerConfig{
		TreeDepth:       c.Int("tree-depth"),
		PersistenceType: persistenceType,
		DataPath:        c.String("data-path"),
		Debug:           c.Bool("debug"),
	}
	if persistenceType == config.PersistenceTypeRedis {
		cfg.Redis = &config.RedisConfig{
			Address:   c.String("redis-address"),
			Password:  c.String("redis-password"),
			DB:        c.Int("redis-db"),
			KeyPrefix: c.String("redis-key-prefix"),
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// withLedger opens the configured ledger, runs fn and closes the ledger
func withLedger(c *cli.Context, fn func(*exitledger.Ledger) error) error {
	cfg, err := ledgerConfigFromContext(c)
	if err != nil {
		return err
	}

	zapLogger, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		return errors.Wrap(err, "failed to create logger")
	}
	defer func() { _ = zapLogger.Sync() }()

	ledger, err := exitledger.Open(cfg, zapLogger)
	if err != nil {
		return err
	}

	if err := fn(ledger); err != nil {
		_ = ledger.Close()
		return err
	}
	return ledger.Close()
}

func printJSON(c *cli.Context, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode output")
	}
	_, err = fmt.Fprintln(c.App.Writer, string(out))
	return err
}

func uint32Flag(c *cli.Context, name string) (uint32, error) {
	v := c.Uint(name)
	if uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("--%s %d does not fit in 32 bits", name, v)
	}
	return uint32(v), nil
}

func parseHash(name, s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, errors.Wrapf(err, "invalid --%s", name)
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid --%s: expected %d bytes, got %d", name, common.HashLength, len(b))
	}
	return common.BytesToHash(b), nil
}

func parseAddress(name, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid --%s: %q is not an address", name, s)
	}
	return common.HexToAddress(s), nil
}

func addLeafCommand(c *cli.Context) error {
	networkID, err := uint32Flag(c, "network")
	if err != nil {
		return err
	}
	leaf, err := parseHash("leaf", c.String("leaf"))
	if err != nil {
		return err
	}

	return withLedger(c, func(ledger *exitledger.Ledger) error {
		index, root, err := ledger.AddLeaf(networkID, leaf)
		if err != nil {
			return err
		}
		return printJSON(c, appendResult{NetworkID: networkID, Index: index, Leaf: leaf, Root: root})
	})
}

func bridgeExitFromContext(c *cli.Context) (*bridgeexit.BridgeExit, error) {
	leafType, err := bridgeexit.ParseLeafType(c.String("leaf-type"))
	if err != nil {
		return nil, err
	}
	originNetwork, err := uint32Flag(c, "origin-network")
	if err != nil {
		return nil, err
	}
	originToken, err := parseAddress("origin-token", c.String("origin-token"))
	if err != nil {
		return nil, err
	}
	destNetwork, err := uint32Flag(c, "dest-network")
	if err != nil {
		return nil, err
	}
	destAddress, err := parseAddress("dest-address", c.String("dest-address"))
	if err != nil {
		return nil, err
	}
	amount, err := uint256.FromDecimal(c.String("amount"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid --amount")
	}

	var metadata []byte
	if s := c.String("metadata"); s != "" {
		metadata, err = hexutil.Decode(s)
		if err != nil {
			return nil, errors.Wrap(err, "invalid --metadata")
		}
	}

	return &bridgeexit.BridgeExit{
		LeafType: leafType,
		TokenInfo: bridgeexit.TokenInfo{
			OriginNetwork:      originNetwork,
			OriginTokenAddress: originToken,
		},
		DestNetwork: destNetwork,
		DestAddress: destAddress,
		Amount:      amount,
		Metadata:    metadata,
	}, nil
}

func addExitCommand(c *cli.Context) error {
	networkID, err := uint32Flag(c, "network")
	if err != nil {
		return err
	}
	exit, err := bridgeExitFromContext(c)
	if err != nil {
		return err
	}

	return withLedger(c, func(ledger *exitledger.Ledger) error {
		index, root, err := ledger.AddBridgeExit(networkID, exit)
		if err != nil {
			return err
		}
		return printJSON(c, appendResult{NetworkID: networkID, Index: index, Leaf: exit.Hash(), Root: root})
	})
}

func rootCommand(c *cli.Context) error {
	networkID, err := uint32Flag(c, "network")
	if err != nil {
		return err
	}

	return withLedger(c, func(ledger *exitledger.Ledger) error {
		root, err := ledger.Root(networkID)
		if err != nil {
			return err
		}
		count, err := ledger.LeafCount(networkID)
		if err != nil {
			return err
		}
		return printJSON(c, rootResult{NetworkID: networkID, Root: root, LeafCount: count})
	})
}

func proofCommand(c *cli.Context) error {
	networkID, err := uint32Flag(c, "network")
	if err != nil {
		return err
	}
	index, err := uint32Flag(c, "index")
	if err != nil {
		return err
	}

	return withLedger(c, func(ledger *exitledger.Ledger) error {
		proof, root, err := ledger.Proof(networkID, index)
		if err != nil {
			return err
		}
		return printJSON(c, proofResult{NetworkID: networkID, Index: index, Root: root, Siblings: proof.Siblings})
	})
}

func verifyCommand(c *cli.Context) error {
	depth := c.Int("tree-depth")
	if depth < 1 || depth > localexittree.MaxDepth {
		return fmt.Errorf("invalid --tree-depth %d: must be between 1 and %d", depth, localexittree.MaxDepth)
	}
	leaf, err := parseHash("leaf", c.String("leaf"))
	if err != nil {
		return err
	}
	index, err := uint32Flag(c, "index")
	if err != nil {
		return err
	}
	root, err := parseHash("root", c.String("root"))
	if err != nil {
		return err
	}

	raw := c.StringSlice("siblings")
	siblings := make([]common.Hash, len(raw))
	for i, s := range raw {
		if siblings[i], err = parseHash("siblings", s); err != nil {
			return err
		}
	}

	if len(siblings) != depth {
		return fmt.Errorf("invalid --siblings: expected %d hashes for tree depth %d, got %d", depth, depth, len(siblings))
	}

	valid := localexittree.VerifyProof[common.Hash, hasher.Keccak256](depth, leaf, index, siblings, root)
	if err := printJSON(c, verifyResult{Valid: valid}); err != nil {
		return err
	}
	if !valid {
		return errors.New("proof does not verify against root")
	}
	return nil
}

func frontierCommand(c *cli.Context) error {
	networkID, err := uint32Flag(c, "network")
	if err != nil {
		return err
	}

	return withLedger(c, func(ledger *exitledger.Ledger) error {
		f, err := ledger.Frontier(networkID)
		if err != nil {
			return err
		}
		return printJSON(c, frontierResult{
			NetworkID: networkID,
			LeafCount: f.LeafCount(),
			Root:      f.GetRoot(),
			Branch:    f.Branch(),
		})
	})
}

func networksCommand(c *cli.Context) error {
	return withLedger(c, func(ledger *exitledger.Ledger) error {
		networks, err := ledger.Networks()
		if err != nil {
			return err
		}
		return printJSON(c, networksResult{Networks: networks})
	})
}

func healthCommand(c *cli.Context) error {
	return withLedger(c, func(ledger *exitledger.Ledger) error {
		if err := ledger.HealthCheck(); err != nil {
			return err
		}
		return printJSON(c, healthResult{PersistenceType: c.String("persistence-type"), Healthy: true})
	})
}

func deleteNetworkCommand(c *cli.Context) error {
	networkID, err := uint32Flag(c, "network")
	if err != nil {
		return err
	}
	if !c.Bool("yes") {
		return fmt.Errorf("refusing to delete the tree of network %d without --yes", networkID)
	}

	return withLedger(c, func(ledger *exitledger.Ledger) error {
		if err := ledger.DeleteNetwork(networkID); err != nil {
			return err
		}
		return printJSON(c, deleteResult{NetworkID: networkID, Deleted: true})
	})
}
