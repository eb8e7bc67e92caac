package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/agglayer/exit-tree-go/pkg/config"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func networkFlag() cli.Flag {
	return &cli.UintFlag{
		Name:     "network",
		Usage:    "Network ID owning the local exit tree",
		Required: true,
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "let-tool",
		Usage: "Maintain and query per-network local exit trees",
		Description: `Appends leaves to the local exit tree of a network and serves roots and
inclusion proofs matching the bridge contract's keccak Merkle tree.

Every command prints a JSON document on stdout. The verify command is
stateless and does not open the store.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "tree-depth",
				Usage:   "Height of every local exit tree",
				Value:   config.DefaultTreeDepth,
				EnvVars: []string{config.EnvLETTreeDepth},
			},
			&cli.StringFlag{
				Name:    "persistence-type",
				Usage:   "Storage backend: " + config.GetSupportedPersistenceTypesString(),
				Value:   config.PersistenceTypeLevelDB.String(),
				EnvVars: []string{config.EnvLETPersistenceType},
			},
			&cli.StringFlag{
				Name:    "data-path",
				Usage:   "Database directory for badger and leveldb",
				Value:   "./let-data",
				EnvVars: []string{config.EnvLETDataPath},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "Redis server address (host:port)",
				EnvVars: []string{config.EnvLETRedisAddress},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				EnvVars: []string{config.EnvLETRedisPassword},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number",
				EnvVars: []string{config.EnvLETRedisDB},
			},
			&cli.StringFlag{
				Name:    "redis-key-prefix",
				Usage:   "Prefix prepended to every Redis key",
				EnvVars: []string{config.EnvLETRedisKeyPrefix},
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				EnvVars: []string{config.EnvLETDebug},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "add-leaf",
				Usage: "Append a 32-byte leaf to a network's tree",
				Flags: []cli.Flag{
					networkFlag(),
					&cli.StringFlag{
						Name:     "leaf",
						Usage:    "Leaf hash (0x-prefixed, 32 bytes)",
						Required: true,
					},
				},
				Action: addLeafCommand,
			},
			{
				Name:  "add-exit",
				Usage: "Append the leaf hash of a bridge exit to a network's tree",
				Flags: []cli.Flag{
					networkFlag(),
					&cli.StringFlag{
						Name:  "leaf-type",
						Usage: "transfer or message",
						Value: "transfer",
					},
					&cli.UintFlag{
						Name:  "origin-network",
						Usage: "Network the token was minted on",
					},
					&cli.StringFlag{
						Name:  "origin-token",
						Usage: "Token address on the origin network",
						Value: "0x0000000000000000000000000000000000000000",
					},
					&cli.UintFlag{
						Name:     "dest-network",
						Usage:    "Destination network ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "dest-address",
						Usage:    "Destination address",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "amount",
						Usage: "Amount in base units (decimal)",
						Value: "0",
					},
					&cli.StringFlag{
						Name:  "metadata",
						Usage: "Metadata bytes (0x-prefixed hex)",
					},
				},
				Action: addExitCommand,
			},
			{
				Name:   "root",
				Usage:  "Print the current root and leaf count of a network's tree",
				Flags:  []cli.Flag{networkFlag()},
				Action: rootCommand,
			},
			{
				Name:  "proof",
				Usage: "Print the inclusion proof of a leaf",
				Flags: []cli.Flag{
					networkFlag(),
					&cli.UintFlag{
						Name:     "index",
						Usage:    "Leaf index",
						Required: true,
					},
				},
				Action: proofCommand,
			},
			{
				Name:  "verify",
				Usage: "Check an inclusion proof against a root",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "leaf",
						Usage:    "Leaf hash",
						Required: true,
					},
					&cli.UintFlag{
						Name:     "index",
						Usage:    "Leaf index",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "root",
						Usage:    "Expected root",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:     "siblings",
						Usage:    "Sibling hashes from the leaf level upwards, exactly --tree-depth of them (comma separated or repeated)",
						Required: true,
					},
				},
				Action: verifyCommand,
			},
			{
				Name:   "frontier",
				Usage:  "Print the compact frontier of a network's tree",
				Flags:  []cli.Flag{networkFlag()},
				Action: frontierCommand,
			},
			{
				Name:   "networks",
				Usage:  "List networks with a stored tree",
				Action: networksCommand,
			},
			{
				Name:   "health",
				Usage:  "Check that the storage backend is reachable",
				Action: healthCommand,
			},
			{
				Name:  "delete-network",
				Usage: "Delete the stored tree of a network",
				Flags: []cli.Flag{
					networkFlag(),
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm the deletion",
					},
				},
				Action: deleteNetworkCommand,
			},
		},
	}
}
