// reef-blockgen drives the block-generator execution core from the
// command line: run a generator against its refs, tree-hash a
// serialized program, or re-encode it with back-references.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"reef.dev/node/consensus"
	"reef.dev/node/crypto/bls"
	"reef.dev/node/node/refstore"
	"reef.dev/node/vm"
)

var log = logrus.WithField("prefix", "blockgen")

func main() {
	root := &cobra.Command{
		Use:           "reef-blockgen",
		Short:         "run and inspect block generators",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd(), treeHashCmd(), recodeCmd())
	if err := root.Execute(); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

type runOutput struct {
	Spends []runSpend `json:"spends"`

	ReserveFee      uint64 `json:"reserve_fee"`
	HeightAbsolute  uint32 `json:"height_absolute"`
	SecondsAbsolute uint64 `json:"seconds_absolute"`

	Cost          uint64 `json:"cost"`
	ExecutionCost uint64 `json:"execution_cost"`
	ConditionCost uint64 `json:"condition_cost"`

	AdditionAmount string `json:"addition_amount"`
	RemovalAmount  string `json:"removal_amount"`

	ValidatedSignature bool `json:"validated_signature"`
}

type runSpend struct {
	CoinID     string    `json:"coin_id"`
	ParentID   string    `json:"parent_id"`
	PuzzleHash string    `json:"puzzle_hash"`
	Amount     uint64    `json:"amount"`
	Additions  []runCoin `json:"additions"`
	Flags      uint32    `json:"flags"`
}

type runCoin struct {
	PuzzleHash string `json:"puzzle_hash"`
	Amount     uint64 `json:"amount"`
	Hint       string `json:"hint,omitempty"`
}

func runCmd() *cobra.Command {
	var (
		refFiles      []string
		refHeights    []uint
		storePath     string
		maxCost       uint64
		mempool       bool
		backrefs      bool
		constantsPath string
		signatureHex  string
		legacy        bool
	)
	cmd := &cobra.Command{
		Use:   "run <generator-file>",
		Short: "evaluate a block generator and print its conditions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			program, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "read generator")
			}

			constants := consensus.MainnetConstants()
			if constantsPath != "" {
				constants, err = consensus.LoadConstants(constantsPath)
				if err != nil {
					return err
				}
			}
			if maxCost == 0 {
				maxCost = constants.MaxBlockCost
			}

			var refs [][]byte
			for _, path := range refFiles {
				ref, err := os.ReadFile(path)
				if err != nil {
					return errors.Wrap(err, "read ref")
				}
				refs = append(refs, ref)
			}
			if storePath != "" && len(refHeights) > 0 {
				store, err := refstore.Open(storePath)
				if err != nil {
					return err
				}
				defer store.Close()
				heights := make([]uint64, 0, len(refHeights))
				for _, h := range refHeights {
					heights = append(heights, uint64(h))
				}
				stored, err := store.GetMany(heights)
				if err != nil {
					return err
				}
				refs = append(refs, stored...)
			}

			flags := uint32(0)
			if mempool {
				flags |= consensus.MEMPOOL_MODE
			}
			if backrefs {
				flags |= consensus.ALLOW_BACKREFS
			}

			var signature *bls.Signature
			if signatureHex == "" {
				flags |= consensus.DONT_VALIDATE_SIGNATURE
			} else {
				raw, err := hex.DecodeString(signatureHex)
				if err != nil {
					return errors.Wrap(err, "decode signature")
				}
				signature, err = bls.SignatureFromBytes(raw)
				if err != nil {
					return err
				}
			}

			a := vm.NewAllocator()
			driver := consensus.RunBlockGenerator2
			if legacy {
				driver = consensus.RunBlockGenerator
			}
			cache, err := bls.NewCache(bls.DefaultCacheSize)
			if err != nil {
				return err
			}
			bundle, err := driver(a, program, refs, maxCost, flags, signature, cache, constants)
			if err != nil {
				return errors.Wrap(err, "run block generator")
			}

			log.WithFields(logrus.Fields{
				"spends": len(bundle.Spends),
				"cost":   bundle.Cost,
			}).Info("generator accepted")
			return json.NewEncoder(os.Stdout).Encode(formatBundle(a, bundle))
		},
	}
	cmd.Flags().StringArrayVar(&refFiles, "ref", nil, "referenced generator file (repeatable, in order)")
	cmd.Flags().UintSliceVar(&refHeights, "ref-height", nil, "referenced generator height in --store (repeatable)")
	cmd.Flags().StringVar(&storePath, "store", "", "refstore database path")
	cmd.Flags().Uint64Var(&maxCost, "max-cost", 0, "cost ceiling (default: network max)")
	cmd.Flags().BoolVar(&mempool, "mempool", false, "mempool-mode validation flags")
	cmd.Flags().BoolVar(&backrefs, "backrefs", false, "allow back-references in the generator")
	cmd.Flags().StringVar(&constantsPath, "constants", "", "YAML constants preset")
	cmd.Flags().StringVar(&signatureHex, "signature", "", "aggregate signature (hex, 96 bytes)")
	cmd.Flags().BoolVar(&legacy, "legacy-driver", false, "use the legacy single-accounting driver")
	return cmd
}

func formatBundle(a *vm.Allocator, bundle *consensus.SpendBundleConditions) runOutput {
	owned := bundle.ToOwned(a)
	out := runOutput{
		ReserveFee:         owned.ReserveFee,
		HeightAbsolute:     owned.HeightAbsolute,
		SecondsAbsolute:    owned.SecondsAbsolute,
		Cost:               owned.Cost,
		ExecutionCost:      owned.ExecutionCost,
		ConditionCost:      owned.ConditionCost,
		AdditionAmount:     owned.AdditionAmount.Dec(),
		RemovalAmount:      owned.RemovalAmount.Dec(),
		ValidatedSignature: owned.ValidatedSignature,
	}
	for i := range owned.Spends {
		spend := &owned.Spends[i]
		rs := runSpend{
			CoinID:     hex.EncodeToString(spend.CoinID[:]),
			ParentID:   hex.EncodeToString(spend.ParentID[:]),
			PuzzleHash: hex.EncodeToString(spend.PuzzleHash[:]),
			Amount:     spend.CoinAmount,
			Flags:      spend.Flags,
		}
		for _, coin := range spend.CreateCoin {
			rs.Additions = append(rs.Additions, runCoin{
				PuzzleHash: hex.EncodeToString(coin.PuzzleHash[:]),
				Amount:     coin.Amount,
				Hint:       hex.EncodeToString(coin.Hint),
			})
		}
		out.Spends = append(out.Spends, rs)
	}
	return out
}

func treeHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree-hash <program-file>",
		Short: "print the tree hash of a serialized program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "read program")
			}
			hash, err := vm.TreeHashFromBytes(raw)
			if err != nil {
				return errors.Wrap(err, "tree hash")
			}
			fmt.Printf("%x\n", hash[:])
			return nil
		},
	}
}

func recodeCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "recode <program-file>",
		Short: "re-encode a program with back-references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "read program")
			}
			a := vm.NewAllocator()
			node, err := vm.ParseBytesBackrefs(a, raw)
			if err != nil {
				return errors.Wrap(err, "parse program")
			}
			encoded := vm.SerializeNodeBackrefs(a, node)
			log.WithFields(logrus.Fields{
				"in":  len(raw),
				"out": len(encoded),
			}).Info("re-encoded")
			if out == "" {
				fmt.Printf("%x\n", encoded)
				return nil
			}
			return errors.Wrap(os.WriteFile(out, encoded, 0o644), "write output")
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: hex to stdout)")
	return cmd
}
