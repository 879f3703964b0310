// reef-consensus-cli is the conformance runtime: it reads one JSON
// request from stdin, runs the requested consensus operation, and
// writes one JSON response to stdout. Cross-implementation test
// harnesses drive it to compare byte-exact behavior.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"reef.dev/node/consensus"
	"reef.dev/node/crypto/bls"
	"reef.dev/node/vm"
)

type Request struct {
	Op string `json:"op"`

	GeneratorHex string   `json:"generator_hex,omitempty"`
	RefsHex      []string `json:"refs_hex,omitempty"`
	MaxCost      uint64   `json:"max_cost,omitempty"`
	Flags        uint32   `json:"flags,omitempty"`
	SignatureHex string   `json:"signature_hex,omitempty"`
	Legacy       bool     `json:"legacy,omitempty"`

	ProgramHex  string `json:"program_hex,omitempty"`
	SolutionHex string `json:"solution_hex,omitempty"`
	ParentHex   string `json:"parent_hex,omitempty"`
	Amount      uint64 `json:"amount,omitempty"`
}

type SpendJSON struct {
	CoinID     string `json:"coin_id"`
	ParentID   string `json:"parent_id"`
	PuzzleHash string `json:"puzzle_hash"`
	Amount     uint64 `json:"amount"`
	Flags      uint32 `json:"flags"`
}

type Response struct {
	Ok  bool   `json:"ok"`
	Err string `json:"err,omitempty"`

	Spends        []SpendJSON `json:"spends,omitempty"`
	Cost          uint64      `json:"cost,omitempty"`
	ExecutionCost uint64      `json:"execution_cost,omitempty"`
	ConditionCost uint64      `json:"condition_cost,omitempty"`
	ReserveFee    uint64      `json:"reserve_fee,omitempty"`

	TreeHashHex string `json:"tree_hash,omitempty"`
	EncodedHex  string `json:"encoded_hex,omitempty"`
}

func writeResp(w io.Writer, resp Response) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(resp)
}

func fail(format string, args ...any) Response {
	return Response{Ok: false, Err: fmt.Sprintf(format, args...)}
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResp(os.Stdout, fail("bad request: %v", err))
		return
	}
	writeResp(os.Stdout, handle(req))
}

func handle(req Request) Response {
	switch req.Op {
	case "run_generator":
		return handleRunGenerator(req)
	case "run_puzzle":
		return handleRunPuzzle(req)
	case "tree_hash":
		return handleTreeHash(req)
	case "recode_backrefs":
		return handleRecode(req)
	default:
		return fail("unknown op %q", req.Op)
	}
}

func decodeHex(field, s string) ([]byte, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("bad %s: %v", field, err)
	}
	return raw, nil
}

func bundleResponse(a *vm.Allocator, bundle *consensus.SpendBundleConditions) Response {
	resp := Response{
		Ok:            true,
		Cost:          bundle.Cost,
		ExecutionCost: bundle.ExecutionCost,
		ConditionCost: bundle.ConditionCost,
		ReserveFee:    bundle.ReserveFee,
	}
	for _, spend := range bundle.Spends {
		resp.Spends = append(resp.Spends, SpendJSON{
			CoinID:     hex.EncodeToString(spend.CoinID[:]),
			ParentID:   hex.EncodeToString(a.Atom(spend.ParentID)),
			PuzzleHash: hex.EncodeToString(a.Atom(spend.PuzzleHash)),
			Amount:     spend.CoinAmount,
			Flags:      spend.Flags,
		})
	}
	return resp
}

func handleRunGenerator(req Request) Response {
	program, err := decodeHex("generator_hex", req.GeneratorHex)
	if err != nil {
		return fail("%v", err)
	}
	var refs [][]byte
	for _, refHex := range req.RefsHex {
		ref, err := decodeHex("refs_hex", refHex)
		if err != nil {
			return fail("%v", err)
		}
		refs = append(refs, ref)
	}
	constants := consensus.MainnetConstants()
	maxCost := req.MaxCost
	if maxCost == 0 {
		maxCost = constants.MaxBlockCost
	}
	flags := req.Flags
	var signature *bls.Signature
	if req.SignatureHex == "" {
		flags |= consensus.DONT_VALIDATE_SIGNATURE
	} else {
		raw, err := decodeHex("signature_hex", req.SignatureHex)
		if err != nil {
			return fail("%v", err)
		}
		signature, err = bls.SignatureFromBytes(raw)
		if err != nil {
			return fail("%v", err)
		}
	}

	a := vm.NewAllocator()
	driver := consensus.RunBlockGenerator2
	if req.Legacy {
		driver = consensus.RunBlockGenerator
	}
	bundle, err := driver(a, program, refs, maxCost, flags, signature, nil, constants)
	if err != nil {
		return fail("%v", err)
	}
	return bundleResponse(a, bundle)
}

func handleRunPuzzle(req Request) Response {
	puzzle, err := decodeHex("program_hex", req.ProgramHex)
	if err != nil {
		return fail("%v", err)
	}
	solution, err := decodeHex("solution_hex", req.SolutionHex)
	if err != nil {
		return fail("%v", err)
	}
	parentRaw, err := decodeHex("parent_hex", req.ParentHex)
	if err != nil {
		return fail("%v", err)
	}
	if len(parentRaw) != 32 {
		return fail("parent_hex must be 32 bytes")
	}
	var parent [32]byte
	copy(parent[:], parentRaw)

	constants := consensus.MainnetConstants()
	maxCost := req.MaxCost
	if maxCost == 0 {
		maxCost = constants.MaxBlockCost
	}

	a := vm.NewAllocator()
	bundle, err := consensus.RunPuzzle(a, puzzle, solution, parent, req.Amount, maxCost, req.Flags, constants)
	if err != nil {
		return fail("%v", err)
	}
	return bundleResponse(a, bundle)
}

func handleTreeHash(req Request) Response {
	raw, err := decodeHex("program_hex", req.ProgramHex)
	if err != nil {
		return fail("%v", err)
	}
	hash, err := vm.TreeHashFromBytes(raw)
	if err != nil {
		return fail("%v", err)
	}
	return Response{Ok: true, TreeHashHex: hex.EncodeToString(hash[:])}
}

func handleRecode(req Request) Response {
	raw, err := decodeHex("program_hex", req.ProgramHex)
	if err != nil {
		return fail("%v", err)
	}
	a := vm.NewAllocator()
	node, err := vm.ParseBytesBackrefs(a, raw)
	if err != nil {
		return fail("%v", err)
	}
	return Response{Ok: true, EncodedHex: hex.EncodeToString(vm.SerializeNodeBackrefs(a, node))}
}
