// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command sxtverify verifies a Proof-of-SQL query fixture from a JSON
// file and reports accept or reject. It is a demo harness over
// verify.Verify; hosts embedding the verifier call the library directly.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	log "github.com/luxfi/log"
	"github.com/spf13/pflag"

	"github.com/luxfi/sxt-verify/curve"
	"github.com/luxfi/sxt-verify/verify"
)

// queryFixture is the JSON shape of one verifiable query: hex-encoded
// byte sections plus the in-band table lengths and commitments.
type queryFixture struct {
	Plan         string   `json:"plan"`
	Result       string   `json:"result"`
	Proof        string   `json:"proof"`
	TableLengths []uint64 `json:"tableLengths"`
	// Commitments are 128 hex chars each: the x word then the y word.
	Commitments []string `json:"commitments"`
}

func loadFixture(path string) (planBytes, resultBytes, proofBytes []byte, tableLengths []uint64, commitments []curve.G1, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}

	var fx queryFixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		return nil, nil, nil, nil, nil, err
	}

	planBytes, err = hex.DecodeString(fx.Plan)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("decoding plan: %w", err)
	}
	resultBytes, err = hex.DecodeString(fx.Result)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("decoding result: %w", err)
	}
	proofBytes, err = hex.DecodeString(fx.Proof)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("decoding proof: %w", err)
	}

	commitments = make([]curve.G1, len(fx.Commitments))
	for i, c := range fx.Commitments {
		words, err := hex.DecodeString(c)
		if err != nil {
			return nil, nil, nil, nil, nil, fmt.Errorf("decoding commitment %d: %w", i, err)
		}
		if len(words) != 64 {
			return nil, nil, nil, nil, nil, fmt.Errorf("commitment %d: want 64 bytes, got %d", i, len(words))
		}
		var x, y [32]byte
		copy(x[:], words[:32])
		copy(y[:], words[32:])
		commitments[i], err = curve.G1FromWords(x, y)
		if err != nil {
			return nil, nil, nil, nil, nil, fmt.Errorf("commitment %d: %w", i, err)
		}
	}

	return planBytes, resultBytes, proofBytes, fx.TableLengths, commitments, nil
}

func main() {
	input := pflag.String("input", "", "Path to the query fixture JSON (required)")
	verbose := pflag.Bool("verbose", false, "Trace verification stages to stderr")
	pflag.Parse()

	if *input == "" {
		pflag.Usage()
		os.Exit(2)
	}

	if *verbose {
		verify.SetLogger(log.NewTestLogger(log.InfoLevel))
	}

	planBytes, resultBytes, proofBytes, tableLengths, commitments, err := loadFixture(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sxtverify: %v\n", err)
		os.Exit(2)
	}

	if err := verify.Verify(planBytes, resultBytes, proofBytes, tableLengths, commitments); err != nil {
		fmt.Printf("rejected: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("accepted")
}
