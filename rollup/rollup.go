// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rollup is a batch-verification convenience layer over the core
// verifier: it tracks registered data sources (a table-commitment set plus
// the addresses allowed to post batches for it) and verifies batches of
// independent (plan, result, proof) query triples against one source,
// short-circuiting on the first rejection.
//
// Nothing here changes verification semantics; every query is decided by
// verify.Verify exactly as if it had been submitted alone.
package rollup

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	gokzg4844 "github.com/crate-crypto/go-kzg-4844"
	"github.com/luxfi/crypto/kzg4844"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/sxt-verify/curve"
	"github.com/luxfi/sxt-verify/verify"
)

var (
	ErrSourceNotFound       = errors.New("rollup: source not found")
	ErrSourceDisabled       = errors.New("rollup: source disabled")
	ErrUnauthorizedProposer = errors.New("rollup: unauthorized proposer")
	ErrBatchTooLarge        = errors.New("rollup: batch exceeds query limit")
	ErrInvalidBlob          = errors.New("rollup: invalid blob data")
	ErrBlobProofInvalid     = errors.New("rollup: blob proof verification failed")
	ErrContextNotInit       = errors.New("rollup: KZG context not initialized")
)

// QueryError reports which query in a batch was rejected and why.
type QueryError struct {
	Index int
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("rollup: query %d rejected: %v", e.Index, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Config describes one registered data source: the commitment set queries
// are verified against and the addresses allowed to post batches.
type Config struct {
	SourceID           [32]byte
	Owner              common.Address
	Sequencer          common.Address
	TableLengths       []uint64
	Commitments        []curve.G1
	MaxQueriesPerBatch uint64
	Enabled            bool
}

// State tracks per-source verification statistics.
type State struct {
	LastBatchID    [32]byte
	TotalBatches   uint64
	TotalQueries   uint64
	TotalRejected  uint64
}

// Query is one (plan, result, proof) triple to verify.
type Query struct {
	Plan   []byte
	Result []byte
	Proof  []byte
}

// Batch is a proposer-signed group of queries against a single source.
type Batch struct {
	BatchID  [32]byte
	Proposer common.Address
	Queries  []Query
}

// Registry tracks registered sources and their verification state.
type Registry struct {
	mu      sync.RWMutex
	sources map[[32]byte]*Config
	states  map[[32]byte]*State
}

// NewRegistry creates an empty source registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[[32]byte]*Config),
		states:  make(map[[32]byte]*State),
	}
}

// Register installs a new source and returns its derived ID. The ID is the
// sha256 of the owner address, table lengths, and commitment words, so
// re-registering identical data is idempotent in ID space.
func (r *Registry) Register(
	owner common.Address,
	sequencer common.Address,
	tableLengths []uint64,
	commitments []curve.G1,
	maxQueriesPerBatch uint64,
) [32]byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := sha256.New()
	h.Write(owner.Bytes())
	var lenBuf [8]byte
	for _, l := range tableLengths {
		binary.BigEndian.PutUint64(lenBuf[:], l)
		h.Write(lenBuf[:])
	}
	for _, c := range commitments {
		x, y := c.Words()
		h.Write(x[:])
		h.Write(y[:])
	}
	var sourceID [32]byte
	copy(sourceID[:], h.Sum(nil))

	r.sources[sourceID] = &Config{
		SourceID:           sourceID,
		Owner:              owner,
		Sequencer:          sequencer,
		TableLengths:       tableLengths,
		Commitments:        commitments,
		MaxQueriesPerBatch: maxQueriesPerBatch,
		Enabled:            true,
	}
	r.states[sourceID] = &State{}

	return sourceID
}

// SetEnabled toggles a source without discarding its state.
func (r *Registry) SetEnabled(sourceID [32]byte, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	config := r.sources[sourceID]
	if config == nil {
		return ErrSourceNotFound
	}
	config.Enabled = enabled
	return nil
}

// VerifyBatch verifies every query in batch against the source's
// commitment set. It stops at the first rejected query, returning a
// QueryError naming the index and the underlying verifier error. State is
// updated on both outcomes: a rejected batch still counts its rejection.
func (r *Registry) VerifyBatch(sourceID [32]byte, batch *Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	config := r.sources[sourceID]
	if config == nil {
		return ErrSourceNotFound
	}
	if !config.Enabled {
		return ErrSourceDisabled
	}

	state := r.states[sourceID]

	if batch.Proposer != config.Sequencer && batch.Proposer != config.Owner {
		return ErrUnauthorizedProposer
	}
	if config.MaxQueriesPerBatch > 0 && uint64(len(batch.Queries)) > config.MaxQueriesPerBatch {
		return ErrBatchTooLarge
	}

	for i, q := range batch.Queries {
		if err := verify.Verify(q.Plan, q.Result, q.Proof, config.TableLengths, config.Commitments); err != nil {
			state.TotalRejected++
			return &QueryError{Index: i, Err: err}
		}
	}

	state.LastBatchID = batch.BatchID
	state.TotalBatches++
	state.TotalQueries += uint64(len(batch.Queries))

	return nil
}

// SourceState returns a copy of the source's verification statistics.
func (r *Registry) SourceState(sourceID [32]byte) (State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state := r.states[sourceID]
	if state == nil {
		return State{}, ErrSourceNotFound
	}
	return *state, nil
}

// Trusted setup context for blob sidecars (initialized once).
var (
	kzgContext     *gokzg4844.Context
	kzgContextOnce sync.Once
	kzgContextErr  error
)

func blobContext() (*gokzg4844.Context, error) {
	kzgContextOnce.Do(func() {
		kzgContext, kzgContextErr = gokzg4844.NewContext4096Secure()
	})
	if kzgContextErr != nil {
		return nil, ErrContextNotInit
	}
	return kzgContext, nil
}

// BlobCommitment computes the EIP-4844 KZG commitment of a data blob.
// Sources that publish their result tables as blob sidecars use this to
// bind the published bytes to the commitment recorded on registration.
func BlobCommitment(blob []byte) ([]byte, error) {
	ctx, err := blobContext()
	if err != nil {
		return nil, err
	}
	if len(blob) != gokzg4844.ScalarsPerBlob*gokzg4844.SerializedScalarSize {
		return nil, ErrInvalidBlob
	}

	var b gokzg4844.Blob
	copy(b[:], blob)

	commitment, err := ctx.BlobToKZGCommitment(&b, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBlob, err)
	}
	return commitment[:], nil
}

// VerifyBlobSidecar checks an EIP-4844 point-evaluation proof that a blob
// committed to by commitment evaluates to claim at point.
func VerifyBlobSidecar(commitment [48]byte, point, claim [32]byte, proof [48]byte) error {
	var c kzg4844.Commitment
	copy(c[:], commitment[:])
	var p kzg4844.Proof
	copy(p[:], proof[:])
	var z kzg4844.Point
	copy(z[:], point[:])
	var y kzg4844.Claim
	copy(y[:], claim[:])

	if err := kzg4844.VerifyProof(c, z, y, p); err != nil {
		return fmt.Errorf("%w: %v", ErrBlobProofInvalid, err)
	}
	return nil
}
