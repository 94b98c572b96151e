// Package idhash computes deterministic identifiers for history records and
// event-feed messages. IDs are SHA256 digests rendered in base58 so they
// stay short and copy-paste friendly in API responses.
package idhash

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/mr-tron/base58"
)

// ComputeRebaseID computes a deterministic identifier for one rebase.
// Formula: SHA256(rebase|epoch|sequence|profit)
func ComputeRebaseID(epoch, sequence uint64, profit *big.Int) string {
	data := fmt.Sprintf("rebase|%d|%d|%s", epoch, sequence, profit.String())
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// ComputeEventID computes a deterministic identifier for a coordinator
// event. Formula: SHA256(eventType|holder|epoch|sequence)
func ComputeEventID(eventType, holder string, epoch, sequence uint64) string {
	data := fmt.Sprintf("%s|%s|%d|%d", eventType, holder, epoch, sequence)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// ComputeBatchID computes a deterministic identifier for a batched
// withdrawal request. Formula: SHA256(batch|cycleIndex|amount)
func ComputeBatchID(cycleIndex uint64, amount *big.Int) string {
	data := fmt.Sprintf("batch|%d|%s", cycleIndex, amount.String())
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
