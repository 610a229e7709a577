// Package chain is the boundary to the external ledger. The split service
// only sees the Registrar interface; the real implementation talks to the
// split vault contract over an Ethereum RPC node, the mock synthesizes
// placeholder on-chain fields.
package chain

import (
	"context"

	"splitpay-backend/models"
)

// RegisterResult carries the on-chain identifiers obtained for a new split.
type RegisterResult struct {
	OnChainID       int64
	ContractAddress string
	TxHash          string
	BlockNumber     int64
	Confirmed       bool
	// Simulated marks results from the placeholder path. A tx-hash collision
	// may be regenerated there; on the real path it is propagated as a conflict.
	Simulated bool
}

// Registrar registers a split on the external ledger.
type Registrar interface {
	RegisterSplit(ctx context.Context, creator, description string, participants []models.ParticipantInput, totalAmount float64) (*RegisterResult, error)
}
