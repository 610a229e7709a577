package chain

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync/atomic"

	"splitpay-backend/models"
)

// MockRegistrar synthesizes placeholder on-chain fields for deployments that
// run without a ledger. Results are never confirmed, so the split starts out
// pending.
type MockRegistrar struct {
	counter int64
}

func NewMockRegistrar() *MockRegistrar {
	return &MockRegistrar{}
}

func (r *MockRegistrar) RegisterSplit(_ context.Context, _, _ string, _ []models.ParticipantInput, _ float64) (*RegisterResult, error) {
	return &RegisterResult{
		OnChainID:       atomic.AddInt64(&r.counter, 1),
		ContractAddress: randomHex(20),
		TxHash:          randomHex(32),
		BlockNumber:     0,
		Confirmed:       false,
		Simulated:       true,
	}, nil
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return "0x" + hex.EncodeToString(b)
}
