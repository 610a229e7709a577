package contracts

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// SplitVaultABI covers the functions the backend needs: registering a split
// and reading the running split count.
const SplitVaultABI = `[
	{"inputs":[{"internalType":"string","name":"description","type":"string"},{"internalType":"address[]","name":"participants","type":"address[]"},{"internalType":"uint256[]","name":"amounts","type":"uint256[]"},{"internalType":"uint256","name":"totalAmount","type":"uint256"}],"name":"createSplit","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[],"name":"getSplitCount","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// SplitVault wraps the split vault smart contract interactions
type SplitVault struct {
	client  *ethclient.Client
	address common.Address
	abi     abi.ABI
}

// NewSplitVault creates a new SplitVault instance
func NewSplitVault(client *ethclient.Client, address string) (*SplitVault, error) {
	parsedABI, err := abi.JSON(strings.NewReader(SplitVaultABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse split vault ABI: %w", err)
	}

	return &SplitVault{
		client:  client,
		address: common.HexToAddress(address),
		abi:     parsedABI,
	}, nil
}

// Address returns the contract address.
func (v *SplitVault) Address() common.Address {
	return v.address
}

// PackCreateSplit builds the calldata for createSplit. Amounts are expected
// in the token's smallest unit.
func (v *SplitVault) PackCreateSplit(description string, participants []common.Address, amounts []*big.Int, totalAmount *big.Int) ([]byte, error) {
	callData, err := v.abi.Pack("createSplit", description, participants, amounts, totalAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack createSplit call data: %w", err)
	}
	return callData, nil
}

// GetSplitCount calls the getSplitCount() view function on the vault contract
func (v *SplitVault) GetSplitCount(ctx context.Context) (*big.Int, error) {
	callData, err := v.abi.Pack("getSplitCount")
	if err != nil {
		return nil, fmt.Errorf("failed to pack call data: %w", err)
	}

	result, err := v.client.CallContract(ctx, ethereum.CallMsg{
		To:   &v.address,
		Data: callData,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call getSplitCount: %w", err)
	}

	var splitCount *big.Int
	err = v.abi.UnpackIntoInterface(&splitCount, "getSplitCount", result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack result: %w", err)
	}

	return splitCount, nil
}
