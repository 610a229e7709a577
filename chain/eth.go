package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"splitpay-backend/contracts"
	"splitpay-backend/models"
)

const registerGasLimit = 500000

// amountDecimals converts USDC amounts to the token's 6-decimal smallest unit.
const amountDecimals = 1e6

// EthRegistrar registers splits on the split vault contract.
type EthRegistrar struct {
	client  *ethclient.Client
	vault   *contracts.SplitVault
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
}

// NewEthRegistrar builds the real registrar from an RPC client, the deployed
// vault address and the hex private key of the registrar account.
func NewEthRegistrar(client *ethclient.Client, vaultAddress, privateKeyHex string, chainID int64) (*EthRegistrar, error) {
	vault, err := contracts.NewSplitVault(client, vaultAddress)
	if err != nil {
		return nil, err
	}

	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid registrar private key: %w", err)
	}

	return &EthRegistrar{
		client:  client,
		vault:   vault,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		chainID: big.NewInt(chainID),
	}, nil
}

// RegisterSplit sends a createSplit transaction and waits for it to be mined.
// There is no timeout of our own here: a hanging RPC call blocks only the
// request that triggered it.
func (r *EthRegistrar) RegisterSplit(ctx context.Context, creator, description string, participants []models.ParticipantInput, totalAmount float64) (*RegisterResult, error) {
	addresses := make([]common.Address, len(participants))
	amounts := make([]*big.Int, len(participants))
	for i, p := range participants {
		addresses[i] = common.HexToAddress(p.WalletAddress)
		amounts[i] = toUnits(p.AmountDue)
	}

	callData, err := r.vault.PackCreateSplit(description, addresses, amounts, toUnits(totalAmount))
	if err != nil {
		return nil, err
	}

	nonce, err := r.client.PendingNonceAt(ctx, r.from)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nonce: %w", err)
	}

	gasPrice, err := r.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gas price: %w", err)
	}

	to := r.vault.Address()
	tx := types.NewTransaction(nonce, to, big.NewInt(0), registerGasLimit, gasPrice, callData)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(r.chainID), r.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := r.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send createSplit transaction: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"tx_hash": signed.Hash().Hex(),
		"creator": creator,
	}).Info("createSplit transaction sent")

	receipt, err := bind.WaitMined(ctx, r.client, signed)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for createSplit receipt: %w", err)
	}

	result := &RegisterResult{
		ContractAddress: to.Hex(),
		TxHash:          signed.Hash().Hex(),
		BlockNumber:     receipt.BlockNumber.Int64(),
		Confirmed:       receipt.Status == types.ReceiptStatusSuccessful,
	}
	if !result.Confirmed {
		return result, fmt.Errorf("createSplit transaction reverted: %s", result.TxHash)
	}

	// The contract's split count after the call is the on-chain id of the
	// split just created.
	if count, err := r.vault.GetSplitCount(ctx); err == nil {
		result.OnChainID = count.Int64()
	} else {
		logrus.WithField("error", err).Warn("failed to read split count after registration")
	}

	return result, nil
}

func toUnits(amount float64) *big.Int {
	return big.NewInt(int64(math.Round(amount * amountDecimals)))
}
