package auth

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ChallengeMessage is the fixed string every wallet signs to authenticate.
// It is identical for every login, so a captured signature stays replayable;
// that trade-off is deliberate and documented in the API contract.
const ChallengeMessage = "Sign this message to authenticate with SplitPay"

// VerifyPersonalSignature checks that sigHex is a valid EIP-191 personal_sign
// signature over message by the key controlling address.
func VerifyPersonalSignature(message, sigHex, address string) (bool, error) {
	sig := common.FromHex(sigHex)
	if len(sig) != crypto.SignatureLength {
		return false, fmt.Errorf("invalid signature length: %d", len(sig))
	}

	// Wallets emit v as 27/28, crypto.SigToPub expects 0/1.
	recovery := make([]byte, crypto.SignatureLength)
	copy(recovery, sig)
	if recovery[crypto.RecoveryIDOffset] >= 27 {
		recovery[crypto.RecoveryIDOffset] -= 27
	}

	// EIP-191 prefix: "\x19Ethereum Signed Message:\n" + len(message) + message
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	hash := crypto.Keccak256([]byte(prefixed))

	pubKey, err := crypto.SigToPub(hash, recovery)
	if err != nil {
		return false, fmt.Errorf("failed to recover public key: %w", err)
	}

	recovered := crypto.PubkeyToAddress(*pubKey)
	return strings.EqualFold(recovered.Hex(), address), nil
}
