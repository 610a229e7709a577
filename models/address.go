package models

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	addressPattern   = regexp.MustCompile(`^0x[0-9a-f]{40}$`)
	signaturePattern = regexp.MustCompile(`^0x[0-9a-fA-F]{130}$`)
)

// NormalizeAddress lowercases a wallet address. Every comparison and every
// persisted address goes through this first.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// IsValidAddress reports whether address is a normalized 0x + 40 hex char
// wallet address.
func IsValidAddress(address string) bool {
	return addressPattern.MatchString(NormalizeAddress(address))
}

// IsValidSignature reports whether sig looks like a 65-byte hex-encoded
// secp256k1 signature (0x + 130 hex chars).
func IsValidSignature(sig string) bool {
	return signaturePattern.MatchString(sig)
}

// ValidateAddress returns a descriptive error for malformed wallet addresses.
func ValidateAddress(address string) error {
	if !IsValidAddress(address) {
		return fmt.Errorf("invalid wallet address: %s", address)
	}
	return nil
}
