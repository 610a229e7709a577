package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"splitpay-backend/auth"
	"splitpay-backend/models"
)

// AuthService verifies wallet signatures over the fixed challenge message,
// provisions users on first login and issues bearer credentials.
type AuthService struct {
	users  UserStore
	secret string
}

func NewAuthService(users UserStore, jwtSecret string) *AuthService {
	return &AuthService{users: users, secret: jwtSecret}
}

// Login authenticates a wallet. On success the user is looked up or created
// and a bearer token carrying {walletAddress, displayName, userId} is issued.
func (s *AuthService) Login(ctx context.Context, walletAddress, signature string) (*models.User, string, error) {
	if walletAddress == "" || signature == "" {
		return nil, "", fmt.Errorf("%w: walletAddress and signature are required", ErrValidation)
	}

	addr := models.NormalizeAddress(walletAddress)
	if !models.IsValidAddress(addr) {
		return nil, "", fmt.Errorf("%w: invalid wallet address format", ErrValidation)
	}
	if !models.IsValidSignature(signature) {
		return nil, "", fmt.Errorf("%w: invalid signature format", ErrValidation)
	}

	ok, err := auth.VerifyPersonalSignature(auth.ChallengeMessage, signature, addr)
	if err != nil {
		return nil, "", fmt.Errorf("%w: signature recovery failed", ErrUnauthorized)
	}
	if !ok {
		return nil, "", fmt.Errorf("%w: signature does not match wallet", ErrUnauthorized)
	}

	user, err := s.users.FindByWallet(ctx, addr)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		user = &models.User{
			WalletAddress: addr,
			DisplayName:   models.DefaultDisplayName(addr),
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, "", err
		}
		logrus.WithField("wallet", addr).Info("provisioned new user")
	} else {
		if err := s.users.UpdateActivity(ctx, addr); err != nil {
			logrus.WithFields(logrus.Fields{"wallet": addr, "error": err}).Warn("failed to update activity")
		}
	}

	token, err := auth.GenerateJWT(user.WalletAddress, user.DisplayName, user.ID.String(), s.secret)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	return user, token, nil
}
