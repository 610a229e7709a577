package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"splitpay-backend/chain"
	"splitpay-backend/models"
)

const (
	// idProbeLimit bounds the linear probe when the candidate split id is
	// contended by a concurrent creator.
	idProbeLimit = 100
	// mockHashRetries bounds tx-hash regeneration on the placeholder path.
	mockHashRetries = 3
)

// SplitService orchestrates split creation, retrieval and participant
// payment over the stores and the blockchain collaborator.
type SplitService struct {
	splits        SplitStore
	users         UserStore
	txlogs        TxLogStore
	notifications NotificationStore
	registrar     chain.Registrar
}

func NewSplitService(splits SplitStore, users UserStore, txlogs TxLogStore, notifications NotificationStore, registrar chain.Registrar) *SplitService {
	return &SplitService{
		splits:        splits,
		users:         users,
		txlogs:        txlogs,
		notifications: notifications,
		registrar:     registrar,
	}
}

// CreateSplit validates the request, registers the split on-chain, allocates
// a split id and persists the record. If persistence fails after the chain
// registration succeeded, the on-chain identifiers are still returned: they
// are the only record of a paid transaction and must not be lost.
func (s *SplitService) CreateSplit(ctx context.Context, creator string, req *models.CreateSplitRequest) (*models.CreateSplitResponse, error) {
	creator = models.NormalizeAddress(creator)
	if !models.IsValidAddress(creator) {
		return nil, fmt.Errorf("%w: invalid creator wallet address", ErrValidation)
	}
	if err := models.ValidateParticipants(req.Participants, req.TotalAmount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	splitID, err := s.allocateSplitID(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.registrar.RegisterSplit(ctx, creator, req.Description, req.Participants, req.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("blockchain registration failed: %w", err)
	}

	// Idempotency guard against double-submission. The placeholder path can
	// simply regenerate its synthetic hash; a real on-chain hash collision is
	// a genuine conflict.
	for try := 0; ; try++ {
		existing, err := s.splits.GetByTxHash(ctx, result.TxHash)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			break
		}
		if !result.Simulated || try >= mockHashRetries {
			return nil, fmt.Errorf("%w: transaction hash already recorded: %s", ErrConflict, result.TxHash)
		}
		result, err = s.registrar.RegisterSplit(ctx, creator, req.Description, req.Participants, req.TotalAmount)
		if err != nil {
			return nil, fmt.Errorf("blockchain registration failed: %w", err)
		}
	}

	status := models.StatusPending
	if result.Confirmed {
		status = models.StatusActive
	}
	currency := req.Currency
	if currency == "" {
		currency = "USDC"
	}

	participants := make([]models.Participant, len(req.Participants))
	for i, p := range req.Participants {
		participants[i] = models.Participant{
			WalletAddress: models.NormalizeAddress(p.WalletAddress),
			Name:          p.Name,
			AmountDue:     p.AmountDue,
		}
	}

	sp := &models.Split{
		SplitID:         splitID,
		ContractAddress: result.ContractAddress,
		TxHash:          result.TxHash,
		BlockNumber:     result.BlockNumber,
		IsConfirmed:     result.Confirmed,
		CreatorAddress:  creator,
		Description:     req.Description,
		TotalAmount:     req.TotalAmount,
		Currency:        currency,
		Status:          status,
		Participants:    participants,
		Category:        optional(req.Category),
		Note:            optional(req.Note),
		ImageURL:        optional(req.ImageURL),
		ExpiresAt:       time.Now().Add(models.DefaultExpiry),
	}

	resp := &models.CreateSplitResponse{
		SplitID:         splitID,
		ContractAddress: result.ContractAddress,
		TxHash:          result.TxHash,
	}

	if err := s.splits.Insert(ctx, sp); err != nil {
		// The chain state exists; reconciling the missing row is an ops
		// problem, not a reason to hide the identifiers from the caller.
		logrus.WithFields(logrus.Fields{
			"split_id": splitID,
			"tx_hash":  result.TxHash,
			"error":    err,
		}).Error("split persisted on-chain but not in store")
		return resp, nil
	}

	s.recordCreation(ctx, sp, result)

	return resp, nil
}

// allocateSplitID takes max+1 and linearly probes past ids claimed by
// concurrent creators, bounded at idProbeLimit attempts.
func (s *SplitService) allocateSplitID(ctx context.Context) (int64, error) {
	max, err := s.splits.MaxSplitID(ctx)
	if err != nil {
		return 0, err
	}

	candidate := max + 1
	for i := 0; i < idProbeLimit; i++ {
		exists, err := s.splits.ExistsSplitID(ctx, candidate)
		if err != nil {
			return 0, err
		}
		if !exists {
			return candidate, nil
		}
		candidate++
	}
	return 0, fmt.Errorf("%w: exhausted split id allocation after %d attempts", ErrConflict, idProbeLimit)
}

// recordCreation writes the best-effort bookkeeping around a successful
// creation: creator stats, the transaction log row and participant
// notifications. Failures here are logged, never surfaced.
func (s *SplitService) recordCreation(ctx context.Context, sp *models.Split, result *chain.RegisterResult) {
	if err := s.users.IncrementSplitCreated(ctx, sp.CreatorAddress); err != nil {
		logrus.WithFields(logrus.Fields{"wallet": sp.CreatorAddress, "error": err}).Warn("failed to update creator stats")
	}

	txStatus := models.TxStatusPending
	if result.Confirmed {
		txStatus = models.TxStatusSuccess
	}
	err := s.txlogs.Insert(ctx, &models.TransactionLog{
		SplitID:     sp.SplitID,
		TxHash:      sp.TxHash,
		FromAddress: sp.CreatorAddress,
		TxType:      "create",
		Status:      txStatus,
		BlockNumber: sp.BlockNumber,
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{"split_id": sp.SplitID, "error": err}).Warn("failed to record creation transaction")
	}

	for _, p := range sp.Participants {
		if p.WalletAddress == sp.CreatorAddress {
			continue
		}
		err := s.notifications.Insert(ctx, &models.Notification{
			WalletAddress: p.WalletAddress,
			SplitID:       &sp.SplitID,
			Type:          models.NotificationSplitCreated,
			Title:         "You were added to a split",
			Message:       fmt.Sprintf("%s owes %.2f %s for %q", p.WalletAddress, p.AmountDue, sp.Currency, sp.Description),
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{"split_id": sp.SplitID, "wallet": p.WalletAddress, "error": err}).Warn("failed to notify participant")
		}
	}
}

// GetSplitByID returns a split by its numeric id.
func (s *SplitService) GetSplitByID(ctx context.Context, splitID int64) (*models.Split, error) {
	sp, err := s.splits.GetBySplitID(ctx, splitID)
	if err != nil {
		return nil, err
	}
	if sp == nil {
		return nil, fmt.Errorf("%w: split %d", ErrNotFound, splitID)
	}
	return sp, nil
}

// GetSplitsByCreator lists splits created by the address.
func (s *SplitService) GetSplitsByCreator(ctx context.Context, address string, filter models.ListFilter) ([]*models.Split, error) {
	if !models.IsValidAddress(address) {
		return nil, fmt.Errorf("%w: invalid wallet address", ErrValidation)
	}
	return s.splits.ListByCreator(ctx, address, filter)
}

// GetSplitsByParticipant lists splits the address participates in.
func (s *SplitService) GetSplitsByParticipant(ctx context.Context, address string, filter models.ListFilter) ([]*models.Split, error) {
	if !models.IsValidAddress(address) {
		return nil, fmt.Errorf("%w: invalid wallet address", ErrValidation)
	}
	return s.splits.ListByParticipant(ctx, address, filter)
}

// GetSplits returns the union of the creator and participant views,
// de-duplicated by split id, newest first, paginated, each entry enriched
// for the requesting wallet.
func (s *SplitService) GetSplits(ctx context.Context, address string, filter models.ListFilter) ([]*models.SplitView, error) {
	addr := models.NormalizeAddress(address)
	if !models.IsValidAddress(addr) {
		return nil, fmt.Errorf("%w: invalid wallet address", ErrValidation)
	}

	// Pagination applies after the merge, so the underlying queries only
	// carry the status filter.
	statusOnly := models.ListFilter{Status: filter.Status}

	created, err := s.splits.ListByCreator(ctx, addr, statusOnly)
	if err != nil {
		return nil, err
	}
	joined, err := s.splits.ListByParticipant(ctx, addr, statusOnly)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(created)+len(joined))
	merged := make([]*models.Split, 0, len(created)+len(joined))
	for _, sp := range append(created, joined...) {
		if seen[sp.SplitID] {
			continue
		}
		seen[sp.SplitID] = true
		merged = append(merged, sp)
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})

	if filter.Skip > 0 {
		if filter.Skip >= len(merged) {
			merged = nil
		} else {
			merged = merged[filter.Skip:]
		}
	}
	if filter.Limit > 0 && len(merged) > filter.Limit {
		merged = merged[:filter.Limit]
	}

	views := make([]*models.SplitView, len(merged))
	for i, sp := range merged {
		views[i] = s.enrich(ctx, sp, addr)
	}
	return views, nil
}

// enrich decorates a split with the requester-specific fields: isCreator,
// the counterpart identity and the youPaid/paid mirrors.
func (s *SplitService) enrich(ctx context.Context, sp *models.Split, requester string) *models.SplitView {
	view := &models.SplitView{Split: *sp}
	view.IsCreator = sp.CreatorAddress == requester

	if view.IsCreator {
		view.YouPaid = true
	} else {
		view.CounterpartyAddress = sp.CreatorAddress
		view.CounterpartyName = sp.CreatorAddress
		if creator, err := s.users.FindByWallet(ctx, sp.CreatorAddress); err == nil && creator != nil {
			view.CounterpartyName = creator.DisplayName
		}
	}

	view.Participants = make([]models.Participant, len(sp.Participants))
	copy(view.Participants, sp.Participants)
	for i := range view.Participants {
		if view.Participants[i].WalletAddress == requester {
			paid := view.Participants[i].HasPaid
			view.Participants[i].Paid = &paid
			if !view.IsCreator {
				view.YouPaid = paid
			}
		}
	}
	return view
}

// MarkParticipantPaid flips a participant's hasPaid flag, records the payment
// transaction and completes the split once every participant has paid.
// Paying an already-paid share is a no-op.
func (s *SplitService) MarkParticipantPaid(ctx context.Context, splitID int64, wallet, paymentTxHash string) (*models.Split, error) {
	sp, err := s.GetSplitByID(ctx, splitID)
	if err != nil {
		return nil, err
	}
	if sp.IsCancelled {
		return nil, fmt.Errorf("%w: split %d is cancelled", ErrValidation, splitID)
	}

	wallet = models.NormalizeAddress(wallet)
	p := sp.FindParticipant(wallet)
	if p == nil {
		return nil, fmt.Errorf("%w: %s is not a participant of split %d", ErrUnauthorized, wallet, splitID)
	}
	if p.HasPaid {
		return sp, nil
	}

	now := time.Now()
	p.HasPaid = true
	p.PaidAt = &now
	p.PaymentTxHash = paymentTxHash
	s.refreshCompletion(sp)

	if err := s.splits.UpdateParticipants(ctx, sp); err != nil {
		return nil, err
	}

	s.recordPayment(ctx, sp, wallet, p.AmountDue, paymentTxHash)

	return sp, nil
}

// refreshCompletion transitions the split to completed once every participant
// has paid. Calling it on an already-completed split changes nothing.
func (s *SplitService) refreshCompletion(sp *models.Split) {
	if sp.IsCompleted || sp.IsCancelled {
		return
	}
	if sp.AllPaid() {
		sp.Status = models.StatusCompleted
		sp.IsCompleted = true
	}
}

func (s *SplitService) recordPayment(ctx context.Context, sp *models.Split, wallet string, amount float64, paymentTxHash string) {
	if paymentTxHash != "" {
		err := s.txlogs.Insert(ctx, &models.TransactionLog{
			SplitID:     sp.SplitID,
			TxHash:      paymentTxHash,
			FromAddress: wallet,
			TxType:      "payment",
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{"split_id": sp.SplitID, "error": err}).Warn("failed to record payment transaction")
		}
	}

	if err := s.users.IncrementSplitJoined(ctx, wallet, amount); err != nil {
		logrus.WithFields(logrus.Fields{"wallet": wallet, "error": err}).Warn("failed to update payer stats")
	}

	err := s.notifications.Insert(ctx, &models.Notification{
		WalletAddress: sp.CreatorAddress,
		SplitID:       &sp.SplitID,
		Type:          models.NotificationPaymentMade,
		Title:         "Payment received",
		Message:       fmt.Sprintf("%s paid %.2f %s towards %q", wallet, amount, sp.Currency, sp.Description),
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{"split_id": sp.SplitID, "error": err}).Warn("failed to notify creator of payment")
	}
}

// RemindUnpaid bumps the reminder counters for every unpaid participant and
// writes them a notification. Only the creator may trigger reminders.
func (s *SplitService) RemindUnpaid(ctx context.Context, splitID int64, caller string) (int, error) {
	sp, err := s.GetSplitByID(ctx, splitID)
	if err != nil {
		return 0, err
	}

	caller = models.NormalizeAddress(caller)
	if sp.CreatorAddress != caller {
		return 0, fmt.Errorf("%w: only the creator can send reminders", ErrUnauthorized)
	}
	if sp.IsCompleted || sp.IsCancelled {
		return 0, fmt.Errorf("%w: split %d is closed", ErrValidation, splitID)
	}

	now := time.Now()
	reminded := 0
	for i := range sp.Participants {
		p := &sp.Participants[i]
		if p.HasPaid {
			continue
		}
		p.ReminderCount++
		p.LastRemindedAt = &now
		reminded++

		err := s.notifications.Insert(ctx, &models.Notification{
			WalletAddress: p.WalletAddress,
			SplitID:       &sp.SplitID,
			Type:          models.NotificationReminder,
			Title:         "Payment reminder",
			Message:       fmt.Sprintf("You still owe %.2f %s for %q", p.AmountDue, sp.Currency, sp.Description),
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{"split_id": sp.SplitID, "wallet": p.WalletAddress, "error": err}).Warn("failed to send reminder")
		}
	}

	if reminded == 0 {
		return 0, nil
	}
	if err := s.splits.UpdateParticipants(ctx, sp); err != nil {
		return 0, err
	}
	return reminded, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
