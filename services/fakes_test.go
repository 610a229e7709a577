package services

import (
	"context"
	"fmt"
	"sort"

	"splitpay-backend/chain"
	"splitpay-backend/models"
)

// In-memory store fakes backing the service tests.

type fakeUsers struct {
	users          map[string]*models.User
	failIncrements bool
	created        int
	joined         int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[string]*models.User)}
}

func (f *fakeUsers) FindByWallet(_ context.Context, address string) (*models.User, error) {
	return f.users[models.NormalizeAddress(address)], nil
}

func (f *fakeUsers) Create(_ context.Context, user *models.User) error {
	addr := models.NormalizeAddress(user.WalletAddress)
	if _, ok := f.users[addr]; ok {
		return fmt.Errorf("duplicate wallet address: %s", addr)
	}
	f.users[addr] = user
	return nil
}

func (f *fakeUsers) IncrementSplitCreated(_ context.Context, address string) error {
	if f.failIncrements {
		return fmt.Errorf("stat update unavailable")
	}
	f.created++
	if u, ok := f.users[models.NormalizeAddress(address)]; ok {
		u.TotalSplitsCreated++
	}
	return nil
}

func (f *fakeUsers) IncrementSplitJoined(_ context.Context, address string, amount float64) error {
	if f.failIncrements {
		return fmt.Errorf("stat update unavailable")
	}
	f.joined++
	if u, ok := f.users[models.NormalizeAddress(address)]; ok {
		u.TotalSplitsJoined++
		u.TotalAmountSplit += amount
	}
	return nil
}

func (f *fakeUsers) UpdateActivity(_ context.Context, _ string) error { return nil }

type fakeSplits struct {
	splits     map[int64]*models.Split
	reserved   map[int64]bool // ids reported taken without a stored split
	failInsert bool
	updates    int
}

func newFakeSplits() *fakeSplits {
	return &fakeSplits{splits: make(map[int64]*models.Split), reserved: make(map[int64]bool)}
}

func (f *fakeSplits) Insert(_ context.Context, sp *models.Split) error {
	if f.failInsert {
		return fmt.Errorf("store unavailable")
	}
	if _, ok := f.splits[sp.SplitID]; ok {
		return fmt.Errorf("duplicate split id: %d", sp.SplitID)
	}
	f.splits[sp.SplitID] = sp
	return nil
}

func (f *fakeSplits) GetBySplitID(_ context.Context, splitID int64) (*models.Split, error) {
	return f.splits[splitID], nil
}

func (f *fakeSplits) GetByTxHash(_ context.Context, txHash string) (*models.Split, error) {
	for _, sp := range f.splits {
		if sp.TxHash == txHash {
			return sp, nil
		}
	}
	return nil, nil
}

func (f *fakeSplits) MaxSplitID(_ context.Context) (int64, error) {
	var max int64
	for id := range f.splits {
		if id > max {
			max = id
		}
	}
	return max, nil
}

func (f *fakeSplits) ExistsSplitID(_ context.Context, splitID int64) (bool, error) {
	if f.reserved[splitID] {
		return true, nil
	}
	_, ok := f.splits[splitID]
	return ok, nil
}

func (f *fakeSplits) ListByCreator(_ context.Context, address string, filter models.ListFilter) ([]*models.Split, error) {
	addr := models.NormalizeAddress(address)
	var out []*models.Split
	for _, sp := range f.splits {
		if sp.CreatorAddress == addr && matchStatus(sp, filter) {
			out = append(out, sp)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (f *fakeSplits) ListByParticipant(_ context.Context, address string, filter models.ListFilter) ([]*models.Split, error) {
	var out []*models.Split
	for _, sp := range f.splits {
		if sp.FindParticipant(address) != nil && matchStatus(sp, filter) {
			out = append(out, sp)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (f *fakeSplits) UpdateParticipants(_ context.Context, sp *models.Split) error {
	if _, ok := f.splits[sp.SplitID]; !ok {
		return fmt.Errorf("split not found: %d", sp.SplitID)
	}
	f.splits[sp.SplitID] = sp
	f.updates++
	return nil
}

func matchStatus(sp *models.Split, filter models.ListFilter) bool {
	return filter.Status == "" || sp.Status == filter.Status
}

func sortNewestFirst(splits []*models.Split) {
	sort.Slice(splits, func(i, j int) bool {
		return splits[i].CreatedAt.After(splits[j].CreatedAt)
	})
}

type fakeTxLogs struct {
	logs []*models.TransactionLog
}

func (f *fakeTxLogs) Insert(_ context.Context, log *models.TransactionLog) error {
	f.logs = append(f.logs, log)
	return nil
}

type fakeNotifications struct {
	sent []*models.Notification
}

func (f *fakeNotifications) Insert(_ context.Context, n *models.Notification) error {
	f.sent = append(f.sent, n)
	return nil
}

// fakeRegistrar hands out queued results, repeating the last one when the
// queue runs dry.
type fakeRegistrar struct {
	results []*chain.RegisterResult
	calls   int
}

func (f *fakeRegistrar) RegisterSplit(_ context.Context, _, _ string, _ []models.ParticipantInput, _ float64) (*chain.RegisterResult, error) {
	idx := f.calls
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	f.calls++
	return f.results[idx], nil
}

func mockResult(txHash string) *chain.RegisterResult {
	return &chain.RegisterResult{
		OnChainID:       1,
		ContractAddress: "0x00000000000000000000000000000000000000aa",
		TxHash:          txHash,
		Confirmed:       false,
		Simulated:       true,
	}
}
