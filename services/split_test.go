package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splitpay-backend/chain"
	"splitpay-backend/models"
)

const (
	creatorAddr = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	bobAddr     = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	carolAddr   = "0xcccccccccccccccccccccccccccccccccccccccc"
)

type splitTestEnv struct {
	svc           *SplitService
	users         *fakeUsers
	splits        *fakeSplits
	txlogs        *fakeTxLogs
	notifications *fakeNotifications
	registrar     *fakeRegistrar
}

func newSplitTestEnv(results ...*chain.RegisterResult) *splitTestEnv {
	if len(results) == 0 {
		results = []*chain.RegisterResult{mockResult("0x" + fmt.Sprintf("%064d", 1))}
	}
	env := &splitTestEnv{
		users:         newFakeUsers(),
		splits:        newFakeSplits(),
		txlogs:        &fakeTxLogs{},
		notifications: &fakeNotifications{},
		registrar:     &fakeRegistrar{results: results},
	}
	env.svc = NewSplitService(env.splits, env.users, env.txlogs, env.notifications, env.registrar)
	return env
}

func dinnerRequest() *models.CreateSplitRequest {
	return &models.CreateSplitRequest{
		Description: "Dinner",
		TotalAmount: 100.00,
		Participants: []models.ParticipantInput{
			{WalletAddress: bobAddr, AmountDue: 50},
			{WalletAddress: carolAddr, AmountDue: 50},
		},
	}
}

func TestCreateSplit_Success(t *testing.T) {
	env := newSplitTestEnv()
	env.users.users[creatorAddr] = &models.User{WalletAddress: creatorAddr, DisplayName: "alice"}

	resp, err := env.svc.CreateSplit(context.Background(), creatorAddr, dinnerRequest())
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, int64(1), resp.SplitID)
	assert.NotEmpty(t, resp.TxHash)
	assert.NotEmpty(t, resp.ContractAddress)

	sp, err := env.svc.GetSplitByID(context.Background(), resp.SplitID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, sp.Status)
	assert.Equal(t, creatorAddr, sp.CreatorAddress)
	require.Len(t, sp.Participants, 2)
	for _, p := range sp.Participants {
		assert.False(t, p.HasPaid)
	}
	assert.False(t, sp.IsExpired())
	assert.WithinDuration(t, time.Now().Add(models.DefaultExpiry), sp.ExpiresAt, time.Minute)

	// bookkeeping around the creation
	assert.Equal(t, 1, env.users.created)
	require.Len(t, env.txlogs.logs, 1)
	assert.Equal(t, "create", env.txlogs.logs[0].TxType)
	assert.Len(t, env.notifications.sent, 2)
}

func TestCreateSplit_ConfirmedGoesActive(t *testing.T) {
	result := mockResult("0x" + fmt.Sprintf("%064d", 7))
	result.Confirmed = true
	env := newSplitTestEnv(result)

	resp, err := env.svc.CreateSplit(context.Background(), creatorAddr, dinnerRequest())
	require.NoError(t, err)

	sp, err := env.svc.GetSplitByID(context.Background(), resp.SplitID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, sp.Status)
	assert.True(t, sp.IsConfirmed)
}

func TestCreateSplit_InvalidCreator(t *testing.T) {
	env := newSplitTestEnv()

	_, err := env.svc.CreateSplit(context.Background(), "not-an-address", dinnerRequest())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateSplit_ParticipantBounds(t *testing.T) {
	makeReq := func(n int) *models.CreateSplitRequest {
		req := &models.CreateSplitRequest{Description: "Group", TotalAmount: float64(n)}
		for i := 0; i < n; i++ {
			req.Participants = append(req.Participants, models.ParticipantInput{
				WalletAddress: fmt.Sprintf("0x%040x", i+1),
				AmountDue:     1,
			})
		}
		return req
	}

	for _, tc := range []struct {
		count  int
		wantOK bool
	}{
		{0, false},
		{1, true},
		{50, true},
		{51, false},
	} {
		env := newSplitTestEnv(mockResult(fmt.Sprintf("0x%064x", tc.count+100)))
		_, err := env.svc.CreateSplit(context.Background(), creatorAddr, makeReq(tc.count))
		if tc.wantOK {
			assert.NoError(t, err, "count %d", tc.count)
		} else {
			assert.ErrorIs(t, err, ErrValidation, "count %d", tc.count)
		}
	}
}

func TestCreateSplit_AmountMismatch(t *testing.T) {
	env := newSplitTestEnv()
	req := dinnerRequest()
	req.Participants[1].AmountDue = 50.02 // sum 100.02, drift beyond tolerance

	_, err := env.svc.CreateSplit(context.Background(), creatorAddr, req)
	assert.ErrorIs(t, err, ErrValidation)

	req.Participants[1].AmountDue = 50.01 // within tolerance
	_, err = env.svc.CreateSplit(context.Background(), creatorAddr, req)
	assert.NoError(t, err)
}

func TestCreateSplit_DuplicateParticipant(t *testing.T) {
	env := newSplitTestEnv()
	req := dinnerRequest()
	req.Participants[1].WalletAddress = bobAddr

	_, err := env.svc.CreateSplit(context.Background(), creatorAddr, req)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateSplit_IDProbeSkipsContendedIDs(t *testing.T) {
	env := newSplitTestEnv()
	env.splits.splits[3] = &models.Split{SplitID: 3, TxHash: "0xold"}
	// a concurrent creator grabbed 4 and 5 between our max read and insert
	env.splits.reserved[4] = true
	env.splits.reserved[5] = true

	resp, err := env.svc.CreateSplit(context.Background(), creatorAddr, dinnerRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(6), resp.SplitID)
}

func TestCreateSplit_IDProbeExhausted(t *testing.T) {
	env := newSplitTestEnv()
	for i := int64(1); i <= idProbeLimit; i++ {
		env.splits.reserved[i] = true
	}

	_, err := env.svc.CreateSplit(context.Background(), creatorAddr, dinnerRequest())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateSplit_TxHashConflictRealPath(t *testing.T) {
	hash := "0x" + fmt.Sprintf("%064d", 9)
	result := mockResult(hash)
	result.Simulated = false
	env := newSplitTestEnv(result)
	env.splits.splits[10] = &models.Split{SplitID: 10, TxHash: hash}

	_, err := env.svc.CreateSplit(context.Background(), creatorAddr, dinnerRequest())
	assert.ErrorIs(t, err, ErrConflict)
	// no duplicate record was committed
	assert.Len(t, env.splits.splits, 1)
}

func TestCreateSplit_TxHashConflictMockRegenerates(t *testing.T) {
	colliding := "0x" + fmt.Sprintf("%064d", 9)
	fresh := "0x" + fmt.Sprintf("%064d", 10)
	env := newSplitTestEnv(mockResult(colliding), mockResult(fresh))
	env.splits.splits[10] = &models.Split{SplitID: 10, TxHash: colliding}

	resp, err := env.svc.CreateSplit(context.Background(), creatorAddr, dinnerRequest())
	require.NoError(t, err)
	assert.Equal(t, fresh, resp.TxHash)
	assert.Equal(t, 2, env.registrar.calls)
}

func TestCreateSplit_StatFailureSwallowed(t *testing.T) {
	env := newSplitTestEnv()
	env.users.failIncrements = true

	resp, err := env.svc.CreateSplit(context.Background(), creatorAddr, dinnerRequest())
	require.NoError(t, err)
	assert.NotNil(t, resp)

	// the split itself was committed
	_, err = env.svc.GetSplitByID(context.Background(), resp.SplitID)
	assert.NoError(t, err)
}

func TestCreateSplit_PersistFailureStillReturnsChainResult(t *testing.T) {
	env := newSplitTestEnv()
	env.splits.failInsert = true

	resp, err := env.svc.CreateSplit(context.Background(), creatorAddr, dinnerRequest())
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.NotEmpty(t, resp.TxHash)
	assert.NotEmpty(t, resp.ContractAddress)
}

func TestGetSplitByID_NotFound(t *testing.T) {
	env := newSplitTestEnv()

	_, err := env.svc.GetSplitByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func seedSplit(env *splitTestEnv, id int64, creator string, createdAt time.Time, participants ...models.Participant) *models.Split {
	sp := &models.Split{
		SplitID:        id,
		TxHash:         fmt.Sprintf("0x%064x", id),
		CreatorAddress: creator,
		Description:    fmt.Sprintf("split %d", id),
		Status:         models.StatusPending,
		Participants:   participants,
		CreatedAt:      createdAt,
		ExpiresAt:      createdAt.Add(models.DefaultExpiry),
	}
	env.splits.splits[id] = sp
	return sp
}

func TestGetSplits_UnionDedupSort(t *testing.T) {
	env := newSplitTestEnv()
	env.users.users[bobAddr] = &models.User{WalletAddress: bobAddr, DisplayName: "bob"}
	now := time.Now()

	// created by alice
	seedSplit(env, 1, creatorAddr, now.Add(-3*time.Hour),
		models.Participant{WalletAddress: bobAddr, AmountDue: 10})
	// alice participates in bob's split
	seedSplit(env, 2, bobAddr, now.Add(-2*time.Hour),
		models.Participant{WalletAddress: creatorAddr, AmountDue: 20, HasPaid: true})
	// alice is both creator and participant: must appear once
	seedSplit(env, 3, creatorAddr, now.Add(-1*time.Hour),
		models.Participant{WalletAddress: creatorAddr, AmountDue: 5},
		models.Participant{WalletAddress: bobAddr, AmountDue: 5})

	views, err := env.svc.GetSplits(context.Background(), creatorAddr, models.ListFilter{})
	require.NoError(t, err)
	require.Len(t, views, 3)

	// newest first
	assert.Equal(t, int64(3), views[0].SplitID)
	assert.Equal(t, int64(2), views[1].SplitID)
	assert.Equal(t, int64(1), views[2].SplitID)

	// enrichment: own splits
	assert.True(t, views[0].IsCreator)
	assert.True(t, views[0].YouPaid)
	assert.Empty(t, views[0].CounterpartyAddress)

	// enrichment: joined split
	joined := views[1]
	assert.False(t, joined.IsCreator)
	assert.Equal(t, bobAddr, joined.CounterpartyAddress)
	assert.Equal(t, "bob", joined.CounterpartyName)
	assert.True(t, joined.YouPaid)
	require.NotNil(t, joined.Participants[0].Paid)
	assert.True(t, *joined.Participants[0].Paid)

	// creators are never shown as owing
	oldest := views[2]
	assert.True(t, oldest.IsCreator)
	assert.True(t, oldest.YouPaid)
}

func TestGetSplits_Pagination(t *testing.T) {
	env := newSplitTestEnv()
	now := time.Now()
	for i := int64(1); i <= 5; i++ {
		seedSplit(env, i, creatorAddr, now.Add(-time.Duration(i)*time.Minute))
	}

	views, err := env.svc.GetSplits(context.Background(), creatorAddr, models.ListFilter{Limit: 2, Skip: 1})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, int64(2), views[0].SplitID)
	assert.Equal(t, int64(3), views[1].SplitID)

	views, err = env.svc.GetSplits(context.Background(), creatorAddr, models.ListFilter{Skip: 10})
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestMarkParticipantPaid_CompletesOnceAllPaid(t *testing.T) {
	env := newSplitTestEnv()
	seedSplit(env, 1, creatorAddr, time.Now(),
		models.Participant{WalletAddress: bobAddr, AmountDue: 50},
		models.Participant{WalletAddress: carolAddr, AmountDue: 50})

	sp, err := env.svc.MarkParticipantPaid(context.Background(), 1, bobAddr, "0xpay1")
	require.NoError(t, err)
	assert.False(t, sp.IsCompleted)
	assert.Equal(t, models.StatusPending, sp.Status)
	assert.Equal(t, 50.0, sp.TotalPaid())

	sp, err = env.svc.MarkParticipantPaid(context.Background(), 1, carolAddr, "0xpay2")
	require.NoError(t, err)
	assert.True(t, sp.IsCompleted)
	assert.Equal(t, models.StatusCompleted, sp.Status)
	assert.Equal(t, 100.0, sp.CompletionPercentage())

	// creator got notified of both payments, payer stats were bumped
	assert.Equal(t, 2, env.users.joined)
	assert.Len(t, env.txlogs.logs, 2)
}

func TestMarkParticipantPaid_Idempotent(t *testing.T) {
	env := newSplitTestEnv()
	seedSplit(env, 1, creatorAddr, time.Now(),
		models.Participant{WalletAddress: bobAddr, AmountDue: 50})

	_, err := env.svc.MarkParticipantPaid(context.Background(), 1, bobAddr, "0xpay1")
	require.NoError(t, err)
	updates := env.splits.updates

	// re-paying an already-paid share changes nothing
	sp, err := env.svc.MarkParticipantPaid(context.Background(), 1, bobAddr, "0xpay-again")
	require.NoError(t, err)
	assert.True(t, sp.IsCompleted)
	assert.Equal(t, "0xpay1", sp.Participants[0].PaymentTxHash)
	assert.Equal(t, updates, env.splits.updates)
	assert.Equal(t, 1, env.users.joined)
}

func TestMarkParticipantPaid_NotAParticipant(t *testing.T) {
	env := newSplitTestEnv()
	seedSplit(env, 1, creatorAddr, time.Now(),
		models.Participant{WalletAddress: bobAddr, AmountDue: 50})

	_, err := env.svc.MarkParticipantPaid(context.Background(), 1, carolAddr, "0xpay")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRemindUnpaid(t *testing.T) {
	env := newSplitTestEnv()
	seedSplit(env, 1, creatorAddr, time.Now(),
		models.Participant{WalletAddress: bobAddr, AmountDue: 50, HasPaid: true},
		models.Participant{WalletAddress: carolAddr, AmountDue: 50})

	reminded, err := env.svc.RemindUnpaid(context.Background(), 1, creatorAddr)
	require.NoError(t, err)
	assert.Equal(t, 1, reminded)

	sp := env.splits.splits[1]
	assert.Equal(t, 0, sp.Participants[0].ReminderCount)
	assert.Equal(t, 1, sp.Participants[1].ReminderCount)
	assert.NotNil(t, sp.Participants[1].LastRemindedAt)
	require.Len(t, env.notifications.sent, 1)
	assert.Equal(t, carolAddr, env.notifications.sent[0].WalletAddress)
}

func TestRemindUnpaid_CreatorOnly(t *testing.T) {
	env := newSplitTestEnv()
	seedSplit(env, 1, creatorAddr, time.Now(),
		models.Participant{WalletAddress: bobAddr, AmountDue: 50})

	_, err := env.svc.RemindUnpaid(context.Background(), 1, bobAddr)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
