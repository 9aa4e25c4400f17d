package repository_test

import (
	"errors"
	"testing"
	"time"

	"github.com/edgelog/internal/models"
	"github.com/edgelog/internal/repository"
	"github.com/edgelog/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func f64(v float64) *float64 { return &v }

func seedUser(t *testing.T, repo *repository.UserRepository, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", PasswordHash: "x", Plan: models.PlanFree}
	require.NoError(t, repo.Create(u))
	return u
}

func TestUserRepository(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewUserRepository(db)
	u := seedUser(t, repo, "alice")

	got, err := repo.GetByUsernameOrEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.GetByID(999)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	exists, err := repo.ExistsByUsername("alice")
	require.NoError(t, err)
	assert.True(t, exists)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, repo.UpdatePlan(u.ID, models.PlanPro, &past))
	future := time.Now().Add(time.Hour)
	other := seedUser(t, repo, "bob")
	require.NoError(t, repo.UpdatePlan(other.ID, models.PlanElite, &future))

	expired, err := repo.GetExpiredPaid(time.Now())
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, u.ID, expired[0].ID)
}

func TestTradeRepositoryOwnership(t *testing.T) {
	db := testutil.NewDB(t)
	users := repository.NewUserRepository(db)
	trades := repository.NewTradeRepository(db)
	owner := seedUser(t, users, "owner")
	intruder := seedUser(t, users, "intruder")

	base := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		tr := &models.Trade{UserID: owner.ID, Symbol: "EURUSD", Direction: models.DirectionLong,
			EntryPrice: 1.1, StopLoss: 1.09, EntryTime: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, tr.Recompute())
		require.NoError(t, trades.Create(tr))
	}

	list, total, err := trades.GetByUserIDPaginated(owner.ID, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, list, 2)
	assert.True(t, list[0].EntryTime.After(list[1].EntryTime))

	_, err = trades.GetByIDAndUserID(list[0].ID, intruder.ID)
	assert.ErrorIs(t, err, repository.ErrTradeNotFound)

	day, err := trades.GetByUserIDBetween(owner.ID, base, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Len(t, day, 2)
}

func TestEliteTradeSearchAndConvert(t *testing.T) {
	db := testutil.NewDB(t)
	users := repository.NewUserRepository(db)
	legacy := repository.NewTradeRepository(db)
	elite := repository.NewEliteTradeRepository(db)
	u := seedUser(t, users, "trader")

	base := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	mk := func(symbol, setup string, exit float64, at time.Time) {
		tr := &models.EliteTrade{UserID: u.ID, Symbol: symbol, SetupName: setup, Direction: models.DirectionLong,
			EntryPrice: 100, StopLoss: 99, ExitPrice: f64(exit), EntryTime: at}
		require.NoError(t, tr.Recompute())
		require.NoError(t, elite.Create(tr))
	}
	mk("BTCUSDT", "breakout", 102, base)
	mk("BTCUSDT", "pullback", 98, base.Add(time.Hour))
	mk("ETHUSDT", "breakout", 101, base.Add(2*time.Hour))

	got, total, err := elite.Search(u.ID, repository.EliteTradeQuery{Symbol: "BTCUSDT"}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, got, 2)

	got, _, err = elite.Search(u.ID, repository.EliteTradeQuery{SetupName: "breakout", Result: models.ResultWin}, 1, 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	from := base.Add(30 * time.Minute)
	got, _, err = elite.Search(u.ID, repository.EliteTradeQuery{From: &from}, 1, 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	old := &models.Trade{UserID: u.ID, Symbol: "XAUUSD", Direction: models.DirectionShort, EntryPrice: 2000, StopLoss: 2010, EntryTime: base}
	require.NoError(t, old.Recompute())
	require.NoError(t, legacy.Create(old))

	converted := &models.EliteTrade{UserID: u.ID, Symbol: old.Symbol, Direction: old.Direction, EntryPrice: old.EntryPrice, StopLoss: old.StopLoss, EntryTime: old.EntryTime}
	require.NoError(t, converted.Recompute())
	require.NoError(t, elite.ConvertLegacy(old.ID, converted))

	_, err = legacy.GetByIDAndUserID(old.ID, u.ID)
	assert.ErrorIs(t, err, repository.ErrTradeNotFound)
	_, err = elite.GetByIDAndUserID(converted.ID, u.ID)
	assert.NoError(t, err)
}

func TestSetupTypeNameUniquePerUser(t *testing.T) {
	db := testutil.NewDB(t)
	users := repository.NewUserRepository(db)
	setups := repository.NewSetupTypeRepository(db)
	a := seedUser(t, users, "a")
	b := seedUser(t, users, "b")

	s := &models.SetupType{UserID: a.ID, Name: "Breakout"}
	require.NoError(t, setups.Create(s))

	exists, err := setups.ExistsByName(a.ID, "breakout", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = setups.ExistsByName(a.ID, "breakout", s.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = setups.ExistsByName(b.ID, "Breakout", 0)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, setups.Delete(s.ID))
	require.NoError(t, setups.Create(&models.SetupType{UserID: a.ID, Name: "Breakout"}))
}

func TestRiskRepositoryUpsert(t *testing.T) {
	db := testutil.NewDB(t)
	users := repository.NewUserRepository(db)
	risk := repository.NewRiskRepository(db)
	u := seedUser(t, users, "risky")

	require.NoError(t, risk.Upsert(&models.DailyRiskTracker{UserID: u.ID, Day: "2024-03-04", TradesTaken: 1, RLost: 1}))
	require.NoError(t, risk.Upsert(&models.DailyRiskTracker{UserID: u.ID, Day: "2024-03-04", TradesTaken: 3, RLost: 2.5, LossLimitHit: true}))

	got, err := risk.GetByDay(u.ID, "2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, 3, got.TradesTaken)
	assert.InDelta(t, 2.5, got.RLost, 1e-9)
	assert.True(t, got.LossLimitHit)

	_, err = risk.GetByDay(u.ID, "2024-03-05")
	assert.ErrorIs(t, err, repository.ErrRiskTrackerNotFound)
}

func TestAffiliateLedger(t *testing.T) {
	db := testutil.NewDB(t)
	users := repository.NewUserRepository(db)
	repo := repository.NewAffiliateRepository(db)
	aff := seedUser(t, users, "affiliate")
	ref := seedUser(t, users, "referred")

	affiliate := &models.Affiliate{UserID: aff.ID, Code: "ABCD2345", CommissionRate: decimal.RequireFromString("0.2"), Active: true}
	require.NoError(t, repo.CreateAffiliate(affiliate))

	byCode, err := repo.GetAffiliateByCode("ABCD2345")
	require.NoError(t, err)
	assert.Equal(t, affiliate.ID, byCode.ID)

	referral := &models.Referral{AffiliateID: affiliate.ID, ReferredUserID: ref.ID, Code: affiliate.Code}
	require.NoError(t, repo.CreateReferral(referral))

	c1 := &models.Commission{AffiliateID: affiliate.ID, ReferralID: referral.ID, PaymentID: 1,
		PaymentAmount: decimal.NewFromInt(50), Rate: affiliate.CommissionRate, Amount: decimal.NewFromInt(10), Currency: "USD", Status: models.LedgerPending}
	created, err := repo.RecordCommission(c1, referral)
	require.NoError(t, err)
	assert.True(t, created)

	dup := &models.Commission{AffiliateID: affiliate.ID, ReferralID: referral.ID, PaymentID: 1,
		PaymentAmount: decimal.NewFromInt(50), Rate: affiliate.CommissionRate, Amount: decimal.NewFromInt(10), Currency: "USD", Status: models.LedgerPending}
	created, err = repo.RecordCommission(dup, referral)
	require.NoError(t, err)
	assert.False(t, created)

	converted, err := repo.GetReferralByUserID(ref.ID)
	require.NoError(t, err)
	assert.NotNil(t, converted.ConvertedAt)

	c1.Status = models.LedgerApproved
	require.NoError(t, repo.UpdateCommission(c1))

	sum, err := repo.SumCommissions(affiliate.ID, models.LedgerApproved)
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.NewFromInt(10)), sum.String())

	unclaimed, err := repo.UnclaimedApproved(affiliate.ID)
	require.NoError(t, err)
	require.Len(t, unclaimed, 1)

	payout := &models.PayoutRequest{AffiliateID: affiliate.ID, Amount: decimal.NewFromInt(10), Currency: "USD", Status: models.LedgerPending}
	require.NoError(t, repo.CreatePayout(payout, []uint{c1.ID}))

	unclaimed, err = repo.UnclaimedApproved(affiliate.ID)
	require.NoError(t, err)
	assert.Empty(t, unclaimed)

	now := time.Now()
	_, err = repo.UpdatePayoutWithLock(payout.ID, func(p *models.PayoutRequest) error {
		p.Status = models.LedgerApproved
		return nil
	})
	require.NoError(t, err)
	paid, err := repo.UpdatePayoutWithLock(payout.ID, func(p *models.PayoutRequest) error {
		p.Status = models.LedgerPaid
		p.PaidAt = &now
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.LedgerPaid, paid.Status)

	got, err := repo.GetCommission(c1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LedgerPaid, got.Status)
}

func TestRejectedPayoutReleasesCommissions(t *testing.T) {
	db := testutil.NewDB(t)
	users := repository.NewUserRepository(db)
	repo := repository.NewAffiliateRepository(db)
	aff := seedUser(t, users, "affiliate")

	affiliate := &models.Affiliate{UserID: aff.ID, Code: "ZZZZ2345", CommissionRate: decimal.RequireFromString("0.2"), Active: true}
	require.NoError(t, repo.CreateAffiliate(affiliate))

	c := &models.Commission{AffiliateID: affiliate.ID, ReferralID: 1, PaymentID: 7,
		PaymentAmount: decimal.NewFromInt(100), Rate: affiliate.CommissionRate, Amount: decimal.NewFromInt(20), Currency: "USD", Status: models.LedgerApproved}
	_, err := repo.RecordCommission(c, &models.Referral{ID: 1})
	require.NoError(t, err)

	payout := &models.PayoutRequest{AffiliateID: affiliate.ID, Amount: decimal.NewFromInt(20), Currency: "USD", Status: models.LedgerPending}
	require.NoError(t, repo.CreatePayout(payout, []uint{c.ID}))

	_, err = repo.UpdatePayoutWithLock(payout.ID, func(p *models.PayoutRequest) error {
		p.Status = models.LedgerRejected
		return nil
	})
	require.NoError(t, err)

	unclaimed, err := repo.UnclaimedApproved(affiliate.ID)
	require.NoError(t, err)
	assert.Len(t, unclaimed, 1)

	_, err = repo.UpdatePayoutWithLock(999, func(p *models.PayoutRequest) error { return nil })
	assert.ErrorIs(t, err, repository.ErrPayoutNotFound)
}

func TestCreatePayoutClaimsCommissionsOnce(t *testing.T) {
	db := testutil.NewDB(t)
	users := repository.NewUserRepository(db)
	repo := repository.NewAffiliateRepository(db)
	aff := seedUser(t, users, "affiliate")

	affiliate := &models.Affiliate{UserID: aff.ID, Code: "QQQQ2345", CommissionRate: decimal.RequireFromString("0.2"), Active: true}
	require.NoError(t, repo.CreateAffiliate(affiliate))

	ids := make([]uint, 0, 2)
	for i, amount := range []string{"3.80", "6.00"} {
		c := &models.Commission{AffiliateID: affiliate.ID, ReferralID: uint(i + 1), PaymentID: uint(i + 10),
			PaymentAmount: decimal.NewFromInt(30), Rate: affiliate.CommissionRate, Amount: decimal.RequireFromString(amount),
			Currency: "USD", Status: models.LedgerApproved}
		_, err := repo.RecordCommission(c, &models.Referral{ID: uint(i + 1)})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}

	// both requests are built from the same unclaimed snapshot
	first := &models.PayoutRequest{AffiliateID: affiliate.ID, Amount: decimal.RequireFromString("9.80"), Currency: "USD", Status: models.LedgerPending}
	second := &models.PayoutRequest{AffiliateID: affiliate.ID, Amount: decimal.RequireFromString("9.80"), Currency: "USD", Status: models.LedgerPending}
	require.NoError(t, repo.CreatePayout(first, ids))
	assert.ErrorIs(t, repo.CreatePayout(second, ids), repository.ErrCommissionsClaimed)

	// a partial overlap is refused as a whole
	third := &models.PayoutRequest{AffiliateID: affiliate.ID, Amount: decimal.RequireFromString("6.00"), Currency: "USD", Status: models.LedgerPending}
	assert.ErrorIs(t, repo.CreatePayout(third, ids[1:]), repository.ErrCommissionsClaimed)

	payouts, err := repo.ListPayouts(affiliate.ID, "")
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.Equal(t, first.ID, payouts[0].ID)
}

func TestPaymentRepositoryIdempotency(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewPaymentRepository(db)

	p := &models.PaymentTransaction{UserID: 1, Provider: models.ProviderPaystack, Reference: "ref-1",
		Plan: models.PlanPro, Amount: decimal.NewFromInt(19), Currency: "USD", Status: models.PaymentPending}
	created, err := repo.CreateIfAbsent(p)
	require.NoError(t, err)
	assert.True(t, created)

	again := &models.PaymentTransaction{UserID: 1, Provider: models.ProviderPaystack, Reference: "ref-1",
		Plan: models.PlanPro, Amount: decimal.NewFromInt(19), Currency: "USD", Status: models.PaymentPending}
	created, err = repo.CreateIfAbsent(again)
	require.NoError(t, err)
	assert.False(t, created)

	runs := 0
	apply := func(tx *gorm.DB) error {
		runs++
		return nil
	}

	// a failing apply leaves the payment pending
	applied, err := repo.SettleWith(p.ID, "success", nil, time.Now(), func(tx *gorm.DB) error {
		return errors.New("activation failed")
	})
	require.Error(t, err)
	assert.False(t, applied)
	pending, err := repo.GetByReference(models.ProviderPaystack, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, pending.Status)

	applied, err = repo.SettleWith(p.ID, "success", nil, time.Now(), apply)
	require.NoError(t, err)
	assert.True(t, applied)
	applied, err = repo.SettleWith(p.ID, "success", nil, time.Now(), apply)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, 1, runs)

	require.NoError(t, repo.UpdateStatus(p.ID, models.PaymentFailed, "failed", nil))
	got, err := repo.GetByReference(models.ProviderPaystack, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSucceeded, got.Status)
}
