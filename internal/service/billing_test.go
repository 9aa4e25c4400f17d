package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edgelog/internal/models"
	"github.com/edgelog/internal/provider/nowpayments"
	"github.com/edgelog/internal/realtime"
	"github.com/edgelog/internal/service"
	"github.com/edgelog/pkg/keygen"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestFeatureMatrix(t *testing.T) {
	assert.True(t, service.PlanAllows(models.PlanFree, service.FeatureJournal))
	assert.False(t, service.PlanAllows(models.PlanFree, service.FeatureAIAnalysis))
	assert.True(t, service.PlanAllows(models.PlanPro, service.FeatureAIAnalysis))
	assert.False(t, service.PlanAllows(models.PlanPro, service.FeatureEliteJournal))
	assert.True(t, service.PlanAllows(models.PlanElite, service.FeatureCoPro))
	assert.False(t, service.PlanAllows(models.PlanElite, service.Feature("teleport")))

	assert.Len(t, service.FeaturesFor(models.PlanElite), 9)
	assert.Len(t, service.FeaturesFor(models.PlanFree), 3)
}

func activate(ctx context.Context, e *env, userID uint, plan models.Plan) (*models.User, error) {
	u, err := e.subscription.ActivateTx(e.db, userID, plan)
	if err != nil {
		return nil, err
	}
	e.subscription.Announce(ctx, u)
	return u, nil
}

func TestActivateExtendsSamePlan(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "subscriber")

	first, err := activate(ctx, e, u.ID, models.PlanPro)
	require.NoError(t, err)
	require.NotNil(t, first.PlanExpiresAt)
	firstExpiry := *first.PlanExpiresAt
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), firstExpiry, time.Minute)

	second, err := activate(ctx, e, u.ID, models.PlanPro)
	require.NoError(t, err)
	assert.WithinDuration(t, firstExpiry.AddDate(0, 0, 30), *second.PlanExpiresAt, time.Second)

	upgraded, err := activate(ctx, e, u.ID, models.PlanElite)
	require.NoError(t, err)
	assert.Equal(t, models.PlanElite, upgraded.Plan)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), *upgraded.PlanExpiresAt, time.Minute)

	_, err = activate(ctx, e, u.ID, models.PlanFree)
	assert.ErrorIs(t, err, service.ErrInvalidPlan)

	assert.NoError(t, e.subscription.CheckFeature(u.ID, service.FeatureAIMentor))
	assert.Contains(t, e.events.types(), realtime.EventPlanChanged)
}

func TestDowngradeExpired(t *testing.T) {
	e := newEnv(t)
	lapsed := e.user(t, "lapsed")
	active := e.user(t, "active")

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	require.NoError(t, e.users.UpdatePlan(lapsed.ID, models.PlanElite, &past))
	require.NoError(t, e.users.UpdatePlan(active.ID, models.PlanPro, &future))

	assert.ErrorIs(t, e.subscription.CheckFeature(lapsed.ID, service.FeatureEliteJournal), service.ErrFeatureLocked)

	n, err := e.subscription.DowngradeExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := e.users.GetByID(lapsed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, got.Plan)
	assert.Nil(t, got.PlanExpiresAt)

	status, err := e.subscription.Status(active.ID)
	require.NoError(t, err)
	assert.True(t, status.Active)
	assert.Equal(t, models.PlanPro, status.Plan)
}

func referredPayment(t *testing.T, e *env, userID uint, reference string, amount string) *models.PaymentTransaction {
	t.Helper()
	p := &models.PaymentTransaction{
		UserID:    userID,
		Provider:  models.ProviderPaystack,
		Reference: reference,
		Plan:      models.PlanPro,
		Amount:    decimal.RequireFromString(amount),
		Currency:  "USD",
		Status:    models.PaymentSucceeded,
	}
	created, err := e.payments.CreateIfAbsent(p)
	require.NoError(t, err)
	require.True(t, created)
	return p
}

func TestReferralCommissionAndPayout(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t, "affiliate")

	aff, err := e.referral.Enroll(owner.ID, &service.EnrollRequest{PayoutMethod: "usdt_trc20", PayoutAddress: "TXabc"})
	require.NoError(t, err)
	assert.Len(t, aff.Code, 8)
	_, err = e.referral.Enroll(owner.ID, &service.EnrollRequest{})
	assert.ErrorIs(t, err, service.ErrAlreadyAffiliate)

	assert.ErrorIs(t, e.referral.AttachReferral(owner.ID, aff.Code), service.ErrSelfReferral)
	assert.ErrorIs(t, e.referral.AttachReferral(owner.ID, "NOPE1234"), service.ErrInvalidReferralCode)

	friend := e.user(t, "friend")
	require.NoError(t, e.referral.AttachReferral(friend.ID, aff.Code))
	got, err := e.users.GetByID(friend.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ReferredByID)
	assert.Equal(t, owner.ID, *got.ReferredByID)

	c1, err := e.referral.RecordPaymentCommission(referredPayment(t, e, friend.ID, "ref-1", "19.00"))
	require.NoError(t, err)
	require.NotNil(t, c1)
	assert.True(t, decimal.RequireFromString("3.80").Equal(c1.Amount))
	assert.Equal(t, models.LedgerPending, c1.Status)

	p2 := referredPayment(t, e, friend.ID, "ref-2", "49.00")
	c2, err := e.referral.RecordPaymentCommission(p2)
	require.NoError(t, err)
	require.NotNil(t, c2)
	replay, err := e.referral.RecordPaymentCommission(p2)
	require.NoError(t, err)
	assert.Nil(t, replay)

	stranger := e.user(t, "stranger")
	none, err := e.referral.RecordPaymentCommission(referredPayment(t, e, stranger.ID, "ref-3", "19.00"))
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = e.referral.ReviewCommission(c1.ID, &service.ReviewRequest{Status: models.LedgerPaid})
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
	for _, c := range []*models.Commission{c1, c2} {
		_, err = e.referral.ReviewCommission(c.ID, &service.ReviewRequest{Status: models.LedgerApproved})
		require.NoError(t, err)
	}

	summary, err := e.referral.Summary(owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Referrals)
	assert.Equal(t, 1, summary.Conversions)
	assert.True(t, decimal.RequireFromString("13.60").Equal(summary.AvailableAmount))

	tooMuch := decimal.RequireFromString("20")
	_, err = e.referral.RequestPayout(owner.ID, &service.PayoutRequestBody{Amount: &tooMuch})
	assert.ErrorIs(t, err, service.ErrInsufficientBalance)
	tooLittle := decimal.RequireFromString("2")
	_, err = e.referral.RequestPayout(owner.ID, &service.PayoutRequestBody{Amount: &tooLittle})
	assert.ErrorIs(t, err, service.ErrPayoutBelowMinimum)

	// oldest first: 3.80 alone is below the minimum of 5
	five := decimal.RequireFromString("5")
	_, err = e.referral.RequestPayout(owner.ID, &service.PayoutRequestBody{Amount: &five})
	assert.ErrorIs(t, err, service.ErrPayoutBelowMinimum)

	payout, err := e.referral.RequestPayout(owner.ID, &service.PayoutRequestBody{})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("13.60").Equal(payout.Amount))
	assert.Equal(t, "usdt_trc20", payout.Method)

	_, err = e.referral.ReviewCommission(c1.ID, &service.ReviewRequest{Status: models.LedgerRejected})
	assert.ErrorIs(t, err, service.ErrCommissionClaimed)

	_, err = e.referral.ReviewPayout(payout.ID, &service.ReviewRequest{Status: models.LedgerApproved})
	require.NoError(t, err)
	paid, err := e.referral.ReviewPayout(payout.ID, &service.ReviewRequest{Status: models.LedgerPaid, TransactionID: "0xfeed"})
	require.NoError(t, err)
	assert.Equal(t, models.LedgerPaid, paid.Status)
	assert.Equal(t, "0xfeed", paid.TransactionID)

	summary, err = e.referral.Summary(owner.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("13.60").Equal(summary.PaidAmount))
	assert.True(t, summary.AvailableAmount.IsZero())
}

func TestRegisterWithReferralCode(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t, "host")
	aff, err := e.referral.Enroll(owner.ID, &service.EnrollRequest{})
	require.NoError(t, err)

	_, err = e.auth.Register(&service.RegisterRequest{
		Username: "guest", Email: "guest@example.com", Password: "secret1", ReferralCode: "ZZZZZZZZ",
	})
	assert.ErrorIs(t, err, service.ErrInvalidReferralCode)
	exists, err := e.users.ExistsByUsername("guest")
	require.NoError(t, err)
	assert.False(t, exists)

	u, err := e.auth.Register(&service.RegisterRequest{
		Username: "guest", Email: "Guest@Example.com", Password: "secret1", ReferralCode: aff.Code,
	})
	require.NoError(t, err)
	assert.Equal(t, "guest@example.com", u.Email)
	require.NotNil(t, u.ReferredByID)
	assert.Equal(t, owner.ID, *u.ReferredByID)

	_, err = e.auth.Register(&service.RegisterRequest{Username: "guest", Email: "x@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, service.ErrUsernameTaken)
	_, err = e.auth.Register(&service.RegisterRequest{Username: "tz", Email: "tz@example.com", Password: "secret1", Timezone: "Mars/Olympus"})
	assert.ErrorIs(t, err, service.ErrInvalidTimezone)

	token, err := e.auth.Login(&service.LoginRequest{Username: "guest@example.com", Password: "secret1"})
	require.NoError(t, err)
	claims, err := e.auth.ValidateToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, models.PlanFree, claims.Plan)

	_, err = e.auth.Login(&service.LoginRequest{Username: "guest", Password: "wrong"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	refreshed, err := e.auth.RefreshToken(token.AccessToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
}

func paystackServer(t *testing.T, status string, amountKobo int64, meta map[string]interface{}) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]interface{}{
				"status":    status,
				"reference": "PSK-1",
				"amount":    amountKobo,
				"currency":  "USD",
				"metadata":  meta,
				"customer":  map[string]interface{}{"email": "payer@example.com"},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestVerifyPaystackIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	host := e.user(t, "host")
	aff, err := e.referral.Enroll(host.ID, &service.EnrollRequest{})
	require.NoError(t, err)
	payer := e.user(t, "payer")
	require.NoError(t, e.referral.AttachReferral(payer.ID, aff.Code))

	srv, calls := paystackServer(t, "success", 1900, map[string]interface{}{"plan": "pro", "user_id": float64(payer.ID)})
	svc := e.payment(srv.URL, "")

	res, err := svc.VerifyPaystack(ctx, payer.ID, &service.VerifyPaystackRequest{Reference: "PSK-1"})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, models.PaymentSucceeded, res.Payment.Status)
	assert.Equal(t, models.PlanPro, res.Subscription.Plan)

	again, err := svc.VerifyPaystack(ctx, payer.ID, &service.VerifyPaystackRequest{Reference: "PSK-1"})
	require.NoError(t, err)
	assert.False(t, again.Applied)
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))

	user, err := e.users.GetByID(payer.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), *user.PlanExpiresAt, time.Minute)

	commissions, total, err := e.referral.MyCommissions(host.ID, "", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.True(t, decimal.RequireFromString("3.80").Equal(commissions[0].Amount))

	intruder := e.user(t, "intruder")
	_, err = svc.VerifyPaystack(ctx, intruder.ID, &service.VerifyPaystackRequest{Reference: "PSK-1"})
	assert.ErrorIs(t, err, service.ErrPaymentOwnership)
}

func TestVerifyPaystackRetriesAfterFailedActivation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	payer := e.user(t, "retrier")

	var failed int32
	require.NoError(t, e.db.Callback().Update().Before("gorm:update").Register("test:fail_user_update_once", func(db *gorm.DB) {
		if db.Statement.Table == "users" && atomic.CompareAndSwapInt32(&failed, 0, 1) {
			_ = db.AddError(errors.New("transient db error"))
		}
	}))

	srv, _ := paystackServer(t, "success", 1900, map[string]interface{}{"plan": "pro", "user_id": float64(payer.ID)})
	svc := e.payment(srv.URL, "")

	_, err := svc.VerifyPaystack(ctx, payer.ID, &service.VerifyPaystackRequest{Reference: "PSK-1"})
	require.Error(t, err)

	stored, err := e.payments.GetByReference(models.ProviderPaystack, "PSK-1")
	require.NoError(t, err)
	assert.NotEqual(t, models.PaymentSucceeded, stored.Status)
	user, err := e.users.GetByID(payer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, user.Plan)

	res, err := svc.VerifyPaystack(ctx, payer.ID, &service.VerifyPaystackRequest{Reference: "PSK-1"})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, models.PlanPro, res.Subscription.Plan)
}

func TestVerifyPaystackRejectsBadPayments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "cheap")

	srv, _ := paystackServer(t, "success", 500, map[string]interface{}{"plan": "elite"})
	_, err := e.payment(srv.URL, "").VerifyPaystack(ctx, u.ID, &service.VerifyPaystackRequest{Reference: "PSK-1"})
	assert.ErrorIs(t, err, service.ErrPaymentUnderpaid)

	failed, _ := paystackServer(t, "failed", 4900, map[string]interface{}{"plan": "elite"})
	e2 := newEnv(t)
	u2 := e2.user(t, "declined")
	_, err = e2.payment(failed.URL, "").VerifyPaystack(ctx, u2.ID, &service.VerifyPaystackRequest{Reference: "PSK-1"})
	assert.ErrorIs(t, err, service.ErrPaymentNotSuccessful)

	stored, err := e2.payments.GetByReference(models.ProviderPaystack, "PSK-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, stored.Status)

	got, err := e2.users.GetByID(u2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, got.Plan)
}

func signedIPN(t *testing.T, secret string, payload map[string]interface{}) ([]byte, string) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	sig, err := nowpayments.Sign(body, secret)
	require.NoError(t, err)
	return body, sig
}

func TestNOWPaymentsIPNFlow(t *testing.T) {
	const secret = "ipn-secret"
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "crypto")
	svc := e.payment("http://127.0.0.1:0", secret)

	orderID := keygen.OrderID(u.ID, "elite")
	ipn := func(status string) map[string]interface{} {
		return map[string]interface{}{
			"payment_id":     5077125051,
			"payment_status": status,
			"price_amount":   49,
			"price_currency": "usd",
			"pay_amount":     0.0012,
			"pay_currency":   "btc",
			"order_id":       orderID,
		}
	}

	body, sig := signedIPN(t, secret, ipn("waiting"))
	res, err := svc.HandleNOWPaymentsIPN(ctx, body, sig)
	require.NoError(t, err)
	assert.False(t, res.Applied)

	_, err = svc.HandleNOWPaymentsIPN(ctx, body, "deadbeef")
	assert.ErrorIs(t, err, nowpayments.ErrInvalidSignature)

	body, sig = signedIPN(t, secret, ipn("finished"))
	res, err = svc.HandleNOWPaymentsIPN(ctx, body, sig)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, models.PlanElite, res.Subscription.Plan)

	res, err = svc.HandleNOWPaymentsIPN(ctx, body, sig)
	require.NoError(t, err)
	assert.False(t, res.Applied)

	// a late failure notification never undoes a settled payment
	body, sig = signedIPN(t, secret, ipn("expired"))
	_, err = svc.HandleNOWPaymentsIPN(ctx, body, sig)
	require.NoError(t, err)
	stored, err := e.payments.GetByReference(models.ProviderNOWPayments, "5077125051")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSucceeded, stored.Status)

	payments, total, err := svc.ListPayments(u.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, orderID, payments[0].OrderID)
}

func TestCreateOrderWithoutInvoiceProvider(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "orderer")

	order, err := e.payment("http://127.0.0.1:0", "").CreateOrder(context.Background(), u.ID, &service.CreateOrderRequest{Plan: models.PlanPro})
	require.NoError(t, err)
	assert.Empty(t, order.InvoiceURL)
	assert.True(t, decimal.RequireFromString("19").Equal(order.Amount))

	userID, plan, err := keygen.ParseOrderID(order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)
	assert.Equal(t, "pro", plan)
}
