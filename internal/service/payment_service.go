package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/edgelog/internal/config"
	"github.com/edgelog/internal/metrics"
	"github.com/edgelog/internal/models"
	"github.com/edgelog/internal/provider"
	"github.com/edgelog/internal/provider/nowpayments"
	"github.com/edgelog/internal/provider/paystack"
	"github.com/edgelog/internal/repository"
	"github.com/edgelog/pkg/keygen"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrPaymentNotSuccessful = errors.New("payment not successful")
	ErrPaymentOwnership     = errors.New("payment belongs to another user")
	ErrPaymentUnderpaid     = errors.New("payment amount below plan price")
	ErrCurrencyMismatch     = errors.New("payment currency does not match plan currency")
)

const webhookPath = "/api/v1/payments/nowpayments-webhook"

// PaymentService settles provider payments into plan upgrades and commissions
type PaymentService struct {
	paymentRepo  *repository.PaymentRepository
	userRepo     *repository.UserRepository
	subscription *SubscriptionService
	referral     *ReferralService
	paystack     *paystack.Client
	nowpayments  *nowpayments.Client
	cfg          config.PaymentsConfig
	metrics      *metrics.Metrics
	logger       *zap.Logger
	now          func() time.Time
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	paymentRepo *repository.PaymentRepository,
	userRepo *repository.UserRepository,
	subscription *SubscriptionService,
	referral *ReferralService,
	paystackClient *paystack.Client,
	nowpaymentsClient *nowpayments.Client,
	cfg config.PaymentsConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo:  paymentRepo,
		userRepo:     userRepo,
		subscription: subscription,
		referral:     referral,
		paystack:     paystackClient,
		nowpayments:  nowpaymentsClient,
		cfg:          cfg,
		metrics:      m,
		logger:       logger,
		now:          time.Now,
	}
}

// PaymentResult is the outcome of a verification or webhook
type PaymentResult struct {
	Payment *models.PaymentTransaction `json:"payment"`
	// Applied is false when the payment had already been settled
	Applied      bool                `json:"applied"`
	Subscription *SubscriptionStatus `json:"subscription,omitempty"`
}

// VerifyPaystackRequest is the body of verify-paystack-payment
type VerifyPaystackRequest struct {
	Reference string      `json:"reference" binding:"required,max=100"`
	Plan      models.Plan `json:"plan" binding:"omitempty,oneof=pro elite"`
}

// VerifyPaystack confirms a Paystack charge made by userID and upgrades the
// user's plan. Verifying the same reference again returns the recorded
// payment without applying the upgrade twice.
func (s *PaymentService) VerifyPaystack(ctx context.Context, userID uint, req *VerifyPaystackRequest) (*PaymentResult, error) {
	tx, err := s.paystack.Verify(ctx, req.Reference)
	if err != nil && !errors.Is(err, paystack.ErrNotSuccessful) {
		return nil, err
	}

	plan := req.Plan
	if v, ok := tx.Metadata["plan"].(string); ok && v != "" {
		plan = models.Plan(strings.ToLower(v))
	}
	if plan != models.PlanPro && plan != models.PlanElite {
		return nil, ErrInvalidPlan
	}
	if owner, ok := metadataUserID(tx.Metadata); ok && owner != userID {
		return nil, ErrPaymentOwnership
	}

	payment := &models.PaymentTransaction{
		UserID:    userID,
		Provider:  models.ProviderPaystack,
		Reference: tx.Reference,
		Plan:      plan,
		Amount:    tx.Amount,
		Currency:  tx.Currency,
		Status:    models.PaymentPending,
		RawStatus: tx.Status,
		Payload:   datatypes.JSON(tx.Raw),
	}
	payment, err = s.record(payment)
	if err != nil {
		return nil, err
	}
	if payment.UserID != userID {
		return nil, ErrPaymentOwnership
	}

	if tx.Status != "success" {
		status := models.PaymentPending
		if tx.Status == "failed" || tx.Status == "abandoned" || tx.Status == "reversed" {
			status = models.PaymentFailed
		}
		if err := s.paymentRepo.UpdateStatus(payment.ID, status, tx.Status, datatypes.JSON(tx.Raw)); err != nil {
			return nil, err
		}
		s.metrics.RecordPayment(string(models.ProviderPaystack), string(status), tx.Currency, 0)
		return nil, ErrPaymentNotSuccessful
	}

	if err := s.checkAmount(plan, tx.Amount, tx.Currency); err != nil {
		_ = s.paymentRepo.UpdateStatus(payment.ID, models.PaymentFailed, tx.Status, datatypes.JSON(tx.Raw))
		s.logger.Warn("paystack payment rejected",
			zap.String("reference", tx.Reference),
			zap.String("amount", tx.Amount.String()),
			zap.Error(err))
		return nil, err
	}

	paidAt := s.now()
	if tx.PaidAt != nil {
		paidAt = *tx.PaidAt
	}
	return s.settle(ctx, payment, tx.Status, datatypes.JSON(tx.Raw), paidAt)
}

func metadataUserID(meta map[string]interface{}) (uint, bool) {
	switch v := meta["user_id"].(type) {
	case float64:
		return uint(v), v > 0
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		return uint(id), err == nil && id > 0
	}
	return 0, false
}

// HandleNOWPaymentsIPN processes a signed NOWPayments notification. Replays
// and out-of-order notifications never downgrade a settled payment or
// upgrade a plan twice.
func (s *PaymentService) HandleNOWPaymentsIPN(ctx context.Context, body []byte, signature string) (*PaymentResult, error) {
	if s.cfg.NOWPaymentsIPNSecret == "" {
		return nil, provider.ErrNotConfigured
	}
	ipn, err := nowpayments.VerifyAndParse(body, signature, s.cfg.NOWPaymentsIPNSecret)
	if err != nil {
		return nil, err
	}

	userID, rawPlan, err := keygen.ParseOrderID(ipn.OrderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nowpayments.ErrMalformedIPN, err)
	}
	plan := models.Plan(rawPlan)
	if plan != models.PlanPro && plan != models.PlanElite {
		return nil, ErrInvalidPlan
	}
	if _, err := s.userRepo.GetByID(userID); err != nil {
		return nil, err
	}

	amount := ipn.Amount()
	currency := strings.ToUpper(ipn.PriceCurrency)
	payment := &models.PaymentTransaction{
		UserID:    userID,
		Provider:  models.ProviderNOWPayments,
		Reference: ipn.PaymentID.String(),
		OrderID:   ipn.OrderID,
		Plan:      plan,
		Amount:    amount,
		Currency:  currency,
		Status:    models.PaymentPending,
		RawStatus: ipn.PaymentStatus,
		Payload:   datatypes.JSON(body),
	}
	payment, err = s.record(payment)
	if err != nil {
		return nil, err
	}

	switch {
	case ipn.Settled():
		if err := s.checkAmount(plan, amount, currency); err != nil {
			s.logger.Warn("nowpayments payment rejected",
				zap.String("payment_id", payment.Reference),
				zap.String("amount", amount.String()),
				zap.Error(err))
			if err := s.paymentRepo.UpdateStatus(payment.ID, models.PaymentFailed, ipn.PaymentStatus, datatypes.JSON(body)); err != nil {
				return nil, err
			}
			s.metrics.RecordPayment(string(models.ProviderNOWPayments), string(models.PaymentFailed), currency, 0)
			return &PaymentResult{Payment: payment}, nil
		}
		return s.settle(ctx, payment, ipn.PaymentStatus, datatypes.JSON(body), s.now())
	case ipn.Failed():
		if err := s.paymentRepo.UpdateStatus(payment.ID, models.PaymentFailed, ipn.PaymentStatus, datatypes.JSON(body)); err != nil {
			return nil, err
		}
		s.metrics.RecordPayment(string(models.ProviderNOWPayments), string(models.PaymentFailed), currency, 0)
	default:
		if err := s.paymentRepo.UpdateStatus(payment.ID, models.PaymentPending, ipn.PaymentStatus, datatypes.JSON(body)); err != nil {
			return nil, err
		}
	}

	s.logger.Info("nowpayments notification",
		zap.String("payment_id", payment.Reference),
		zap.String("status", ipn.PaymentStatus))
	return &PaymentResult{Payment: payment}, nil
}

// record stores payment unless its provider reference is already known, and
// returns the stored row either way.
func (s *PaymentService) record(payment *models.PaymentTransaction) (*models.PaymentTransaction, error) {
	created, err := s.paymentRepo.CreateIfAbsent(payment)
	if err != nil {
		return nil, err
	}
	if created {
		return payment, nil
	}
	return s.paymentRepo.GetByReference(payment.Provider, payment.Reference)
}

func (s *PaymentService) checkAmount(plan models.Plan, amount decimal.Decimal, currency string) error {
	if !strings.EqualFold(currency, s.subscription.Currency()) {
		return ErrCurrencyMismatch
	}
	price, err := s.subscription.Price(plan)
	if err != nil {
		return err
	}
	if amount.LessThan(price) {
		return ErrPaymentUnderpaid
	}
	return nil
}

// settle marks the payment succeeded and, for the first caller only,
// activates the plan in the same transaction and records the referral
// commission.
func (s *PaymentService) settle(ctx context.Context, payment *models.PaymentTransaction, rawStatus string, payload datatypes.JSON, paidAt time.Time) (*PaymentResult, error) {
	var upgraded *models.User
	applied, err := s.paymentRepo.SettleWith(payment.ID, rawStatus, payload, paidAt, func(tx *gorm.DB) error {
		user, err := s.subscription.ActivateTx(tx, payment.UserID, payment.Plan)
		if err != nil {
			return err
		}
		upgraded = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &PaymentResult{Payment: payment, Applied: applied}
	if applied {
		payment.Status = models.PaymentSucceeded
		payment.RawStatus = rawStatus
		payment.PaidAt = &paidAt
		s.subscription.Announce(ctx, upgraded)
		if _, err := s.referral.RecordPaymentCommission(payment); err != nil {
			// the upgrade stands; the commission can be reconciled later
			s.logger.Error("commission recording failed", zap.Uint("payment_id", payment.ID), zap.Error(err))
		}
		amount, _ := payment.Amount.Float64()
		s.metrics.RecordPayment(string(payment.Provider), string(models.PaymentSucceeded), payment.Currency, amount)
		s.logger.Info("payment settled",
			zap.Uint("user_id", payment.UserID),
			zap.String("provider", string(payment.Provider)),
			zap.String("reference", payment.Reference),
			zap.String("plan", string(payment.Plan)))
	}

	status, err := s.subscription.Status(payment.UserID)
	if err != nil {
		return nil, err
	}
	result.Subscription = status
	return result, nil
}

// CreateOrderRequest starts a NOWPayments checkout
type CreateOrderRequest struct {
	Plan models.Plan `json:"plan" binding:"required,oneof=pro elite"`
}

// Order is the reference a client embeds in a crypto checkout
type Order struct {
	OrderID    string          `json:"order_id"`
	Plan       models.Plan     `json:"plan"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	InvoiceURL string          `json:"invoice_url,omitempty"`
}

// CreateOrder issues an order id for plan and, when NOWPayments credentials
// are configured, a hosted invoice for it.
func (s *PaymentService) CreateOrder(ctx context.Context, userID uint, req *CreateOrderRequest) (*Order, error) {
	price, err := s.subscription.Price(req.Plan)
	if err != nil {
		return nil, err
	}

	order := &Order{
		OrderID:  keygen.OrderID(userID, string(req.Plan)),
		Plan:     req.Plan,
		Amount:   price,
		Currency: s.subscription.Currency(),
	}
	if !s.nowpayments.Configured() {
		return order, nil
	}

	amount, _ := price.Float64()
	invoice, err := s.nowpayments.CreateInvoice(ctx, nowpayments.InvoiceRequest{
		PriceAmount:      amount,
		PriceCurrency:    strings.ToLower(order.Currency),
		OrderID:          order.OrderID,
		OrderDescription: fmt.Sprintf("%s plan, %d days", req.Plan, s.subscription.cfg.PeriodDays),
		IPNCallbackURL:   strings.TrimRight(s.cfg.PublicBaseURL, "/") + webhookPath,
	})
	if err != nil {
		return nil, err
	}
	order.InvoiceURL = invoice.InvoiceURL
	return order, nil
}

// ListPayments lists the user's payments, newest first
func (s *PaymentService) ListPayments(userID uint, page, pageSize int) ([]models.PaymentTransaction, int64, error) {
	return s.paymentRepo.GetByUserIDPaginated(userID, page, pageSize)
}
