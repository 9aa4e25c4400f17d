package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/edgelog/internal/config"
	"github.com/edgelog/internal/metrics"
	"github.com/edgelog/internal/models"
	"github.com/edgelog/internal/repository"
	"github.com/edgelog/pkg/keygen"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrAlreadyAffiliate     = errors.New("user is already an affiliate")
	ErrInvalidReferralCode  = errors.New("invalid referral code")
	ErrSelfReferral         = errors.New("cannot use your own referral code")
	ErrInvalidTransition    = errors.New("status change not allowed")
	ErrCommissionClaimed    = errors.New("commission is attached to a payout request")
	ErrPayoutBelowMinimum   = errors.New("payout amount is below the minimum")
	ErrInsufficientBalance  = errors.New("payout amount exceeds approved unpaid balance")
	ErrPayoutMethodRequired = errors.New("payout method and address are required")
)

const codeAttempts = 5

// ReferralService runs the affiliate programme
type ReferralService struct {
	affRepo   *repository.AffiliateRepository
	userRepo  *repository.UserRepository
	rate      decimal.Decimal
	minPayout decimal.Decimal
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewReferralService creates a new ReferralService
func NewReferralService(
	affRepo *repository.AffiliateRepository,
	userRepo *repository.UserRepository,
	cfg config.ReferralConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) (*ReferralService, error) {
	rate, err := decimal.NewFromString(cfg.CommissionRate)
	if err != nil {
		return nil, fmt.Errorf("invalid commission rate %q: %w", cfg.CommissionRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("commission rate %s outside [0,1]", rate)
	}
	minPayout, err := decimal.NewFromString(cfg.MinPayoutAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid minimum payout %q: %w", cfg.MinPayoutAmount, err)
	}

	return &ReferralService{
		affRepo:   affRepo,
		userRepo:  userRepo,
		rate:      rate,
		minPayout: minPayout,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// EnrollRequest is the affiliate sign-up body
type EnrollRequest struct {
	PayoutMethod  string `json:"payout_method" binding:"omitempty,oneof=paystack usdt_trc20 usdt_erc20 btc bank_transfer"`
	PayoutAddress string `json:"payout_address" binding:"max=255"`
}

// AffiliateSummary is the affiliate's own dashboard
type AffiliateSummary struct {
	Affiliate       *models.Affiliate `json:"affiliate"`
	Referrals       int               `json:"referrals"`
	Conversions     int               `json:"conversions"`
	PendingAmount   decimal.Decimal   `json:"pending_amount"`
	ApprovedAmount  decimal.Decimal   `json:"approved_amount"`
	PaidAmount      decimal.Decimal   `json:"paid_amount"`
	AvailableAmount decimal.Decimal   `json:"available_amount"`
	MinPayout       decimal.Decimal   `json:"min_payout"`
}

// Enroll makes the user an affiliate with a fresh referral code
func (s *ReferralService) Enroll(userID uint, req *EnrollRequest) (*models.Affiliate, error) {
	if _, err := s.affRepo.GetAffiliateByUserID(userID); err == nil {
		return nil, ErrAlreadyAffiliate
	} else if !errors.Is(err, repository.ErrAffiliateNotFound) {
		return nil, err
	}

	code, err := s.uniqueCode()
	if err != nil {
		return nil, err
	}

	affiliate := &models.Affiliate{
		UserID:         userID,
		Code:           code,
		CommissionRate: s.rate,
		PayoutMethod:   req.PayoutMethod,
		PayoutAddress:  strings.TrimSpace(req.PayoutAddress),
		Active:         true,
	}
	if err := s.affRepo.CreateAffiliate(affiliate); err != nil {
		return nil, err
	}

	s.logger.Info("affiliate enrolled", zap.Uint("user_id", userID), zap.String("code", code))
	return affiliate, nil
}

func (s *ReferralService) uniqueCode() (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code := keygen.ReferralCode()
		taken, err := s.affRepo.CodeExists(code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", errors.New("could not allocate a unique referral code")
}

// UpdatePayoutDetails changes where the affiliate is paid
func (s *ReferralService) UpdatePayoutDetails(userID uint, req *EnrollRequest) (*models.Affiliate, error) {
	affiliate, err := s.affRepo.GetAffiliateByUserID(userID)
	if err != nil {
		return nil, err
	}
	affiliate.PayoutMethod = req.PayoutMethod
	affiliate.PayoutAddress = strings.TrimSpace(req.PayoutAddress)
	if err := s.affRepo.UpdateAffiliate(affiliate); err != nil {
		return nil, err
	}
	return affiliate, nil
}

// Summary returns the affiliate's referral and earnings totals
func (s *ReferralService) Summary(userID uint) (*AffiliateSummary, error) {
	affiliate, err := s.affRepo.GetAffiliateByUserID(userID)
	if err != nil {
		return nil, err
	}

	referrals, err := s.affRepo.ListReferrals(affiliate.ID)
	if err != nil {
		return nil, err
	}
	conversions := 0
	for _, r := range referrals {
		if r.ConvertedAt != nil {
			conversions++
		}
	}

	sum := map[models.LedgerStatus]decimal.Decimal{}
	for _, status := range []models.LedgerStatus{models.LedgerPending, models.LedgerApproved, models.LedgerPaid} {
		v, err := s.affRepo.SumCommissions(affiliate.ID, status)
		if err != nil {
			return nil, err
		}
		sum[status] = v
	}

	available, err := s.available(affiliate.ID)
	if err != nil {
		return nil, err
	}

	return &AffiliateSummary{
		Affiliate:       affiliate,
		Referrals:       len(referrals),
		Conversions:     conversions,
		PendingAmount:   sum[models.LedgerPending],
		ApprovedAmount:  sum[models.LedgerApproved],
		PaidAmount:      sum[models.LedgerPaid],
		AvailableAmount: available,
		MinPayout:       s.minPayout,
	}, nil
}

func (s *ReferralService) available(affiliateID uint) (decimal.Decimal, error) {
	unclaimed, err := s.affRepo.UnclaimedApproved(affiliateID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, c := range unclaimed {
		total = total.Add(c.Amount)
	}
	return total, nil
}

// AttachReferral records that userID signed up with code
func (s *ReferralService) AttachReferral(userID uint, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil
	}

	affiliate, err := s.affRepo.GetAffiliateByCode(code)
	if err != nil {
		if errors.Is(err, repository.ErrAffiliateNotFound) {
			return ErrInvalidReferralCode
		}
		return err
	}
	if affiliate.UserID == userID {
		return ErrSelfReferral
	}

	referral := &models.Referral{
		AffiliateID:    affiliate.ID,
		ReferredUserID: userID,
		Code:           code,
	}
	if err := s.affRepo.CreateReferral(referral); err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	user.ReferredByID = &affiliate.UserID
	return s.userRepo.Update(user)
}

// ValidateCode checks a referral code before sign-up
func (s *ReferralService) ValidateCode(code string) error {
	_, err := s.affRepo.GetAffiliateByCode(strings.ToUpper(strings.TrimSpace(code)))
	if errors.Is(err, repository.ErrAffiliateNotFound) {
		return ErrInvalidReferralCode
	}
	return err
}

// RecordPaymentCommission creates the pending commission owed for a
// successful payment by a referred user. Payments by users without a
// referral are ignored; replays of the same payment are no-ops.
func (s *ReferralService) RecordPaymentCommission(payment *models.PaymentTransaction) (*models.Commission, error) {
	referral, err := s.affRepo.GetReferralByUserID(payment.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrReferralNotFound) {
			return nil, nil
		}
		return nil, err
	}

	affiliate, err := s.affRepo.GetAffiliateByID(referral.AffiliateID)
	if err != nil {
		return nil, err
	}
	if !affiliate.Active {
		return nil, nil
	}

	commission := &models.Commission{
		AffiliateID:   affiliate.ID,
		ReferralID:    referral.ID,
		PaymentID:     payment.ID,
		PaymentAmount: payment.Amount,
		Rate:          affiliate.CommissionRate,
		Amount:        payment.Amount.Mul(affiliate.CommissionRate).Round(2),
		Currency:      payment.Currency,
		Status:        models.LedgerPending,
	}
	created, err := s.affRepo.RecordCommission(commission, referral)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, nil
	}

	s.metrics.RecordCommission(string(models.LedgerPending))
	s.logger.Info("commission recorded",
		zap.Uint("affiliate_id", affiliate.ID),
		zap.Uint("payment_id", payment.ID),
		zap.String("amount", commission.Amount.String()))
	return commission, nil
}

// MyCommissions lists the affiliate's own commissions
func (s *ReferralService) MyCommissions(userID uint, status models.LedgerStatus, page, pageSize int) ([]models.Commission, int64, error) {
	affiliate, err := s.affRepo.GetAffiliateByUserID(userID)
	if err != nil {
		return nil, 0, err
	}
	return s.affRepo.ListCommissions(affiliate.ID, status, page, pageSize)
}

// ListCommissions lists commissions across affiliates for admins
func (s *ReferralService) ListCommissions(affiliateID uint, status models.LedgerStatus, page, pageSize int) ([]models.Commission, int64, error) {
	return s.affRepo.ListCommissions(affiliateID, status, page, pageSize)
}

// ReviewRequest moves a commission or payout to a new status
type ReviewRequest struct {
	Status        models.LedgerStatus `json:"status" binding:"required,oneof=approved rejected paid"`
	Note          string              `json:"note" binding:"max=255"`
	TransactionID string              `json:"transaction_id" binding:"max=100"`
}

// ReviewCommission applies an admin decision to a commission. Commissions
// claimed by a payout request follow the payout instead.
func (s *ReferralService) ReviewCommission(commissionID uint, req *ReviewRequest) (*models.Commission, error) {
	commission, err := s.affRepo.GetCommission(commissionID)
	if err != nil {
		return nil, err
	}
	if commission.PayoutRequestID != nil {
		return nil, ErrCommissionClaimed
	}
	if !commission.Status.CanTransition(req.Status) {
		return nil, ErrInvalidTransition
	}

	now := s.now()
	commission.Status = req.Status
	commission.ReviewedAt = &now
	if req.Note != "" {
		commission.Note = req.Note
	}
	if err := s.affRepo.UpdateCommission(commission); err != nil {
		return nil, err
	}

	s.metrics.RecordCommission(string(req.Status))
	return commission, nil
}

// PayoutRequestBody asks for approved commissions to be paid out. Without an
// amount the whole available balance is requested.
type PayoutRequestBody struct {
	Amount  *decimal.Decimal `json:"amount"`
	Method  string           `json:"method" binding:"omitempty,oneof=paystack usdt_trc20 usdt_erc20 btc bank_transfer"`
	Address string           `json:"address" binding:"max=255"`
}

// RequestPayout claims approved, unclaimed commissions oldest first up to the
// requested amount. Commissions are claimed whole, so the payout amount is
// the sum actually claimed.
func (s *ReferralService) RequestPayout(userID uint, req *PayoutRequestBody) (*models.PayoutRequest, error) {
	affiliate, err := s.affRepo.GetAffiliateByUserID(userID)
	if err != nil {
		return nil, err
	}

	method, address := req.Method, strings.TrimSpace(req.Address)
	if method == "" {
		method = affiliate.PayoutMethod
	}
	if address == "" {
		address = affiliate.PayoutAddress
	}
	if method == "" || address == "" {
		return nil, ErrPayoutMethodRequired
	}

	unclaimed, err := s.affRepo.UnclaimedApproved(affiliate.ID)
	if err != nil {
		return nil, err
	}
	balance := decimal.Zero
	for _, c := range unclaimed {
		balance = balance.Add(c.Amount)
	}

	target := balance
	if req.Amount != nil {
		target = *req.Amount
	}
	if target.LessThan(s.minPayout) || !target.IsPositive() {
		return nil, ErrPayoutBelowMinimum
	}
	if target.GreaterThan(balance) {
		return nil, ErrInsufficientBalance
	}

	claimed := decimal.Zero
	ids := make([]uint, 0, len(unclaimed))
	currency := ""
	for _, c := range unclaimed {
		if claimed.Add(c.Amount).GreaterThan(target) {
			break
		}
		claimed = claimed.Add(c.Amount)
		ids = append(ids, c.ID)
		currency = c.Currency
	}
	if claimed.LessThan(s.minPayout) || len(ids) == 0 {
		return nil, ErrPayoutBelowMinimum
	}

	payout := &models.PayoutRequest{
		AffiliateID: affiliate.ID,
		Amount:      claimed,
		Currency:    currency,
		Method:      method,
		Address:     address,
		Status:      models.LedgerPending,
	}
	if err := s.affRepo.CreatePayout(payout, ids); err != nil {
		if errors.Is(err, repository.ErrCommissionsClaimed) {
			return nil, ErrInsufficientBalance
		}
		return nil, err
	}

	s.logger.Info("payout requested",
		zap.Uint("affiliate_id", affiliate.ID),
		zap.String("amount", claimed.String()),
		zap.Int("commissions", len(ids)))
	return payout, nil
}

// MyPayouts lists the affiliate's payout requests
func (s *ReferralService) MyPayouts(userID uint) ([]models.PayoutRequest, error) {
	affiliate, err := s.affRepo.GetAffiliateByUserID(userID)
	if err != nil {
		return nil, err
	}
	return s.affRepo.ListPayouts(affiliate.ID, "")
}

// ListPayouts lists payout requests for admins
func (s *ReferralService) ListPayouts(affiliateID uint, status models.LedgerStatus) ([]models.PayoutRequest, error) {
	return s.affRepo.ListPayouts(affiliateID, status)
}

// ReviewPayout applies an admin decision to a payout request. Paying marks
// its commissions paid; rejecting releases them to the balance again.
func (s *ReferralService) ReviewPayout(payoutID uint, req *ReviewRequest) (*models.PayoutRequest, error) {
	now := s.now()
	return s.affRepo.UpdatePayoutWithLock(payoutID, func(p *models.PayoutRequest) error {
		if !p.Status.CanTransition(req.Status) {
			return ErrInvalidTransition
		}
		p.Status = req.Status
		p.ReviewedAt = &now
		if req.Status == models.LedgerPaid {
			p.PaidAt = &now
			p.TransactionID = req.TransactionID
		}
		if req.Note != "" {
			p.Note = req.Note
		}
		return nil
	})
}
