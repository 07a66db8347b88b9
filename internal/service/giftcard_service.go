package service

import (
	"context"
	"strings"
	"time"

	"pos-service/internal/billing"
	"pos-service/internal/models"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GiftCardService issues gift cards and looks them up
type GiftCardService struct {
	store    store.Transactor
	settings Settings
	logger   *zap.Logger
	now      func() time.Time
}

// NewGiftCardService creates a new gift card service
func NewGiftCardService(store store.Transactor, settings Settings) *GiftCardService {
	return &GiftCardService{
		store:    store,
		settings: settings,
		logger:   util.GetLogger(),
		now:      time.Now,
	}
}

// IssueGiftCardRequest represents a new gift card
type IssueGiftCardRequest struct {
	BusinessID   int64           `json:"business_id" binding:"required"`
	Code         string          `json:"code"`
	InitialValue decimal.Decimal `json:"initial_value"`
	Currency     string          `json:"currency"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
}

// IssueGiftCard creates a VALID card holding its full initial value. A code
// is generated when none is given.
func (s *GiftCardService) IssueGiftCard(ctx context.Context, req *IssueGiftCardRequest) (*models.GiftCard, error) {
	ctx, span := util.StartSpan(ctx, "GiftCardService.IssueGiftCard")
	defer span.End()

	const op = "GiftCardService.IssueGiftCard"

	if err := billing.ValidateAmount(op, "initial value", req.InitialValue); err != nil {
		return nil, err
	}

	now := s.now()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, billing.Validation(op, "expiry %s is not in the future", req.ExpiresAt.Format(time.RFC3339))
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:16])
	}
	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = s.settings.DefaultCurrency
	}

	card := &models.GiftCard{
		BusinessID:     req.BusinessID,
		Code:           code,
		InitialValue:   req.InitialValue,
		CurrentBalance: req.InitialValue,
		Currency:       currency,
		IssuedAt:       now,
		ExpiresAt:      req.ExpiresAt,
		Status:         models.GiftCardStatusValid,
	}

	if err := s.store.CreateGiftCard(ctx, card); err != nil {
		return nil, wrapTx("issue gift card", err)
	}

	s.logger.Info("Gift card issued",
		zap.Int64("gift_card_id", card.ID),
		zap.Int64("business_id", card.BusinessID),
		zap.String("initial_value", card.InitialValue.String()))

	return card, nil
}

// GetGiftCardByCode looks a card up by its code
func (s *GiftCardService) GetGiftCardByCode(ctx context.Context, code string) (*models.GiftCard, error) {
	ctx, span := util.StartSpan(ctx, "GiftCardService.GetGiftCardByCode")
	defer span.End()

	card, err := s.store.GetGiftCardByCode(ctx, code)
	if err != nil {
		return nil, storeError("GiftCardService.GetGiftCardByCode", err)
	}
	return card, nil
}
