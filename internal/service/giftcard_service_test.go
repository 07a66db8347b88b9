package service

import (
	"context"
	"testing"
	"time"

	"pos-service/internal/billing"
	"pos-service/internal/models"
	"pos-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueGiftCard(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	expires := testNow.AddDate(1, 0, 0)

	card, err := f.giftCards.IssueGiftCard(ctx, &IssueGiftCardRequest{
		BusinessID:   1,
		InitialValue: dec("75.00"),
		Currency:     "eur",
		ExpiresAt:    &expires,
	})
	require.NoError(t, err)

	assert.Len(t, card.Code, 16)
	assert.Equal(t, "EUR", card.Currency)
	assert.Equal(t, models.GiftCardStatusValid, card.Status)
	assert.True(t, card.CurrentBalance.Equal(card.InitialValue))
	assert.Equal(t, testNow, card.IssuedAt)

	found, err := f.giftCards.GetGiftCardByCode(ctx, card.Code)
	require.NoError(t, err)
	assert.Equal(t, card.ID, found.ID)
}

func TestIssueGiftCardDefaults(t *testing.T) {
	f := newFixture()

	card, err := f.giftCards.IssueGiftCard(context.Background(), &IssueGiftCardRequest{
		BusinessID:   1,
		Code:         " WELCOME10 ",
		InitialValue: dec("10"),
	})
	require.NoError(t, err)
	assert.Equal(t, "WELCOME10", card.Code)
	assert.Equal(t, "USD", card.Currency)
	assert.Nil(t, card.ExpiresAt)
}

func TestIssueGiftCardRejects(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	past := testNow.Add(-time.Minute)

	_, err := f.giftCards.IssueGiftCard(ctx, &IssueGiftCardRequest{BusinessID: 1, InitialValue: dec("0")})
	assert.ErrorIs(t, err, billing.ErrValidation)

	_, err = f.giftCards.IssueGiftCard(ctx, &IssueGiftCardRequest{BusinessID: 1, InitialValue: dec("-5")})
	assert.ErrorIs(t, err, billing.ErrValidation)

	_, err = f.giftCards.IssueGiftCard(ctx, &IssueGiftCardRequest{BusinessID: 1, InitialValue: dec("10.005")})
	assert.ErrorIs(t, err, billing.ErrValidation)

	_, err = f.giftCards.IssueGiftCard(ctx, &IssueGiftCardRequest{BusinessID: 1, InitialValue: dec("5"), ExpiresAt: &past})
	assert.ErrorIs(t, err, billing.ErrValidation)

	_, err = f.giftCards.IssueGiftCard(ctx, &IssueGiftCardRequest{BusinessID: 1, Code: "DUP", InitialValue: dec("5")})
	require.NoError(t, err)
	_, err = f.giftCards.IssueGiftCard(ctx, &IssueGiftCardRequest{BusinessID: 1, Code: "DUP", InitialValue: dec("5")})
	assert.ErrorIs(t, err, store.ErrConflict)

	assert.Len(t, f.store.cards, 1)
}

func TestGetGiftCardByCodeMissing(t *testing.T) {
	f := newFixture()

	_, err := f.giftCards.GetGiftCardByCode(context.Background(), "NOPE")
	assert.ErrorIs(t, err, billing.ErrNotFound)
}
