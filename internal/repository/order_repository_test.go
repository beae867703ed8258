package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/gigip2p-bot/internal/order"
)

func testOrder() *order.Order {
	return &order.Order{
		ID:              "4b3f0a52-5b9e-4bd0-a5f4-39c7e3d1e2a1",
		UserID:          42,
		Action:          order.Sell,
		Token:           "TON",
		Amount:          50,
		Price:           5,
		Fee:             0.15,
		QuotedFiatValue: 249.85,
		Fiat:            "NGN",
		Recipient:       "UQCMbQomO3XD1FSt7pyfjqj2jBRzyg23myKDtCky_CedKpEH",
		Tag:             "gigi-p2p",
		SigningURL:      "https://example.com/sign.html?amount=50000000000",
		CreatedAt:       time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestOrderRepository_SaveOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	o := testOrder()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs(o.ID, o.UserID, "sell", "TON", "", o.Amount, o.Price, o.Fee, o.QuotedFiatValue,
			"NGN", o.Recipient, o.Tag, o.SigningURL, "", o.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewOrderRepository(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, repo.SaveOrder(context.Background(), o))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_SaveOrderFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).WillReturnError(errors.New("connection reset"))

	repo := NewOrderRepository(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	err = repo.SaveOrder(context.Background(), testOrder())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert order")
	assert.NoError(t, mock.ExpectationsWereMet())
}
