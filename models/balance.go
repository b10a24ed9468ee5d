package models

import (
	"context"

	"github.com/fintally/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BalanceDelta is the signed effect one transaction has on its account
// balances. DestinationDelta is zero unless the transaction is a transfer.
type BalanceDelta struct {
	SourceDelta      decimal.Decimal
	DestinationDelta decimal.Decimal
}

func (d BalanceDelta) Negate() BalanceDelta {
	return BalanceDelta{
		SourceDelta:      d.SourceDelta.Neg(),
		DestinationDelta: d.DestinationDelta.Neg(),
	}
}

// computeDeltas turns (kind, amount, fee, applyFee) into signed balance
// adjustments. Amount and fee are non-negative magnitudes; the fee only
// ever hits the source account.
//
//	Income:   source +amount - fee
//	Expense:  source -amount - fee
//	Transfer: source -amount - fee, destination +amount
func computeDeltas(kind TransactionType, amount decimal.Decimal, fee decimal.Decimal, applyFee bool) BalanceDelta {
	effectiveFee := decimal.Zero
	if applyFee {
		effectiveFee = fee
	}

	var delta BalanceDelta
	switch kind {
	case TransactionTypeIncome:
		delta.SourceDelta = amount.Sub(effectiveFee)
	case TransactionTypeTransfer:
		delta.SourceDelta = amount.Neg().Sub(effectiveFee)
		delta.DestinationDelta = amount
	default: // Expense
		delta.SourceDelta = amount.Neg().Sub(effectiveFee)
	}
	return delta
}

// transactionDeltas computes the deltas a stored transaction applies,
// from its own persisted fields. The fee magnitude is resolved and stored
// at write time, so reversing an old state never depends on the account's
// current fee configuration.
func transactionDeltas(t *Transaction) BalanceDelta {
	fee := decimal.Zero
	if t.FeeAmount != nil {
		fee = *t.FeeAmount
	}
	return computeDeltas(t.TransactionType, t.Amount, fee, t.ApplyFee)
}

// applyBalanceDelta moves one account's running balance inside the caller's
// gorm transaction. The new balance is computed with decimal arithmetic in
// Go rather than SQL expression math, so repeated reversal/reapply cycles
// never drift.
func applyBalanceDelta(ctx context.Context, tx *gorm.DB, organizationId string, accountId int, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}

	var account Account
	err := tx.WithContext(ctx).
		Where("organization_id = ?", organizationId).
		First(&account, accountId).Error
	if err != nil {
		return utils.NewNotFoundError("Account")
	}

	newBalance := account.Balance.Add(delta)
	return tx.WithContext(ctx).Model(&Account{}).
		Where("id = ?", accountId).
		Update("balance", newBalance).Error
}

// applyTransactionEffect applies (or, negated, reverses) a transaction's
// full balance effect: source account always, destination account when the
// transaction carries one.
func applyTransactionEffect(ctx context.Context, tx *gorm.DB, t *Transaction, delta BalanceDelta) error {
	if err := applyBalanceDelta(ctx, tx, t.OrganizationId, t.AccountId, delta.SourceDelta); err != nil {
		return err
	}
	if t.DestinationAccountId != nil {
		if err := applyBalanceDelta(ctx, tx, t.OrganizationId, *t.DestinationAccountId, delta.DestinationDelta); err != nil {
			return err
		}
	}
	return nil
}
