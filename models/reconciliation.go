package models

import (
	"context"

	"github.com/fintally/ledger_backend/config"
	"github.com/fintally/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

type StatusTotal struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type ReconciliationSummary struct {
	AccountId   int         `json:"account_id"`
	AccountName string      `json:"account_name"`
	Uncleared   StatusTotal `json:"uncleared"`
	Cleared     StatusTotal `json:"cleared"`
	Reconciled  StatusTotal `json:"reconciled"`
	Overall     StatusTotal `json:"overall"`
}

// GetReconciliationSummary groups an account's transactions by clearing
// status and sums their amounts (magnitudes, not balance-signed deltas).
// Read-only; transactions referencing the account as transfer destination
// count too, since they appear on its statement. Totals are summed with
// decimal arithmetic in Go — SQL SUM would come back as a float from some
// drivers and drift on the 4dp column.
func GetReconciliationSummary(ctx context.Context, accountId int) (*ReconciliationSummary, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, &utils.AuthorizationError{Message: "organization id is required"}
	}

	account, err := utils.FetchModel[Account](ctx, organizationId, accountId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var rows []struct {
		Status TransactionStatus
		Amount decimal.Decimal
	}
	err = db.WithContext(ctx).Model(&Transaction{}).
		Select("status", "amount").
		Where("organization_id = ?", organizationId).
		Where("account_id = ? OR destination_account_id = ?", accountId, accountId).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	summary := &ReconciliationSummary{
		AccountId:   account.ID,
		AccountName: account.AccountName,
	}
	for _, row := range rows {
		var bucket *StatusTotal
		switch row.Status {
		case TransactionStatusCleared:
			bucket = &summary.Cleared
		case TransactionStatusReconciled:
			bucket = &summary.Reconciled
		default:
			bucket = &summary.Uncleared
		}
		bucket.Count++
		bucket.Total = bucket.Total.Add(row.Amount)
		summary.Overall.Count++
		summary.Overall.Total = summary.Overall.Total.Add(row.Amount)
	}

	return summary, nil
}
