package models

import (
	"context"
	"time"

	"github.com/fintally/ledger_backend/config"
	"github.com/fintally/ledger_backend/utils"
)

// TransactionStatusHistory is an append-only record of one lifecycle
// transition; written in the same gorm transaction as the state change.
type TransactionStatusHistory struct {
	ID            int               `gorm:"primary_key" json:"id"`
	TransactionId int               `gorm:"index;not null" json:"transaction_id"`
	FromStatus    TransactionStatus `gorm:"size:20;not null" json:"from_status"`
	ToStatus      TransactionStatus `gorm:"size:20;not null" json:"to_status"`
	ChangedById   int               `gorm:"index;not null" json:"changed_by_id"`
	Notes         string            `gorm:"type:text" json:"notes"`
	ChangedAt     time.Time         `gorm:"autoCreateTime;index" json:"changed_at"`
}

func (h TransactionStatusHistory) GetId() int {
	return h.ID
}

type StatusChangeInput struct {
	Status TransactionStatus `json:"status" validate:"required"`
	Notes  string            `json:"notes"`
}

type BulkStatusChangeInput struct {
	TransactionIds []int             `json:"transaction_ids" validate:"required,min=1"`
	Status         TransactionStatus `json:"status" validate:"required"`
	Notes          string            `json:"notes"`
}

type BulkStatusFailure struct {
	TransactionId int    `json:"transaction_id"`
	Reason        string `json:"reason"`
}

type BulkStatusChangeResult struct {
	Successful []int               `json:"successful"`
	Failed     []BulkStatusFailure `json:"failed"`
}

// The lifecycle admits exactly three moves: Uncleared <-> Cleared and
// Cleared -> Reconciled. Everything else, including X -> X, is rejected.
var allowedStatusTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusUncleared:  {TransactionStatusCleared},
	TransactionStatusCleared:    {TransactionStatusUncleared, TransactionStatusReconciled},
	TransactionStatusReconciled: {},
}

func validateStatusTransition(from TransactionStatus, to TransactionStatus) error {
	for _, allowed := range allowedStatusTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return &utils.InvalidTransitionError{From: string(from), To: string(to)}
}

// ChangeTransactionStatus moves a transaction through the clearing
// lifecycle. Status changes never touch the balance pipeline or the
// version counter; they share only the reconciled-immutability guard,
// expressed here as "Reconciled has no outgoing transitions".
func ChangeTransactionStatus(ctx context.Context, id int, input *StatusChangeInput) (*TransactionStatusHistory, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, &utils.AuthorizationError{Message: "organization id is required"}
	}
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, &utils.AuthorizationError{Message: "user id is required"}
	}

	if !input.Status.IsValid() {
		return nil, utils.NewValidationError("invalid transaction status %q", input.Status)
	}

	db := config.GetDB()
	tx := db.Begin()

	var transaction Transaction
	err := tx.WithContext(ctx).
		Where("organization_id = ?", organizationId).
		First(&transaction, id).Error
	if err != nil {
		tx.Rollback()
		return nil, utils.NewNotFoundError("Transaction")
	}

	if err := validateStatusTransition(transaction.Status, input.Status); err != nil {
		tx.Rollback()
		return nil, err
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"Status": input.Status,
	}
	switch input.Status {
	case TransactionStatusCleared:
		if transaction.ClearedAt == nil {
			updates["ClearedAt"] = now
		}
	case TransactionStatusReconciled:
		updates["ReconciledAt"] = now
		if transaction.ClearedAt == nil {
			updates["ClearedAt"] = now
		}
	case TransactionStatusUncleared:
		updates["ClearedAt"] = nil
		updates["ReconciledAt"] = nil
	}

	err = tx.WithContext(ctx).Model(&Transaction{}).Where("id = ?", id).Updates(updates).Error
	if err != nil {
		tx.Rollback()
		config.LogError(config.GetLogger(), "status.go", "ChangeTransactionStatus", "update status", id, err)
		return nil, err
	}

	history := TransactionStatusHistory{
		TransactionId: id,
		FromStatus:    transaction.Status,
		ToStatus:      input.Status,
		ChangedById:   userId,
		Notes:         input.Notes,
	}
	if err := tx.WithContext(ctx).Create(&history).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &history, nil
}

// BulkChangeTransactionStatus processes each id independently: per-item
// failures are collected, never abort the batch, and each item's
// status+history write commits on its own.
func BulkChangeTransactionStatus(ctx context.Context, accountId int, input *BulkStatusChangeInput) (*BulkStatusChangeResult, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, &utils.AuthorizationError{Message: "organization id is required"}
	}

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[Account](ctx, organizationId, accountId); err != nil {
		return nil, err
	}

	result := &BulkStatusChangeResult{
		Successful: []int{},
		Failed:     []BulkStatusFailure{},
	}

	for _, id := range input.TransactionIds {
		count, err := utils.ResourceCountWhere[Transaction](ctx, organizationId,
			"id = ? AND (account_id = ? OR destination_account_id = ?)", id, accountId, accountId)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			result.Failed = append(result.Failed, BulkStatusFailure{
				TransactionId: id,
				Reason:        "transaction not found for account",
			})
			continue
		}

		_, err = ChangeTransactionStatus(ctx, id, &StatusChangeInput{
			Status: input.Status,
			Notes:  input.Notes,
		})
		if err != nil {
			result.Failed = append(result.Failed, BulkStatusFailure{
				TransactionId: id,
				Reason:        err.Error(),
			})
			continue
		}
		result.Successful = append(result.Successful, id)
	}

	return result, nil
}

// GetStatusHistory returns the transition trail newest first.
func GetStatusHistory(ctx context.Context, transactionId int) ([]*TransactionStatusHistory, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, &utils.AuthorizationError{Message: "organization id is required"}
	}

	if err := utils.ValidateResourceId[Transaction](ctx, organizationId, transactionId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*TransactionStatusHistory
	err := db.WithContext(ctx).Where("transaction_id = ?", transactionId).
		Order("changed_at DESC, id DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
