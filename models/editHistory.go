package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fintally/ledger_backend/config"
	"github.com/fintally/ledger_backend/utils"
	"gorm.io/gorm"
)

// TransactionEditHistory is an append-only audit row: the field-level diff
// of one edit plus a full snapshot of the state the edit replaced.
type TransactionEditHistory struct {
	ID            int       `gorm:"primary_key" json:"id"`
	TransactionId int       `gorm:"index;not null" json:"transaction_id"`
	EditedById    int       `gorm:"index;not null" json:"edited_by_id"`
	EditType      EditType  `gorm:"size:20;not null" json:"edit_type"`
	Changes       string    `gorm:"type:text" json:"changes"`
	PreviousState string    `gorm:"type:text" json:"previous_state"`
	EditedAt      time.Time `gorm:"autoCreateTime;index" json:"edited_at"`
}

func (h TransactionEditHistory) GetId() int {
	return h.ID
}

type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
}

// DecodeChanges unpacks the persisted diff.
func (h TransactionEditHistory) DecodeChanges() ([]FieldChange, error) {
	if h.Changes == "" {
		return nil, nil
	}
	var changes []FieldChange
	err := json.Unmarshal([]byte(h.Changes), &changes)
	return changes, err
}

type splitSnapshot struct {
	Amount     json.Number `json:"amount"`
	CategoryId int         `json:"category_id"`
}

func snapshotSplits(splits []TransactionSplit) []splitSnapshot {
	out := make([]splitSnapshot, 0, len(splits))
	for _, s := range splits {
		out = append(out, splitSnapshot{
			Amount:     json.Number(s.Amount.String()),
			CategoryId: s.CategoryId,
		})
	}
	return out
}

func splitsEqual(old []TransactionSplit, next []TransactionSplit) bool {
	if len(old) != len(next) {
		return false
	}
	for i := range old {
		if old[i].CategoryId != next[i].CategoryId || !old[i].Amount.Equal(next[i].Amount) {
			return false
		}
	}
	return true
}

func derefOrNil[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// detectChanges diffs only the fields the patch actually carries: an unset
// field is "no change requested", an explicit null is a real comparable
// value. Dates compare by instant, never by formatting. Split differences
// collapse into a single "splits" change holding both full arrays.
func detectChanges(existing *Transaction, patch *TransactionPatch, resolvedNewSplits []TransactionSplit) []FieldChange {
	var changes []FieldChange

	if patch.Memo.Set {
		oldMemo := derefOrNil(existing.Memo)
		newMemo := derefOrNil(patch.Memo.Ptr())
		if oldMemo != newMemo {
			changes = append(changes, FieldChange{Field: "memo", OldValue: oldMemo, NewValue: newMemo})
		}
	}
	if patch.Amount != nil && !existing.Amount.Equal(*patch.Amount) {
		changes = append(changes, FieldChange{
			Field:    "amount",
			OldValue: json.Number(existing.Amount.String()),
			NewValue: json.Number(patch.Amount.String()),
		})
	}
	if patch.TransactionType != nil && existing.TransactionType != *patch.TransactionType {
		changes = append(changes, FieldChange{
			Field:    "transactionType",
			OldValue: existing.TransactionType,
			NewValue: *patch.TransactionType,
		})
	}
	if patch.TransactionDate != nil && !existing.TransactionDate.Equal(*patch.TransactionDate) {
		changes = append(changes, FieldChange{
			Field:    "date",
			OldValue: existing.TransactionDate.UTC().Format(time.RFC3339Nano),
			NewValue: patch.TransactionDate.UTC().Format(time.RFC3339Nano),
		})
	}
	if patch.VendorId.Set {
		oldVendor := derefOrNil(existing.VendorId)
		newVendor := derefOrNil(patch.VendorId.Ptr())
		if oldVendor != newVendor {
			changes = append(changes, FieldChange{Field: "vendorId", OldValue: oldVendor, NewValue: newVendor})
		}
	}
	if patch.DestinationAccountId.Set {
		oldDestination := derefOrNil(existing.DestinationAccountId)
		newDestination := derefOrNil(patch.DestinationAccountId.Ptr())
		if oldDestination != newDestination {
			changes = append(changes, FieldChange{Field: "destinationAccountId", OldValue: oldDestination, NewValue: newDestination})
		}
	}
	if patch.Splits != nil && !splitsEqual(existing.Splits, resolvedNewSplits) {
		changes = append(changes, FieldChange{
			Field:    "splits",
			OldValue: snapshotSplits(existing.Splits),
			NewValue: snapshotSplits(resolvedNewSplits),
		})
	}

	return changes
}

// buildPreviousState captures a decimal-safe snapshot of the pre-mutation
// transaction: monetary fields as plain numbers, dates as ISO instants.
// It is stored even when the change set is empty, so "state as of version
// N" can always be reconstructed from the history trail.
func buildPreviousState(t *Transaction) map[string]any {
	state := map[string]any{
		"account_id":             t.AccountId,
		"destination_account_id": derefOrNil(t.DestinationAccountId),
		"amount":                 json.Number(t.Amount.String()),
		"fee_amount":             nil,
		"transaction_type":       t.TransactionType,
		"apply_fee":              t.ApplyFee,
		"transaction_date":       t.TransactionDate.UTC().Format(time.RFC3339Nano),
		"memo":                   derefOrNil(t.Memo),
		"vendor_id":              derefOrNil(t.VendorId),
		"status":                 t.Status,
		"version":                t.Version,
		"splits":                 snapshotSplits(t.Splits),
	}
	if t.FeeAmount != nil {
		state["fee_amount"] = json.Number(t.FeeAmount.String())
	}
	return state
}

// createTransactionEditHistory persists one audit row inside the caller's
// gorm transaction, so the trail commits with the edit or not at all.
func createTransactionEditHistory(ctx context.Context, tx *gorm.DB, transactionId int, editedById int, editType EditType, changes []FieldChange, previousState map[string]any) error {
	changesJSON, err := json.Marshal(changes)
	if err != nil {
		return err
	}
	stateJSON, err := json.Marshal(previousState)
	if err != nil {
		return err
	}

	entry := TransactionEditHistory{
		TransactionId: transactionId,
		EditedById:    editedById,
		EditType:      editType,
		Changes:       string(changesJSON),
		PreviousState: string(stateJSON),
	}
	return tx.WithContext(ctx).Create(&entry).Error
}

// GetEditHistory returns the audit trail newest first.
func GetEditHistory(ctx context.Context, transactionId int) ([]*TransactionEditHistory, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, &utils.AuthorizationError{Message: "organization id is required"}
	}

	// Organization scoping rides on the transaction row.
	if err := utils.ValidateResourceId[Transaction](ctx, organizationId, transactionId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*TransactionEditHistory
	err := db.WithContext(ctx).Where("transaction_id = ?", transactionId).
		Order("edited_at DESC, id DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
