package models

import (
	"context"
	"time"

	"github.com/fintally/ledger_backend/config"
	"github.com/fintally/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID                   int                `gorm:"primary_key" json:"id"`
	OrganizationId       string             `gorm:"index;not null" json:"organization_id"`
	AccountId            int                `gorm:"index;not null" json:"account_id"`
	DestinationAccountId *int               `gorm:"index" json:"destination_account_id"`
	Amount               decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"amount"`
	FeeAmount            *decimal.Decimal   `gorm:"type:decimal(20,4)" json:"fee_amount"`
	TransactionType      TransactionType    `gorm:"size:20;not null" json:"transaction_type"`
	ApplyFee             bool               `gorm:"not null;default:false" json:"apply_fee"`
	TransactionDate      time.Time          `gorm:"index;not null" json:"transaction_date"`
	Memo                 *string            `gorm:"type:text" json:"memo"`
	VendorId             *int               `gorm:"index" json:"vendor_id"`
	Status               TransactionStatus  `gorm:"size:20;not null;default:'Uncleared'" json:"status"`
	ClearedAt            *time.Time         `json:"cleared_at"`
	ReconciledAt         *time.Time         `json:"reconciled_at"`
	Version              int                `gorm:"not null;default:1" json:"version"`
	CreatedById          int                `gorm:"index;not null" json:"created_by_id"`
	LastModifiedById     *int               `gorm:"index" json:"last_modified_by_id"`
	Splits               []TransactionSplit `gorm:"foreignKey:TransactionId" json:"splits"`
	CreatedAt            time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t Transaction) GetId() int {
	return t.ID
}

// TransactionSplit attributes a portion of the amount to a category. The
// engine does not enforce sum(splits) == amount; that is the caller's
// validation. Splits are payload here, diffed for edit history.
type TransactionSplit struct {
	ID            int             `gorm:"primary_key" json:"id"`
	TransactionId int             `gorm:"index;not null" json:"transaction_id"`
	CategoryId    int             `gorm:"index;not null" json:"category_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Memo          *string         `gorm:"type:text" json:"memo"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s TransactionSplit) GetId() int {
	return s.ID
}

type NewTransactionSplit struct {
	Category CategoryRef     `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Memo     *string         `json:"memo"`
}

type NewTransaction struct {
	AccountId            int                    `json:"account_id" validate:"required"`
	TransactionType      TransactionType        `json:"transaction_type" validate:"required"`
	Amount               decimal.Decimal        `json:"amount"`
	FeeAmount            *decimal.Decimal       `json:"fee_amount"`
	ApplyFee             bool                   `json:"apply_fee"`
	DestinationAccountId *int                   `json:"destination_account_id"`
	VendorId             *int                   `json:"vendor_id"`
	TransactionDate      time.Time              `json:"transaction_date" validate:"required"`
	Memo                 *string                `json:"memo"`
	Splits               []*NewTransactionSplit `json:"splits"`
}

// TransactionPatch carries a partial update. A nil/unset field means "no
// change requested"; Optional fields distinguish that from an explicit null.
type TransactionPatch struct {
	Amount               *decimal.Decimal          `json:"amount"`
	TransactionType      *TransactionType          `json:"transaction_type"`
	TransactionDate      *time.Time                `json:"transaction_date"`
	ApplyFee             *bool                     `json:"apply_fee"`
	FeeAmount            Optional[decimal.Decimal] `json:"fee_amount"`
	Memo                 Optional[string]          `json:"memo"`
	VendorId             Optional[int]             `json:"vendor_id"`
	DestinationAccountId Optional[int]             `json:"destination_account_id"`
	Splits               []*NewTransactionSplit    `json:"splits"`
}

// validateTransactionShape checks the assembled (post-patch) state, so
// create and update reject the same malformed shapes.
func validateTransactionShape(t *Transaction) error {
	if !t.TransactionType.IsValid() {
		return utils.NewValidationError("invalid transaction type %q", t.TransactionType)
	}
	if !t.Amount.IsPositive() {
		return utils.NewValidationError("amount must be a positive magnitude")
	}
	if t.FeeAmount != nil && t.FeeAmount.IsNegative() {
		return utils.NewValidationError("fee must not be negative")
	}
	if t.TransactionType == TransactionTypeTransfer {
		if t.DestinationAccountId == nil {
			return utils.NewValidationError("transfer requires a destination account")
		}
		if *t.DestinationAccountId == t.AccountId {
			return utils.NewValidationError("destination account must differ from the source account")
		}
	} else if t.DestinationAccountId != nil {
		return utils.NewValidationError("only transfers may set a destination account")
	}
	return nil
}

// resolveSplits validates split amounts and resolves every category
// reference through the category collaborator.
func resolveSplits(ctx context.Context, organizationId string, inputs []*NewTransactionSplit) ([]TransactionSplit, error) {
	splits := make([]TransactionSplit, 0, len(inputs))
	for _, item := range inputs {
		if !item.Amount.IsPositive() {
			return nil, utils.NewValidationError("split amount must be a positive magnitude")
		}
		categoryId, err := categoryResolver.Resolve(ctx, organizationId, item.Category)
		if err != nil {
			return nil, err
		}
		splits = append(splits, TransactionSplit{
			CategoryId: categoryId,
			Amount:     item.Amount,
			Memo:       item.Memo,
		})
	}
	return splits, nil
}

// resolveFee pins the fee magnitude that a fee-applying transaction will
// carry: the explicit fee when given, the source account's configured fee
// otherwise. Stored on the row so later reversals use the exact magnitude.
func resolveFee(explicit *decimal.Decimal, applyFee bool, source *Account) *decimal.Decimal {
	if explicit != nil {
		fee := *explicit
		return &fee
	}
	if applyFee {
		fee := source.TransactionFee
		return &fee
	}
	return nil
}

func CreateTransaction(ctx context.Context, input *NewTransaction) (*Transaction, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, &utils.AuthorizationError{Message: "organization id is required"}
	}
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, &utils.AuthorizationError{Message: "user id is required"}
	}

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}

	sourceAccount, err := utils.FetchModel[Account](ctx, organizationId, input.AccountId)
	if err != nil {
		return nil, err
	}

	transaction := Transaction{
		OrganizationId:       organizationId,
		AccountId:            input.AccountId,
		DestinationAccountId: input.DestinationAccountId,
		Amount:               input.Amount,
		FeeAmount:            resolveFee(input.FeeAmount, input.ApplyFee, sourceAccount),
		TransactionType:      input.TransactionType,
		ApplyFee:             input.ApplyFee,
		TransactionDate:      input.TransactionDate,
		Memo:                 input.Memo,
		VendorId:             input.VendorId,
		Status:               TransactionStatusUncleared,
		Version:              1,
		CreatedById:          userId,
	}

	if err := validateTransactionShape(&transaction); err != nil {
		return nil, err
	}
	if transaction.DestinationAccountId != nil {
		// An out-of-organization destination reads as not found; the
		// balance must stay untouched, so this check runs before any write.
		if err := utils.ValidateResourceId[Account](ctx, organizationId, *transaction.DestinationAccountId); err != nil {
			return nil, err
		}
	}

	splits, err := resolveSplits(ctx, organizationId, input.Splits)
	if err != nil {
		return nil, err
	}
	transaction.Splits = splits

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&transaction).Error; err != nil {
		tx.Rollback()
		config.LogError(config.GetLogger(), "transaction.go", "CreateTransaction", "insert transaction", input, err)
		return nil, err
	}

	if err := applyTransactionEffect(ctx, tx, &transaction, transactionDeltas(&transaction)); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := createTransactionEditHistory(ctx, tx, transaction.ID, userId, EditTypeCreate, nil, buildPreviousState(&transaction)); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &transaction, nil
}

// UpdateTransaction is the versioned edit path. The version check, balance
// reversal/reapply, split replacement, edit-history write, and version
// increment commit as one unit or not at all.
func UpdateTransaction(ctx context.Context, id int, version int, force bool, patch *TransactionPatch) (*Transaction, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, &utils.AuthorizationError{Message: "organization id is required"}
	}
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, &utils.AuthorizationError{Message: "user id is required"}
	}

	if version < 1 {
		return nil, utils.NewValidationError("version must be a positive integer")
	}

	db := config.GetDB()
	tx := db.Begin()

	var existing Transaction
	err := tx.WithContext(ctx).
		Where("organization_id = ?", organizationId).
		Preload("Splits").
		First(&existing, id).Error
	if err != nil {
		tx.Rollback()
		return nil, utils.NewNotFoundError("Transaction")
	}

	if existing.Status == TransactionStatusReconciled {
		tx.Rollback()
		return nil, &utils.ImmutableStateError{Message: "cannot modify reconciled transactions"}
	}

	if !force && version != existing.Version {
		tx.Rollback()
		return nil, newVersionConflictError(ctx, &existing)
	}

	next := existing
	next.Splits = nil
	if patch.Amount != nil {
		next.Amount = *patch.Amount
	}
	if patch.TransactionType != nil {
		next.TransactionType = *patch.TransactionType
	}
	if patch.TransactionDate != nil {
		next.TransactionDate = *patch.TransactionDate
	}
	if patch.ApplyFee != nil {
		next.ApplyFee = *patch.ApplyFee
	}
	if patch.FeeAmount.Set {
		next.FeeAmount = patch.FeeAmount.Ptr()
	}
	if patch.Memo.Set {
		next.Memo = patch.Memo.Ptr()
	}
	if patch.VendorId.Set {
		next.VendorId = patch.VendorId.Ptr()
	}
	if patch.DestinationAccountId.Set {
		next.DestinationAccountId = patch.DestinationAccountId.Ptr()
	}

	if err := validateTransactionShape(&next); err != nil {
		tx.Rollback()
		return nil, err
	}

	if next.ApplyFee && next.FeeAmount == nil {
		sourceAccount, ferr := utils.FetchModel[Account](ctx, organizationId, next.AccountId)
		if ferr != nil {
			tx.Rollback()
			return nil, ferr
		}
		next.FeeAmount = resolveFee(nil, true, sourceAccount)
	}

	destinationChanged := patch.DestinationAccountId.Set && next.DestinationAccountId != nil &&
		(existing.DestinationAccountId == nil || *existing.DestinationAccountId != *next.DestinationAccountId)
	if destinationChanged {
		if err := utils.ValidateResourceId[Account](ctx, organizationId, *next.DestinationAccountId); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	var newSplits []TransactionSplit
	if patch.Splits != nil {
		newSplits, err = resolveSplits(ctx, organizationId, patch.Splits)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	changes := detectChanges(&existing, patch, newSplits)
	editType := EditTypeUpdate
	for _, change := range changes {
		if change.Field == "splits" {
			editType = EditTypeSplitChange
			break
		}
	}
	previousState := buildPreviousState(&existing)

	// Reverse what the previous state applied (against its own old kind and
	// fee), then apply the new state. Old and new destination accounts are
	// both handled here when the destination itself changed.
	if err := applyTransactionEffect(ctx, tx, &existing, transactionDeltas(&existing).Negate()); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := applyTransactionEffect(ctx, tx, &next, transactionDeltas(&next)); err != nil {
		tx.Rollback()
		return nil, err
	}

	updates := map[string]interface{}{
		"Amount":               next.Amount,
		"FeeAmount":            next.FeeAmount,
		"TransactionType":      next.TransactionType,
		"ApplyFee":             next.ApplyFee,
		"TransactionDate":      next.TransactionDate,
		"Memo":                 next.Memo,
		"VendorId":             next.VendorId,
		"DestinationAccountId": next.DestinationAccountId,
		"Version":              existing.Version + 1,
		"LastModifiedById":     userId,
	}

	// Compare-and-set on version so two racing editors cannot both win;
	// force skips the version predicate but still bumps the version.
	dbCtx := tx.WithContext(ctx).Model(&Transaction{}).Where("id = ?", id)
	if !force {
		dbCtx = dbCtx.Where("version = ?", existing.Version)
	}
	result := dbCtx.Updates(updates)
	if result.Error != nil {
		tx.Rollback()
		config.LogError(config.GetLogger(), "transaction.go", "UpdateTransaction", "guarded update", id, result.Error)
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, staleVersionConflict(ctx, organizationId, id)
	}

	if patch.Splits != nil {
		if err := tx.WithContext(ctx).Where("transaction_id = ?", id).Delete(&TransactionSplit{}).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		for i := range newSplits {
			newSplits[i].TransactionId = id
		}
		if len(newSplits) > 0 {
			if err := tx.WithContext(ctx).Create(&newSplits).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
		}
	}

	if err := createTransactionEditHistory(ctx, tx, id, userId, editType, changes, previousState); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return GetTransaction(ctx, id)
}

// DeleteTransaction reverses the balance effect and hard-deletes the row
// with its splits and both history trails. Reconciled transactions are
// immutable to deletion as well; no version check applies.
func DeleteTransaction(ctx context.Context, id int) error {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return &utils.AuthorizationError{Message: "organization id is required"}
	}

	db := config.GetDB()
	tx := db.Begin()

	var existing Transaction
	err := tx.WithContext(ctx).
		Where("organization_id = ?", organizationId).
		First(&existing, id).Error
	if err != nil {
		tx.Rollback()
		return utils.NewNotFoundError("Transaction")
	}

	if existing.Status == TransactionStatusReconciled {
		tx.Rollback()
		return &utils.ImmutableStateError{Message: "cannot modify reconciled transactions"}
	}

	if err := applyTransactionEffect(ctx, tx, &existing, transactionDeltas(&existing).Negate()); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.WithContext(ctx).Where("transaction_id = ?", id).Delete(&TransactionSplit{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.WithContext(ctx).Where("transaction_id = ?", id).Delete(&TransactionStatusHistory{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.WithContext(ctx).Where("transaction_id = ?", id).Delete(&TransactionEditHistory{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.WithContext(ctx).Delete(&existing).Error; err != nil {
		tx.Rollback()
		config.LogError(config.GetLogger(), "transaction.go", "DeleteTransaction", "delete transaction", id, err)
		return err
	}

	return tx.Commit().Error
}

func GetTransaction(ctx context.Context, id int) (*Transaction, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, &utils.AuthorizationError{Message: "organization id is required"}
	}

	return utils.FetchModel[Transaction](ctx, organizationId, id, "Splits")
}

func GetTransactions(ctx context.Context, accountId *int, status *TransactionStatus, startDate *time.Time, endDate *time.Time) ([]*Transaction, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, &utils.AuthorizationError{Message: "organization id is required"}
	}

	db := config.GetDB()
	var results []*Transaction

	dbCtx := db.WithContext(ctx).Where("organization_id = ?", organizationId).Preload("Splits")
	if accountId != nil && *accountId > 0 {
		dbCtx = dbCtx.Where("account_id = ? OR destination_account_id = ?", *accountId, *accountId)
	}
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if startDate != nil && endDate != nil {
		dbCtx = dbCtx.Where("transaction_date BETWEEN ? AND ?", startDate, endDate)
	}
	err := dbCtx.Order("transaction_date DESC, id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// newVersionConflictError packages everything the caller needs to render a
// conflict: the winning version, who wrote it, when, and the live state.
func newVersionConflictError(ctx context.Context, current *Transaction) *utils.VersionConflictError {
	conflict := &utils.VersionConflictError{
		CurrentVersion: current.Version,
		LastModifiedAt: current.UpdatedAt,
		CurrentState:   current,
	}
	modifierId := current.CreatedById
	if current.LastModifiedById != nil {
		modifierId = *current.LastModifiedById
	}
	conflict.LastModifiedById = modifierId
	if user := lookupUser(ctx, modifierId); user != nil {
		conflict.LastModifiedByName = user.Name
		conflict.LastModifiedByEmail = user.Email
	}
	return conflict
}

// staleVersionConflict refetches after a lost compare-and-set race.
func staleVersionConflict(ctx context.Context, organizationId string, id int) error {
	current, err := utils.FetchModel[Transaction](ctx, organizationId, id, "Splits")
	if err != nil {
		return err
	}
	return newVersionConflictError(ctx, current)
}
