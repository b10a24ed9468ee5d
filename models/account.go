package models

import (
	"context"
	"time"

	"github.com/fintally/ledger_backend/config"
	"github.com/fintally/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

// Account carries a running balance maintained incrementally by the
// transaction pipeline; it is never recomputed from history on read.
type Account struct {
	ID             int             `gorm:"primary_key" json:"id"`
	OrganizationId string          `gorm:"index;not null" json:"organization_id"`
	AccountName    string          `gorm:"index;size:100;not null" json:"account_name"`
	AccountType    AccountType     `gorm:"size:20;not null" json:"account_type"`
	Balance        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance"`
	TransactionFee decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"transaction_fee"`
	Description    string          `gorm:"type:text" json:"description"`
	IsActive       *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewAccount struct {
	AccountName    string          `json:"account_name" validate:"required"`
	AccountType    AccountType     `json:"account_type" validate:"required"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	TransactionFee decimal.Decimal `json:"transaction_fee"`
	Description    string          `json:"description"`
}

func (a Account) GetId() int {
	return a.ID
}

// validate input for both create & update. (id = 0 for create)
func (input *NewAccount) validate(ctx context.Context, organizationId string, id int) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if !input.AccountType.IsValid() {
		return utils.NewValidationError("invalid account type %q", input.AccountType)
	}
	if input.TransactionFee.IsNegative() {
		return utils.NewValidationError("transaction fee must not be negative")
	}
	if id > 0 {
		if err := utils.ValidateResourceId[Account](ctx, organizationId, id); err != nil {
			return err
		}
	}
	// name
	if err := utils.ValidateUnique[Account](ctx, organizationId, "account_name", input.AccountName, id); err != nil {
		return err
	}
	return nil
}

func CreateAccount(ctx context.Context, input *NewAccount) (*Account, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, &utils.AuthorizationError{Message: "organization id is required"}
	}

	if err := input.validate(ctx, organizationId, 0); err != nil {
		return nil, err
	}

	account := Account{
		OrganizationId: organizationId,
		AccountName:    input.AccountName,
		AccountType:    input.AccountType,
		Balance:        input.OpeningBalance,
		TransactionFee: input.TransactionFee,
		Description:    input.Description,
		IsActive:       utils.NewTrue(),
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateAccount never touches Balance; only the pipeline moves it.
func UpdateAccount(ctx context.Context, id int, input *NewAccount) (*Account, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, &utils.AuthorizationError{Message: "organization id is required"}
	}

	if err := input.validate(ctx, organizationId, id); err != nil {
		return nil, err
	}

	account, err := utils.FetchModel[Account](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&account).Updates(map[string]interface{}{
		"AccountName":    input.AccountName,
		"AccountType":    input.AccountType,
		"TransactionFee": input.TransactionFee,
		"Description":    input.Description,
	}).Error
	if err != nil {
		return nil, err
	}
	return account, nil
}

func DeleteAccount(ctx context.Context, id int) (*Account, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, &utils.AuthorizationError{Message: "organization id is required"}
	}
	result, err := utils.FetchModel[Account](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	// Do not delete while transactions still reference this account.
	count, err := utils.ResourceCountWhere[Transaction](ctx, organizationId,
		"account_id = ? OR destination_account_id = ?", id, id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewValidationError("account has transactions")
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func GetAccount(ctx context.Context, id int) (*Account, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, &utils.AuthorizationError{Message: "organization id is required"}
	}

	return utils.FetchModel[Account](ctx, organizationId, id)
}

func GetAccounts(ctx context.Context, accountType *AccountType, accountName *string) ([]*Account, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, &utils.AuthorizationError{Message: "organization id is required"}
	}

	db := config.GetDB()
	var results []*Account

	dbCtx := db.WithContext(ctx).Where("organization_id = ?", organizationId)
	if accountType != nil && len(*accountType) > 0 {
		dbCtx = dbCtx.Where("account_type = ?", accountType)
	}
	if accountName != nil && len(*accountName) > 0 {
		dbCtx = dbCtx.Where("account_name LIKE ?", "%"+*accountName+"%")
	}
	err := dbCtx.Order("account_name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func ToggleActiveAccount(ctx context.Context, id int, isActive bool) (*Account, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, &utils.AuthorizationError{Message: "organization id is required"}
	}

	account, err := utils.FetchModel[Account](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&account).Update("IsActive", isActive).Error
	if err != nil {
		return nil, err
	}
	return account, nil
}
