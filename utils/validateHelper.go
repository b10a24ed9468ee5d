package utils

import (
	"context"
	"reflect"

	"github.com/fintally/ledger_backend/config"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs the `validate` tags on an input struct and folds the
// first failure into a ValidationError.
func ValidateStruct(input any) error {
	if err := validate.Struct(input); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return NewValidationError("%s failed validation on %s", errs[0].Field(), errs[0].Tag())
		}
		return NewValidationError("%s", err.Error())
	}
	return nil
}

func ResourceCountWhere[T any](ctx context.Context, organizationId string, cond string, values ...interface{}) (int64, error) {
	db := config.GetDB()
	var model T
	var count int64
	err := db.WithContext(ctx).Model(&model).
		Where("organization_id = ?", organizationId).
		Where(cond, values...).
		Count(&count).Error
	return count, err
}

// check if id exists, using ctx's organization_id in WHERE, return NotFoundError
func ValidateResourceId[T any](ctx context.Context, organizationId string, id interface{}) error {

	count, err := ResourceCountWhere[T](ctx, organizationId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return NewNotFoundError(GetTypeName[T]())
	}

	return nil
}

func ValidateUnique[T any](ctx context.Context, organizationId string, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, organizationId, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, organizationId, column+" = ? AND NOT id = ?", value, exceptId)
	}

	if err != nil {
		return err
	}
	if count > 0 {
		return NewValidationError("%s already exists", column)
	}
	return nil
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}
