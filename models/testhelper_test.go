package models_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fintally/ledger_backend/config"
	"github.com/fintally/ledger_backend/models"
	"github.com/fintally/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testOrganizationId = "org-test"

// setupTestDB installs a per-test in-memory sqlite database and returns a
// context carrying the test organization and actor identity.
func setupTestDB(t *testing.T) context.Context {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	config.SetDB(db)
	models.MigrateTable()
	models.SetCategoryResolver(nil)

	user := models.User{
		OrganizationId: testOrganizationId,
		Name:           "Test User",
		Email:          "test.user@example.com",
		IsActive:       utils.NewTrue(),
	}
	require.NoError(t, db.Create(&user).Error)

	ctx := context.Background()
	ctx = utils.SetOrganizationIdInContext(ctx, testOrganizationId)
	ctx = utils.SetUserIdInContext(ctx, user.ID)
	ctx = utils.SetUserNameInContext(ctx, user.Name)
	ctx = utils.SetUserEmailInContext(ctx, user.Email)
	return ctx
}

func seedAccount(t *testing.T, ctx context.Context, name string, balance string, fee string) *models.Account {
	t.Helper()
	account, err := models.CreateAccount(ctx, &models.NewAccount{
		AccountName:    name,
		AccountType:    models.AccountTypeBank,
		OpeningBalance: mustDecimal(t, balance),
		TransactionFee: mustDecimal(t, fee),
	})
	require.NoError(t, err)
	return account
}

func seedCategory(t *testing.T, name string) *models.Category {
	t.Helper()
	category := models.Category{OrganizationId: testOrganizationId, Name: name}
	require.NoError(t, config.GetDB().Create(&category).Error)
	return &category
}

func seedUser(t *testing.T, name string, email string) *models.User {
	t.Helper()
	user := models.User{
		OrganizationId: testOrganizationId,
		Name:           name,
		Email:          email,
		IsActive:       utils.NewTrue(),
	}
	require.NoError(t, config.GetDB().Create(&user).Error)
	return &user
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func accountBalance(t *testing.T, ctx context.Context, id int) decimal.Decimal {
	t.Helper()
	account, err := models.GetAccount(ctx, id)
	require.NoError(t, err)
	return account.Balance
}

func requireBalance(t *testing.T, ctx context.Context, id int, want string) {
	t.Helper()
	got := accountBalance(t, ctx, id)
	require.True(t, got.Equal(mustDecimal(t, want)),
		"account %d balance: got %s, want %s", id, got.String(), want)
}

// testCreateRaw inserts a row bypassing the business layer, for seeding
// states the API would refuse to create (e.g. foreign-organization rows).
func testCreateRaw(t *testing.T, value interface{}) error {
	t.Helper()
	return config.GetDB().Create(value).Error
}

func testCount(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var count int64
	require.NoError(t, config.GetDB().Model(model).Where(query, args...).Count(&count).Error)
	return count
}

func testDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return d
}
