package models_test

import (
	"errors"
	"testing"

	"github.com/fintally/ledger_backend/models"
	"github.com/fintally/ledger_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndDeleteMoveBalances(t *testing.T) {
	ctx := setupTestDB(t)
	account := seedAccount(t, ctx, "Checking", "1000.00", "0")

	income, err := models.CreateTransaction(ctx, &models.NewTransaction{
		AccountId:       account.ID,
		TransactionType: models.TransactionTypeIncome,
		Amount:          mustDecimal(t, "500"),
		TransactionDate: testDate(t, "2024-03-01T00:00:00Z"),
	})
	require.NoError(t, err)
	require.Equal(t, 1, income.Version)
	requireBalance(t, ctx, account.ID, "1500.00")

	_, err = models.CreateTransaction(ctx, &models.NewTransaction{
		AccountId:       account.ID,
		TransactionType: models.TransactionTypeExpense,
		Amount:          mustDecimal(t, "150"),
		TransactionDate: testDate(t, "2024-03-02T00:00:00Z"),
	})
	require.NoError(t, err)
	requireBalance(t, ctx, account.ID, "1350.00")

	require.NoError(t, models.DeleteTransaction(ctx, income.ID))
	requireBalance(t, ctx, account.ID, "850.00")
}

func TestTransferWithFeeAppliesAndReverses(t *testing.T) {
	ctx := setupTestDB(t)
	source := seedAccount(t, ctx, "Source", "1000", "10")
	destination := seedAccount(t, ctx, "Destination", "500", "0")

	transfer, err := models.CreateTransaction(ctx, &models.NewTransaction{
		AccountId:            source.ID,
		TransactionType:      models.TransactionTypeTransfer,
		Amount:               mustDecimal(t, "300"),
		ApplyFee:             true,
		DestinationAccountId: &destination.ID,
		TransactionDate:      testDate(t, "2024-03-01T00:00:00Z"),
	})
	require.NoError(t, err)
	// Fee comes from the source account's configuration and never hits
	// the destination.
	requireBalance(t, ctx, source.ID, "690.00")
	requireBalance(t, ctx, destination.ID, "800.00")

	require.NoError(t, models.DeleteTransaction(ctx, transfer.ID))
	requireBalance(t, ctx, source.ID, "1000.00")
	requireBalance(t, ctx, destination.ID, "500.00")
}

func TestCreateThenDeleteIsNetZero(t *testing.T) {
	ctx := setupTestDB(t)
	destination := seedAccount(t, ctx, "Dest", "250", "0")

	kinds := []models.TransactionType{
		models.TransactionTypeIncome,
		models.TransactionTypeExpense,
		models.TransactionTypeTransfer,
	}
	for _, kind := range kinds {
		for _, applyFee := range []bool{true, false} {
			name := string(kind)
			if applyFee {
				name += "-fee"
			}
			account := seedAccount(t, ctx, "Acct-"+name, "777.77", "3.33")

			input := &models.NewTransaction{
				AccountId:       account.ID,
				TransactionType: kind,
				Amount:          mustDecimal(t, "123.45"),
				ApplyFee:        applyFee,
				TransactionDate: testDate(t, "2024-01-15T00:00:00Z"),
			}
			if kind == models.TransactionTypeTransfer {
				input.DestinationAccountId = &destination.ID
			}
			txn, err := models.CreateTransaction(ctx, input)
			require.NoError(t, err)
			require.NoError(t, models.DeleteTransaction(ctx, txn.ID))

			requireBalance(t, ctx, account.ID, "777.77")
		}
	}
	requireBalance(t, ctx, destination.ID, "250")
}

func TestCreateTransactionRejectsBadShapes(t *testing.T) {
	ctx := setupTestDB(t)
	account := seedAccount(t, ctx, "Checking", "1000", "0")
	other := seedAccount(t, ctx, "Other", "0", "0")

	date := testDate(t, "2024-03-01T00:00:00Z")
	tests := []struct {
		name  string
		input *models.NewTransaction
	}{
		{
			"transfer without destination",
			&models.NewTransaction{
				AccountId:       account.ID,
				TransactionType: models.TransactionTypeTransfer,
				Amount:          mustDecimal(t, "100"),
				TransactionDate: date,
			},
		},
		{
			"transfer to itself",
			&models.NewTransaction{
				AccountId:            account.ID,
				TransactionType:      models.TransactionTypeTransfer,
				Amount:               mustDecimal(t, "100"),
				DestinationAccountId: &account.ID,
				TransactionDate:      date,
			},
		},
		{
			"expense with destination",
			&models.NewTransaction{
				AccountId:            account.ID,
				TransactionType:      models.TransactionTypeExpense,
				Amount:               mustDecimal(t, "100"),
				DestinationAccountId: &other.ID,
				TransactionDate:      date,
			},
		},
		{
			"zero amount",
			&models.NewTransaction{
				AccountId:       account.ID,
				TransactionType: models.TransactionTypeExpense,
				TransactionDate: date,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := models.CreateTransaction(ctx, tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, utils.ErrorValidation), "want ValidationError, got %v", err)
		})
	}
	// Nothing above may have moved money.
	requireBalance(t, ctx, account.ID, "1000")
	requireBalance(t, ctx, other.ID, "0")
}

func TestCreateTransferCrossOrganizationDestination(t *testing.T) {
	ctx := setupTestDB(t)
	account := seedAccount(t, ctx, "Checking", "1000", "0")

	foreign := models.Account{
		OrganizationId: "someone-else",
		AccountName:    "Foreign",
		AccountType:    models.AccountTypeBank,
		IsActive:       utils.NewTrue(),
	}
	require.NoError(t, testCreateRaw(t, &foreign))

	_, err := models.CreateTransaction(ctx, &models.NewTransaction{
		AccountId:            account.ID,
		TransactionType:      models.TransactionTypeTransfer,
		Amount:               mustDecimal(t, "100"),
		DestinationAccountId: &foreign.ID,
		TransactionDate:      testDate(t, "2024-03-01T00:00:00Z"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrorRecordNotFound), "want NotFoundError, got %v", err)
	requireBalance(t, ctx, account.ID, "1000")
}

func TestCreateTransactionResolvesCategories(t *testing.T) {
	ctx := setupTestDB(t)
	account := seedAccount(t, ctx, "Checking", "1000", "0")
	groceries := seedCategory(t, "Groceries")

	txn, err := models.CreateTransaction(ctx, &models.NewTransaction{
		AccountId:       account.ID,
		TransactionType: models.TransactionTypeExpense,
		Amount:          mustDecimal(t, "80"),
		TransactionDate: testDate(t, "2024-03-01T00:00:00Z"),
		Splits: []*models.NewTransactionSplit{
			{Category: models.CategoryRef{Name: "Groceries"}, Amount: mustDecimal(t, "80")},
		},
	})
	require.NoError(t, err)
	require.Len(t, txn.Splits, 1)
	assert.Equal(t, groceries.ID, txn.Splits[0].CategoryId)

	_, err = models.CreateTransaction(ctx, &models.NewTransaction{
		AccountId:       account.ID,
		TransactionType: models.TransactionTypeExpense,
		Amount:          mustDecimal(t, "80"),
		TransactionDate: testDate(t, "2024-03-01T00:00:00Z"),
		Splits: []*models.NewTransactionSplit{
			{Category: models.CategoryRef{Name: "No Such Category"}, Amount: mustDecimal(t, "80")},
		},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrorRecordNotFound))
	requireBalance(t, ctx, account.ID, "920")
}

func TestUpdateVersionProtocol(t *testing.T) {
	ctx := setupTestDB(t)
	account := seedAccount(t, ctx, "Checking", "1000", "0")

	txn, err := models.CreateTransaction(ctx, &models.NewTransaction{
		AccountId:       account.ID,
		TransactionType: models.TransactionTypeExpense,
		Amount:          mustDecimal(t, "100"),
		TransactionDate: testDate(t, "2024-03-01T00:00:00Z"),
	})
	require.NoError(t, err)
	require.Equal(t, 1, txn.Version)

	amount := mustDecimal(t, "120")
	updated, err := models.UpdateTransaction(ctx, txn.ID, 1, false, &models.TransactionPatch{
		Amount: &amount,
	})
	require.NoError(t, err)
	require.Equal(t, 2, updated.Version)
	requireBalance(t, ctx, account.ID, "880")

	// Replaying the same edit with the stale version must conflict and
	// carry resolution metadata.
	_, err = models.UpdateTransaction(ctx, txn.ID, 1, false, &models.TransactionPatch{
		Amount: &amount,
	})
	require.Error(t, err)
	var conflict *utils.VersionConflictError
	require.True(t, errors.As(err, &conflict), "want VersionConflictError, got %v", err)
	assert.Equal(t, 2, conflict.CurrentVersion)
	assert.Equal(t, "Test User", conflict.LastModifiedByName)
	assert.Equal(t, "test.user@example.com", conflict.LastModifiedByEmail)
	assert.NotNil(t, conflict.CurrentState)
	requireBalance(t, ctx, account.ID, "880")

	// A future version is just as stale.
	_, err = models.UpdateTransaction(ctx, txn.ID, 9, false, &models.TransactionPatch{Amount: &amount})
	require.True(t, errors.Is(err, utils.ErrorVersionConflict))

	// Version below 1 is malformed, not a conflict.
	_, err = models.UpdateTransaction(ctx, txn.ID, 0, false, &models.TransactionPatch{Amount: &amount})
	require.True(t, errors.Is(err, utils.ErrorValidation))

	// Force skips the check but still bumps the version.
	forcedAmount := mustDecimal(t, "50")
	forced, err := models.UpdateTransaction(ctx, txn.ID, 1, true, &models.TransactionPatch{
		Amount: &forcedAmount,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, forced.Version)
	requireBalance(t, ctx, account.ID, "950")
}

func TestUpdateReversesAgainstOldKind(t *testing.T) {
	ctx := setupTestDB(t)
	account := seedAccount(t, ctx, "Checking", "1000", "0")
	savings := seedAccount(t, ctx, "Savings", "500", "0")

	txn, err := models.CreateTransaction(ctx, &models.NewTransaction{
		AccountId:       account.ID,
		TransactionType: models.TransactionTypeIncome,
		Amount:          mustDecimal(t, "500"),
		TransactionDate: testDate(t, "2024-03-01T00:00:00Z"),
	})
	require.NoError(t, err)
	requireBalance(t, ctx, account.ID, "1500")

	// Income -> Expense at the same amount swings the source by -2x.
	kind := models.TransactionTypeExpense
	updated, err := models.UpdateTransaction(ctx, txn.ID, 1, false, &models.TransactionPatch{
		TransactionType: &kind,
	})
	require.NoError(t, err)
	require.Equal(t, 2, updated.Version)
	requireBalance(t, ctx, account.ID, "500")

	// Expense -> Transfer leaves the source unchanged by the edit and
	// credits the destination.
	kind = models.TransactionTypeTransfer
	updated, err = models.UpdateTransaction(ctx, txn.ID, 2, false, &models.TransactionPatch{
		TransactionType:      &kind,
		DestinationAccountId: models.OptionalOf(savings.ID),
	})
	require.NoError(t, err)
	require.Equal(t, 3, updated.Version)
	requireBalance(t, ctx, account.ID, "500")
	requireBalance(t, ctx, savings.ID, "1000")

	// Deleting the chained transaction restores both accounts to the
	// state before it ever existed.
	require.NoError(t, models.DeleteTransaction(ctx, txn.ID))
	requireBalance(t, ctx, account.ID, "1000")
	requireBalance(t, ctx, savings.ID, "500")
}

func TestUpdateMovesTransferDestination(t *testing.T) {
	ctx := setupTestDB(t)
	source := seedAccount(t, ctx, "Source", "1000", "0")
	first := seedAccount(t, ctx, "First", "0", "0")
	second := seedAccount(t, ctx, "Second", "0", "0")

	txn, err := models.CreateTransaction(ctx, &models.NewTransaction{
		AccountId:            source.ID,
		TransactionType:      models.TransactionTypeTransfer,
		Amount:               mustDecimal(t, "200"),
		DestinationAccountId: &first.ID,
		TransactionDate:      testDate(t, "2024-03-01T00:00:00Z"),
	})
	require.NoError(t, err)
	requireBalance(t, ctx, first.ID, "200")

	_, err = models.UpdateTransaction(ctx, txn.ID, 1, false, &models.TransactionPatch{
		DestinationAccountId: models.OptionalOf(second.ID),
	})
	require.NoError(t, err)
	requireBalance(t, ctx, source.ID, "800")
	requireBalance(t, ctx, first.ID, "0")
	requireBalance(t, ctx, second.ID, "200")
}

func TestUpdateResolvesFeeFromAccount(t *testing.T) {
	ctx := setupTestDB(t)
	account := seedAccount(t, ctx, "Checking", "1000", "2.50")

	txn, err := models.CreateTransaction(ctx, &models.NewTransaction{
		AccountId:       account.ID,
		TransactionType: models.TransactionTypeExpense,
		Amount:          mustDecimal(t, "100"),
		TransactionDate: testDate(t, "2024-03-01T00:00:00Z"),
	})
	require.NoError(t, err)
	requireBalance(t, ctx, account.ID, "900")

	applyFee := true
	updated, err := models.UpdateTransaction(ctx, txn.ID, 1, false, &models.TransactionPatch{
		ApplyFee: &applyFee,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.FeeAmount)
	assert.True(t, updated.FeeAmount.Equal(mustDecimal(t, "2.50")))
	requireBalance(t, ctx, account.ID, "897.50")
}

func TestReconciledTransactionsAreImmutable(t *testing.T) {
	ctx := setupTestDB(t)
	account := seedAccount(t, ctx, "Checking", "1000", "0")

	txn, err := models.CreateTransaction(ctx, &models.NewTransaction{
		AccountId:       account.ID,
		TransactionType: models.TransactionTypeExpense,
		Amount:          mustDecimal(t, "100"),
		TransactionDate: testDate(t, "2024-03-01T00:00:00Z"),
	})
	require.NoError(t, err)

	_, err = models.ChangeTransactionStatus(ctx, txn.ID, &models.StatusChangeInput{Status: models.TransactionStatusCleared})
	require.NoError(t, err)
	_, err = models.ChangeTransactionStatus(ctx, txn.ID, &models.StatusChangeInput{Status: models.TransactionStatusReconciled})
	require.NoError(t, err)

	amount := mustDecimal(t, "150")
	// Correct version does not help.
	_, err = models.UpdateTransaction(ctx, txn.ID, 1, false, &models.TransactionPatch{Amount: &amount})
	require.True(t, errors.Is(err, utils.ErrorImmutableState), "want ImmutableStateError, got %v", err)
	// Neither does force.
	_, err = models.UpdateTransaction(ctx, txn.ID, 1, true, &models.TransactionPatch{Amount: &amount})
	require.True(t, errors.Is(err, utils.ErrorImmutableState))
	// Deletion is blocked the same way.
	err = models.DeleteTransaction(ctx, txn.ID)
	require.True(t, errors.Is(err, utils.ErrorImmutableState))

	requireBalance(t, ctx, account.ID, "900")
}

func TestDeleteCascadesHistoryAndSplits(t *testing.T) {
	ctx := setupTestDB(t)
	account := seedAccount(t, ctx, "Checking", "1000", "0")
	seedCategory(t, "Groceries")

	txn, err := models.CreateTransaction(ctx, &models.NewTransaction{
		AccountId:       account.ID,
		TransactionType: models.TransactionTypeExpense,
		Amount:          mustDecimal(t, "100"),
		TransactionDate: testDate(t, "2024-03-01T00:00:00Z"),
		Splits: []*models.NewTransactionSplit{
			{Category: models.CategoryRef{Name: "Groceries"}, Amount: mustDecimal(t, "100")},
		},
	})
	require.NoError(t, err)

	_, err = models.ChangeTransactionStatus(ctx, txn.ID, &models.StatusChangeInput{Status: models.TransactionStatusCleared})
	require.NoError(t, err)

	require.NoError(t, models.DeleteTransaction(ctx, txn.ID))

	assert.Zero(t, testCount(t, &models.TransactionSplit{}, "transaction_id = ?", txn.ID))
	assert.Zero(t, testCount(t, &models.TransactionStatusHistory{}, "transaction_id = ?", txn.ID))
	assert.Zero(t, testCount(t, &models.TransactionEditHistory{}, "transaction_id = ?", txn.ID))

	_, err = models.GetTransaction(ctx, txn.ID)
	require.True(t, errors.Is(err, utils.ErrorRecordNotFound))
}

func TestGetTransactionsFilters(t *testing.T) {
	ctx := setupTestDB(t)
	checking := seedAccount(t, ctx, "Checking", "1000", "0")
	savings := seedAccount(t, ctx, "Savings", "1000", "0")

	early, err := models.CreateTransaction(ctx, &models.NewTransaction{
		AccountId:       checking.ID,
		TransactionType: models.TransactionTypeExpense,
		Amount:          mustDecimal(t, "10"),
		TransactionDate: testDate(t, "2024-01-10T00:00:00Z"),
	})
	require.NoError(t, err)
	late, err := models.CreateTransaction(ctx, &models.NewTransaction{
		AccountId:       checking.ID,
		TransactionType: models.TransactionTypeIncome,
		Amount:          mustDecimal(t, "20"),
		TransactionDate: testDate(t, "2024-02-10T00:00:00Z"),
	})
	require.NoError(t, err)
	incoming, err := models.CreateTransaction(ctx, &models.NewTransaction{
		AccountId:            savings.ID,
		TransactionType:      models.TransactionTypeTransfer,
		Amount:               mustDecimal(t, "30"),
		DestinationAccountId: &checking.ID,
		TransactionDate:      testDate(t, "2024-03-10T00:00:00Z"),
	})
	require.NoError(t, err)
	_, err = models.ChangeTransactionStatus(ctx, late.ID, &models.StatusChangeInput{Status: models.TransactionStatusCleared})
	require.NoError(t, err)

	// Account filter includes incoming transfers; newest date first.
	all, err := models.GetTransactions(ctx, &checking.ID, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, incoming.ID, all[0].ID)
	assert.Equal(t, early.ID, all[2].ID)

	cleared := models.TransactionStatusCleared
	clearedOnly, err := models.GetTransactions(ctx, &checking.ID, &cleared, nil, nil)
	require.NoError(t, err)
	require.Len(t, clearedOnly, 1)
	assert.Equal(t, late.ID, clearedOnly[0].ID)

	start := testDate(t, "2024-02-01T00:00:00Z")
	end := testDate(t, "2024-02-28T00:00:00Z")
	inWindow, err := models.GetTransactions(ctx, nil, nil, &start, &end)
	require.NoError(t, err)
	require.Len(t, inWindow, 1)
	assert.Equal(t, late.ID, inWindow[0].ID)
}

func TestUpdateUnknownTransaction(t *testing.T) {
	ctx := setupTestDB(t)

	amount := mustDecimal(t, "10")
	_, err := models.UpdateTransaction(ctx, 9999, 1, false, &models.TransactionPatch{Amount: &amount})
	require.True(t, errors.Is(err, utils.ErrorRecordNotFound))
}
