// seed-demo creates a demo organization with a user, two accounts, a few
// categories, and sample transactions. Intended for local development.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-demo
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fintally/ledger_backend/config"
	"github.com/fintally/ledger_backend/models"
	"github.com/fintally/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

const demoOrganizationId = "demo-org"

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	models.MigrateTable()

	user := models.User{
		OrganizationId: demoOrganizationId,
		Name:           "Demo User",
		Email:          "demo@example.com",
		IsActive:       utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed user: %v\n", err)
		os.Exit(1)
	}

	ctx = utils.SetOrganizationIdInContext(ctx, demoOrganizationId)
	ctx = utils.SetUserIdInContext(ctx, user.ID)
	ctx = utils.SetUserNameInContext(ctx, user.Name)
	ctx = utils.SetUserEmailInContext(ctx, user.Email)

	for _, name := range []string{"Groceries", "Salary", "Utilities"} {
		category := models.Category{OrganizationId: demoOrganizationId, Name: name}
		if err := db.WithContext(ctx).Create(&category).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed category %s: %v\n", name, err)
			os.Exit(1)
		}
	}

	checking, err := models.CreateAccount(ctx, &models.NewAccount{
		AccountName:    "Demo Checking",
		AccountType:    models.AccountTypeBank,
		OpeningBalance: decimal.NewFromInt(1000),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed account: %v\n", err)
		os.Exit(1)
	}

	savings, err := models.CreateAccount(ctx, &models.NewAccount{
		AccountName:    "Demo Savings",
		AccountType:    models.AccountTypeBank,
		OpeningBalance: decimal.NewFromInt(500),
		TransactionFee: decimal.NewFromInt(1),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed account: %v\n", err)
		os.Exit(1)
	}

	now := time.Now().UTC()
	seedTransactions := []*models.NewTransaction{
		{
			AccountId:       checking.ID,
			TransactionType: models.TransactionTypeIncome,
			Amount:          decimal.NewFromInt(2500),
			TransactionDate: now.AddDate(0, 0, -14),
			Splits: []*models.NewTransactionSplit{
				{Category: models.CategoryRef{Name: "Salary"}, Amount: decimal.NewFromInt(2500)},
			},
		},
		{
			AccountId:       checking.ID,
			TransactionType: models.TransactionTypeExpense,
			Amount:          decimal.NewFromFloat(84.50),
			TransactionDate: now.AddDate(0, 0, -7),
			Splits: []*models.NewTransactionSplit{
				{Category: models.CategoryRef{Name: "Groceries"}, Amount: decimal.NewFromFloat(84.50)},
			},
		},
		{
			AccountId:            checking.ID,
			TransactionType:      models.TransactionTypeTransfer,
			Amount:               decimal.NewFromInt(300),
			DestinationAccountId: &savings.ID,
			TransactionDate:      now.AddDate(0, 0, -2),
		},
	}
	for _, input := range seedTransactions {
		if _, err := models.CreateTransaction(ctx, input); err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed transaction: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("seeded organization %q: user=%d accounts=%d,%d\n", demoOrganizationId, user.ID, checking.ID, savings.ID)
}
