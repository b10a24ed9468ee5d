package models

import (
	"log"

	"github.com/fintally/ledger_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Account{},
		&Category{},
		&Transaction{}, &TransactionSplit{},
		&TransactionStatusHistory{}, &TransactionEditHistory{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
