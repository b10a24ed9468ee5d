package models

type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "Income"
	TransactionTypeExpense  TransactionType = "Expense"
	TransactionTypeTransfer TransactionType = "Transfer"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransfer:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TransactionStatusUncleared  TransactionStatus = "Uncleared"
	TransactionStatusCleared    TransactionStatus = "Cleared"
	TransactionStatusReconciled TransactionStatus = "Reconciled"
)

func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusUncleared, TransactionStatusCleared, TransactionStatusReconciled:
		return true
	}
	return false
}

type EditType string

const (
	EditTypeCreate      EditType = "CREATE"
	EditTypeUpdate      EditType = "UPDATE"
	EditTypeSplitChange EditType = "SPLIT_CHANGE"
)

type AccountType string

const (
	AccountTypeCash       AccountType = "Cash"
	AccountTypeBank       AccountType = "Bank"
	AccountTypeCard       AccountType = "Card"
	AccountTypeInvestment AccountType = "Investment"
	AccountTypeOther      AccountType = "Other"
)

func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeCash, AccountTypeBank, AccountTypeCard, AccountTypeInvestment, AccountTypeOther:
		return true
	}
	return false
}
