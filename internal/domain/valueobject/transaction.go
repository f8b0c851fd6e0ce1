package valueobject

import (
	"fmt"
	"strings"
)

// TransactionType classifies a ledger transaction.
type TransactionType string

const (
	TransactionPayment        TransactionType = "PAYMENT"
	TransactionTopUp          TransactionType = "TOPUP"
	TransactionWithdraw       TransactionType = "WITHDRAW"
	TransactionEarlyRepayment TransactionType = "EARLY_REPAYMENT"
	TransactionReversal       TransactionType = "REVERSAL"
)

// ParseTransactionType validates a stored type.
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(s); t {
	case TransactionPayment, TransactionTopUp, TransactionWithdraw, TransactionEarlyRepayment, TransactionReversal:
		return t, nil
	}
	return "", fmt.Errorf("invalid transaction type: %q", s)
}

// TransactionStatus is the settlement state of a ledger transaction.
type TransactionStatus string

const (
	TransactionCompleted  TransactionStatus = "COMPLETED"
	TransactionPending    TransactionStatus = "PENDING"
	TransactionReversed   TransactionStatus = "REVERSED"
	// TransactionSuperseded marks a payment whose installment was replaced
	// by a restructuring.
	TransactionSuperseded TransactionStatus = "SUPERSEDED"
)

// ParseTransactionStatus validates a stored status.
func ParseTransactionStatus(s string) (TransactionStatus, error) {
	switch st := TransactionStatus(s); st {
	case TransactionCompleted, TransactionPending, TransactionReversed, TransactionSuperseded:
		return st, nil
	}
	return "", fmt.Errorf("invalid transaction status: %q", s)
}

// EntryType is the direction of a parsed bank-statement line.
type EntryType string

const (
	EntryCredit EntryType = "CREDIT"
	EntryDebit  EntryType = "DEBIT"
)

// entryAliases maps the deposit/withdrawal vocabulary onto the canonical enum.
var entryAliases = map[string]EntryType{
	"CREDIT":     EntryCredit,
	"DEPOSIT":    EntryCredit,
	"DEBIT":      EntryDebit,
	"WITHDRAWAL": EntryDebit,
}

// ParseEntryType accepts CREDIT, DEBIT, DEPOSIT or WITHDRAWAL in any case.
func ParseEntryType(s string) (EntryType, error) {
	t, ok := entryAliases[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("invalid statement entry type: %q", s)
	}
	return t, nil
}
