package model

// Ledger is the installment-level state of a loan together with the
// transactions and fee records that produced it.
type Ledger struct {
	Installments []Installment
	Transactions []Transaction
	LateFees     []LateFeeRecord
}

// Clone returns a deep copy that can be modified freely.
func (l Ledger) Clone() Ledger {
	return Ledger{
		Installments: cloneInstallments(l.Installments),
		Transactions: cloneTransactions(l.Transactions),
		LateFees:     cloneLateFees(l.LateFees),
	}
}

// IndexOfSequence finds an installment by its sequence number.
func (l Ledger) IndexOfSequence(seq int) (int, bool) {
	for k, inst := range l.Installments {
		if inst.Sequence == seq {
			return k, true
		}
	}
	return -1, false
}

// IndexOfTransaction finds a transaction by id.
func (l Ledger) IndexOfTransaction(id string) (int, bool) {
	for k, tx := range l.Transactions {
		if tx.ID == id {
			return k, true
		}
	}
	return -1, false
}

// IndexOfLateFee finds the fee record of an installment.
func (l Ledger) IndexOfLateFee(installmentID string) (int, bool) {
	for k, r := range l.LateFees {
		if r.InstallmentID == installmentID {
			return k, true
		}
	}
	return -1, false
}

// FirstUnresolved is the index of the earliest installment still owing, or
// len(Installments) when everything is resolved.
func (l Ledger) FirstUnresolved() int {
	for k, inst := range l.Installments {
		if !inst.IsResolved() {
			return k
		}
	}
	return len(l.Installments)
}
