package service

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/valueobject"
)

// statementLine matches "DD/MM/YYYY  description  +1,234.56".
var statementLine = regexp.MustCompile(`(\d{2}/\d{2}/\d{4})[ \t]+([^\n]+?)[ \t]+([+-]?[\d,]+\.\d{2})`)

// StatementExtractor pulls dated transactions out of statement text. It is a
// best-effort line scanner, not a table parser.
type StatementExtractor struct {
	logger *slog.Logger
}

// NewStatementExtractor creates an extractor. A nil logger uses slog.Default.
func NewStatementExtractor(logger *slog.Logger) *StatementExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatementExtractor{logger: logger}
}

// ParseTransactions returns the matched rows in source order. Amounts are
// magnitudes; a negative sign makes the row a DEBIT. Text without matches
// yields an empty slice.
func (e *StatementExtractor) ParseTransactions(text string) []model.ParsedStatementTransaction {
	matches := statementLine.FindAllStringSubmatch(text, -1)
	out := make([]model.ParsedStatementTransaction, 0, len(matches))

	for _, m := range matches {
		value, err := decimal.NewFromString(strings.ReplaceAll(m[3], ",", ""))
		if err != nil {
			e.logger.Debug("skipping unparsable statement amount", "amount", m[3], "error", err)
			continue
		}
		entry := valueobject.EntryCredit
		if value.IsNegative() {
			entry = valueobject.EntryDebit
		}
		out = append(out, model.ParsedStatementTransaction{
			Date:        m[1],
			Description: strings.TrimSpace(m[2]),
			Amount:      value.Abs(),
			Type:        entry,
		})
	}

	e.logger.Info("statement transactions extracted", "rows", len(out), "candidates", len(matches))
	return out
}

// StatementMatch pairs statement debits with ledger payments.
type StatementMatch struct {
	Matched   map[string]model.ParsedStatementTransaction
	Unmatched []model.ParsedStatementTransaction
}

// MatchPayments cross-checks statement debits against the completed PAYMENT
// and EARLY_REPAYMENT transactions of ledger. A debit matches a payment of the
// same amount made within windowDays of the statement date; each payment is
// matched at most once. Matched is keyed by transaction id.
func MatchPayments(ledger model.Ledger, rows []model.ParsedStatementTransaction, windowDays int) StatementMatch {
	res := StatementMatch{Matched: make(map[string]model.ParsedStatementTransaction)}

	for _, row := range rows {
		if row.Type != valueobject.EntryDebit {
			continue
		}
		at, err := row.Time()
		if err != nil {
			res.Unmatched = append(res.Unmatched, row)
			continue
		}

		found := false
		for _, tx := range ledger.Transactions {
			if _, used := res.Matched[tx.ID]; used {
				continue
			}
			if tx.Status != valueobject.TransactionCompleted ||
				(tx.Type != valueobject.TransactionPayment && tx.Type != valueobject.TransactionEarlyRepayment) {
				continue
			}
			if !tx.Amount.Equal(row.Amount) {
				continue
			}
			if d := DaysBetween(tx.CreatedAt, at); d < -windowDays || d > windowDays {
				continue
			}
			res.Matched[tx.ID] = row
			found = true
			break
		}
		if !found {
			res.Unmatched = append(res.Unmatched, row)
		}
	}
	return res
}
