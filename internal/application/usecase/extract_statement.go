package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jecoplus/lending/internal/application/dto"
	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/port"
	"github.com/jecoplus/lending/internal/domain/service"
)

// DefaultMatchWindowDays is how far a statement date may drift from the
// ledger payment it is matched to.
const DefaultMatchWindowDays = 3

// ExtractStatementUseCase pulls transactions out of a bank statement and
// optionally matches its debits to a loan's payments.
type ExtractStatementUseCase struct {
	parser      port.DocumentParser
	extractor   *service.StatementExtractor
	loanRepo    port.LoanRepository
	instruments *Instruments
	logger      *slog.Logger
	windowDays  int
}

// NewExtractStatementUseCase wires dependencies. loanRepo may be nil when
// matching is not offered.
func NewExtractStatementUseCase(
	parser port.DocumentParser,
	extractor *service.StatementExtractor,
	loanRepo port.LoanRepository,
	instruments *Instruments,
	logger *slog.Logger,
) *ExtractStatementUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStatementUseCase{
		parser:      parser,
		extractor:   extractor,
		loanRepo:    loanRepo,
		instruments: instruments,
		logger:      logger,
		windowDays:  DefaultMatchWindowDays,
	}
}

// Execute extracts the rows. Parser failures surface as UPSTREAM_PARSE errors
// whose message starts with "Failed to parse PDF".
func (uc *ExtractStatementUseCase) Execute(ctx context.Context, req dto.ExtractStatementRequest) (dto.ExtractStatementResponse, error) {
	// 1. Obtain the raw text.
	text := req.Text
	switch {
	case len(req.Document) > 0:
		if uc.parser == nil {
			return dto.ExtractStatementResponse{}, apperr.Unavailable(nil, "no document parser configured")
		}
		parsed, err := uc.parser.Parse(ctx, req.Document)
		if err != nil {
			if apperr.CodeOf(err) != apperr.CodeUpstreamParse {
				err = apperr.UpstreamParse(err)
			}
			return dto.ExtractStatementResponse{}, err
		}
		text = parsed
	case strings.TrimSpace(text) == "":
		return dto.ExtractStatementResponse{}, apperr.Validation("a statement document or text is required")
	}

	// 2. Extract.
	rows := uc.extractor.ParseTransactions(text)
	uc.instruments.statementRowsExtracted(ctx, len(rows))
	resp := dto.ExtractStatementResponse{
		Transactions: toStatementResponses(rows),
		Count:        len(rows),
	}

	// 3. Optionally cross-check against the loan ledger.
	if req.LoanID == "" {
		return resp, nil
	}
	if uc.loanRepo == nil {
		return dto.ExtractStatementResponse{}, apperr.Unavailable(nil, "statement matching is not configured")
	}
	loan, err := uc.loanRepo.FindByID(ctx, req.LoanID)
	if err != nil {
		return dto.ExtractStatementResponse{}, fmt.Errorf("find loan: %w", err)
	}
	match := service.MatchPayments(loan.Ledger(), rows, uc.windowDays)
	for id := range match.Matched {
		resp.MatchedTransactionIDs = append(resp.MatchedTransactionIDs, id)
	}
	sort.Strings(resp.MatchedTransactionIDs)
	for _, row := range match.Unmatched {
		if row.Signed().IsNegative() {
			resp.UnmatchedDebits++
		}
	}

	uc.logger.InfoContext(ctx, "statement matched against loan",
		"loan_id", loan.ID(),
		"matched", len(match.Matched),
		"unmatched_debits", resp.UnmatchedDebits,
	)
	return resp, nil
}
