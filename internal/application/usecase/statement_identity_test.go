package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jecoplus/lending/internal/application/dto"
	"github.com/jecoplus/lending/internal/application/usecase"
	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/event"
	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/service"
	"github.com/jecoplus/lending/pkg/observability"
)

const statementText = `Kasikorn Bank statement
01/02/2024  Salary ACME Co.        +50,000.00
01/02/2024  Loan repayment JC-1     -1,066.19
03/02/2024  7-Eleven                 -500.00
`

func TestExtractStatement_Execute(t *testing.T) {
	extractor := service.NewStatementExtractor(observability.NopLogger())

	t.Run("text input", func(t *testing.T) {
		uc := usecase.NewExtractStatementUseCase(nil, extractor, nil, nil, observability.NopLogger())

		resp, err := uc.Execute(context.Background(), dto.ExtractStatementRequest{Text: statementText})
		require.NoError(t, err)
		require.Equal(t, 3, resp.Count)
		assert.Equal(t, "CREDIT", resp.Transactions[0].Type)
		assert.Equal(t, "Loan repayment JC-1", resp.Transactions[1].Description)
		assert.True(t, d("500").Equal(resp.Transactions[2].Amount))
		assert.Equal(t, "DEBIT", resp.Transactions[2].Type)
	})

	t.Run("no transactions is an empty list", func(t *testing.T) {
		uc := usecase.NewExtractStatementUseCase(nil, extractor, nil, nil, observability.NopLogger())
		resp, err := uc.Execute(context.Background(), dto.ExtractStatementRequest{Text: "No transactions here."})
		require.NoError(t, err)
		assert.NotNil(t, resp.Transactions)
		assert.Empty(t, resp.Transactions)
	})

	t.Run("document goes through the parser", func(t *testing.T) {
		parser := &mockDocumentParser{text: statementText}
		uc := usecase.NewExtractStatementUseCase(parser, extractor, nil, nil, observability.NopLogger())
		resp, err := uc.Execute(context.Background(), dto.ExtractStatementRequest{Document: []byte("%PDF-1.4")})
		require.NoError(t, err)
		assert.Equal(t, 3, resp.Count)
	})

	t.Run("parser failure is wrapped", func(t *testing.T) {
		parser := &mockDocumentParser{err: errors.New("xref table corrupt")}
		uc := usecase.NewExtractStatementUseCase(parser, extractor, nil, nil, observability.NopLogger())

		_, err := uc.Execute(context.Background(), dto.ExtractStatementRequest{Document: []byte("junk")})
		require.Error(t, err)
		assert.Equal(t, apperr.CodeUpstreamParse, apperr.CodeOf(err))
		assert.True(t, strings.HasPrefix(err.Error(), apperr.ParsePDFPrefix))
		assert.Contains(t, err.Error(), "xref table corrupt")
		assert.Nil(t, errors.Unwrap(err))
	})

	t.Run("empty request", func(t *testing.T) {
		uc := usecase.NewExtractStatementUseCase(nil, extractor, nil, nil, observability.NopLogger())
		_, err := uc.Execute(context.Background(), dto.ExtractStatementRequest{Text: "   "})
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("debits are matched to loan payments", func(t *testing.T) {
		loans := &mockLoanRepository{}
		loan := newLoan(t, "12000", "12", 12, day(2024, 1, 1))
		loans.put(loan)
		paid, err := usecase.NewMakePaymentUseCase(loans, &mockEventPublisher{}, &mockTransactor{}, reconciler(), nil).
			Execute(context.Background(), dto.MakePaymentRequest{LoanID: loan.ID(), Amount: d("1066.19"), PaidAt: day(2024, 2, 1)})
		require.NoError(t, err)

		uc := usecase.NewExtractStatementUseCase(nil, extractor, loans, nil, observability.NopLogger())
		resp, err := uc.Execute(context.Background(), dto.ExtractStatementRequest{Text: statementText, LoanID: loan.ID()})
		require.NoError(t, err)
		assert.Equal(t, []string{paid.Transactions[0].ID}, resp.MatchedTransactionIDs)
		assert.Equal(t, 1, resp.UnmatchedDebits)
	})
}

func TestScanAndConfirmIdentity(t *testing.T) {
	reading := model.IdentityDocument{
		IDNumber:  "1103700012345",
		FirstName: "Somchai",
		LastName:  "Jaidee",
		BirthDate: "14/05/1990",
	}

	t.Run("scan is cached and confirmed into a snapshot", func(t *testing.T) {
		sessions := newMockSessionStore()
		ids := &mockIdentityRepository{}
		pub := &mockEventPublisher{}
		scan := usecase.NewScanIdentityDocumentUseCase(&mockIdentityReader{doc: reading}, sessions, 5*time.Minute, observability.NopLogger())
		confirm := usecase.NewConfirmIdentityUseCase(sessions, ids, pub, &mockTransactor{}, observability.NopLogger())

		scanned, err := scan.Execute(context.Background(), dto.ScanIdentityDocumentRequest{SessionID: "s-1", Image: []byte{0xff, 0xd8}})
		require.NoError(t, err)
		assert.False(t, scanned.IsFallback)
		assert.Equal(t, 5*time.Minute, sessions.ttls["ocr:s-1"])

		resp, err := confirm.Execute(context.Background(), dto.ConfirmIdentityRequest{SessionID: "s-1", UserID: "user-1"})
		require.NoError(t, err)
		assert.Equal(t, "1103700012345", resp.CitizenID)
		assert.Equal(t, day(1990, 5, 14), resp.BirthDate)
		require.Len(t, ids.saved, 1)
		assert.Equal(t, []string{event.TypeIdentityConfirmed}, pub.types())

		_, err = confirm.Execute(context.Background(), dto.ConfirmIdentityRequest{SessionID: "s-1", UserID: "user-1"})
		assert.True(t, apperr.IsNotFound(err), "session is consumed")
	})

	t.Run("reader failure falls back", func(t *testing.T) {
		sessions := newMockSessionStore()
		scan := usecase.NewScanIdentityDocumentUseCase(&mockIdentityReader{err: errors.New("vendor timeout")}, sessions, 0, observability.NopLogger())

		resp, err := scan.Execute(context.Background(), dto.ScanIdentityDocumentRequest{SessionID: "s-2", Image: []byte{1}})
		require.NoError(t, err)
		assert.True(t, resp.IsFallback)
		assert.Equal(t, usecase.FallbackIdentityDocument().IDNumber, resp.IDNumber)
		assert.Equal(t, usecase.DefaultScanTTL, sessions.ttls["ocr:s-2"])
	})

	t.Run("missing reader falls back", func(t *testing.T) {
		scan := usecase.NewScanIdentityDocumentUseCase(nil, newMockSessionStore(), time.Minute, observability.NopLogger())
		resp, err := scan.Execute(context.Background(), dto.ScanIdentityDocumentRequest{SessionID: "s-3", Image: []byte{1}})
		require.NoError(t, err)
		assert.True(t, resp.IsFallback)
	})

	t.Run("empty image", func(t *testing.T) {
		scan := usecase.NewScanIdentityDocumentUseCase(nil, newMockSessionStore(), time.Minute, observability.NopLogger())
		_, err := scan.Execute(context.Background(), dto.ScanIdentityDocumentRequest{SessionID: "s-4"})
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("fallback confirmation stays marked", func(t *testing.T) {
		sessions := newMockSessionStore()
		ids := &mockIdentityRepository{}
		scan := usecase.NewScanIdentityDocumentUseCase(nil, sessions, time.Minute, observability.NopLogger())
		confirm := usecase.NewConfirmIdentityUseCase(sessions, ids, &mockEventPublisher{}, &mockTransactor{}, observability.NopLogger())

		_, err := scan.Execute(context.Background(), dto.ScanIdentityDocumentRequest{SessionID: "s-5", Image: []byte{1}})
		require.NoError(t, err)
		resp, err := confirm.Execute(context.Background(), dto.ConfirmIdentityRequest{SessionID: "s-5", UserID: "user-9"})
		require.NoError(t, err)
		assert.True(t, resp.IsFallback)
		assert.True(t, ids.byUser["user-9"].IsFallback)
	})
}
