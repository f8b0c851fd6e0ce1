package grpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jecoplus/lending/internal/application/dto"
	"github.com/jecoplus/lending/internal/application/usecase"
	"github.com/jecoplus/lending/pkg/auth"
)

// LendingHandler implements LendingServiceServer on top of the use cases.
type LendingHandler struct {
	uc *usecase.Set
}

func NewLendingHandler(uc *usecase.Set) *LendingHandler {
	return &LendingHandler{uc: uc}
}

var _ LendingServiceServer = (*LendingHandler)(nil)

// respond adapts Execute's value result; errors are translated to statuses
// by the server's interceptor.
func respond[T any](resp T, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// scopeUser pins customer calls to the caller's own user ID. Staff tokens and
// unauthenticated deployments pass through unchanged.
func scopeUser(ctx context.Context, userID *string) error {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok || claims.HasRole(auth.RoleOperator) || claims.HasRole(auth.RolePartner) {
		return nil
	}
	if *userID == "" {
		*userID = claims.UserID
		return nil
	}
	if *userID != claims.UserID {
		return status.Error(codes.PermissionDenied, "customers may only act on their own user ID")
	}
	return nil
}

func (h *LendingHandler) CalculateCreditScore(ctx context.Context, req *dto.CalculateCreditScoreRequest) (*dto.CreditScoreResponse, error) {
	if err := scopeUser(ctx, &req.UserID); err != nil {
		return nil, err
	}
	return respond(h.uc.CalculateCreditScore.Execute(ctx, *req))
}

func (h *LendingHandler) SubmitApplication(ctx context.Context, req *dto.SubmitApplicationRequest) (*dto.LoanApplicationResponse, error) {
	if err := scopeUser(ctx, &req.UserID); err != nil {
		return nil, err
	}
	return respond(h.uc.SubmitApplication.Execute(ctx, *req))
}

func (h *LendingHandler) DecideApplication(ctx context.Context, req *dto.DecideApplicationRequest) (*dto.LoanApplicationResponse, error) {
	return respond(h.uc.DecideApplication.Execute(ctx, *req))
}

func (h *LendingHandler) DisburseLoan(ctx context.Context, req *dto.DisburseLoanRequest) (*dto.LoanResponse, error) {
	return respond(h.uc.DisburseLoan.Execute(ctx, *req))
}

func (h *LendingHandler) GetLoan(ctx context.Context, req *dto.GetLoanRequest) (*dto.LoanResponse, error) {
	return respond(h.uc.GetLoan.Execute(ctx, *req))
}

func (h *LendingHandler) MakePayment(ctx context.Context, req *dto.MakePaymentRequest) (*dto.PaymentResponse, error) {
	return respond(h.uc.MakePayment.Execute(ctx, *req))
}

func (h *LendingHandler) ReversePayment(ctx context.Context, req *dto.ReversePaymentRequest) (*dto.PaymentResponse, error) {
	return respond(h.uc.ReversePayment.Execute(ctx, *req))
}

func (h *LendingHandler) WaiveLateFee(ctx context.Context, req *dto.WaiveLateFeeRequest) (*dto.LoanResponse, error) {
	return respond(h.uc.WaiveLateFee.Execute(ctx, *req))
}

func (h *LendingHandler) SettleEarly(ctx context.Context, req *dto.SettleEarlyRequest) (*dto.SettleEarlyResponse, error) {
	return respond(h.uc.SettleEarly.Execute(ctx, *req))
}

func (h *LendingHandler) ModifyLoan(ctx context.Context, req *dto.ModifyLoanRequest) (*dto.LoanResponse, error) {
	return respond(h.uc.ModifyLoan.Execute(ctx, *req))
}

func (h *LendingHandler) ExtractStatement(ctx context.Context, req *dto.ExtractStatementRequest) (*dto.ExtractStatementResponse, error) {
	return respond(h.uc.ExtractStatement.Execute(ctx, *req))
}

func (h *LendingHandler) ScanIdentityDocument(ctx context.Context, req *dto.ScanIdentityDocumentRequest) (*dto.IdentityDocumentResponse, error) {
	return respond(h.uc.ScanIdentityDocument.Execute(ctx, *req))
}

func (h *LendingHandler) ConfirmIdentity(ctx context.Context, req *dto.ConfirmIdentityRequest) (*dto.IdentityResponse, error) {
	if err := scopeUser(ctx, &req.UserID); err != nil {
		return nil, err
	}
	return respond(h.uc.ConfirmIdentity.Execute(ctx, *req))
}
