package grpc

import (
	"context"

	grpclib "google.golang.org/grpc"

	"github.com/jecoplus/lending/internal/application/dto"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "jecoplus.lending.v1.LendingService"

// FullMethod returns the "/service/method" path the interceptors see.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// LendingServiceServer is the server API for LendingService.
type LendingServiceServer interface {
	CalculateCreditScore(context.Context, *dto.CalculateCreditScoreRequest) (*dto.CreditScoreResponse, error)
	SubmitApplication(context.Context, *dto.SubmitApplicationRequest) (*dto.LoanApplicationResponse, error)
	DecideApplication(context.Context, *dto.DecideApplicationRequest) (*dto.LoanApplicationResponse, error)
	DisburseLoan(context.Context, *dto.DisburseLoanRequest) (*dto.LoanResponse, error)
	GetLoan(context.Context, *dto.GetLoanRequest) (*dto.LoanResponse, error)
	MakePayment(context.Context, *dto.MakePaymentRequest) (*dto.PaymentResponse, error)
	ReversePayment(context.Context, *dto.ReversePaymentRequest) (*dto.PaymentResponse, error)
	WaiveLateFee(context.Context, *dto.WaiveLateFeeRequest) (*dto.LoanResponse, error)
	SettleEarly(context.Context, *dto.SettleEarlyRequest) (*dto.SettleEarlyResponse, error)
	ModifyLoan(context.Context, *dto.ModifyLoanRequest) (*dto.LoanResponse, error)
	ExtractStatement(context.Context, *dto.ExtractStatementRequest) (*dto.ExtractStatementResponse, error)
	ScanIdentityDocument(context.Context, *dto.ScanIdentityDocumentRequest) (*dto.IdentityDocumentResponse, error)
	ConfirmIdentity(context.Context, *dto.ConfirmIdentityRequest) (*dto.IdentityResponse, error)
}

// RegisterLendingServiceServer registers srv with s.
func RegisterLendingServiceServer(s grpclib.ServiceRegistrar, srv LendingServiceServer) {
	s.RegisterService(&lendingServiceDesc, srv)
}

var lendingServiceDesc = grpclib.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LendingServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		unary("CalculateCreditScore", LendingServiceServer.CalculateCreditScore),
		unary("SubmitApplication", LendingServiceServer.SubmitApplication),
		unary("DecideApplication", LendingServiceServer.DecideApplication),
		unary("DisburseLoan", LendingServiceServer.DisburseLoan),
		unary("GetLoan", LendingServiceServer.GetLoan),
		unary("MakePayment", LendingServiceServer.MakePayment),
		unary("ReversePayment", LendingServiceServer.ReversePayment),
		unary("WaiveLateFee", LendingServiceServer.WaiveLateFee),
		unary("SettleEarly", LendingServiceServer.SettleEarly),
		unary("ModifyLoan", LendingServiceServer.ModifyLoan),
		unary("ExtractStatement", LendingServiceServer.ExtractStatement),
		unary("ScanIdentityDocument", LendingServiceServer.ScanIdentityDocument),
		unary("ConfirmIdentity", LendingServiceServer.ConfirmIdentity),
	},
	Streams: []grpclib.StreamDesc{},
}

// unary builds the method descriptor that protoc-gen-go-grpc would emit for
// one unary RPC.
func unary[Req, Resp any](
	method string,
	call func(LendingServiceServer, context.Context, *Req) (*Resp, error),
) grpclib.MethodDesc {
	fullMethod := FullMethod(method)
	return grpclib.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LendingServiceServer), ctx, in)
			}
			info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(LendingServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
