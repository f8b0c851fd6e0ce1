package usecase

import (
	"time"

	"github.com/jecoplus/lending/internal/application/dto"
	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/service"
)

func toCreditScoreResponse(r model.CreditScoreResult) dto.CreditScoreResponse {
	factors := make([]dto.ScoringFactorResponse, 0, len(r.Factors()))
	for _, f := range r.Factors() {
		factors = append(factors, dto.ScoringFactorResponse{Name: f.Name, Ratio: f.Ratio, Points: f.Points})
	}
	p := r.Profile()
	return dto.CreditScoreResponse{
		ID:              r.ID(),
		UserID:          r.UserID(),
		Score:           r.Score(),
		Status:          r.Decision().String(),
		MonthlyIncome:   p.MonthlyIncome,
		MonthlyExpenses: p.MonthlyExpenses,
		AvgBalance:      p.AvgBalance,
		Factors:         factors,
		CreatedAt:       r.CreatedAt(),
	}
}

func toApplicationResponse(app model.LoanApplication) dto.LoanApplicationResponse {
	return dto.LoanApplicationResponse{
		ID:             app.ID(),
		UserID:         app.UserID(),
		Amount:         app.Amount(),
		TermMonths:     app.TermMonths(),
		Purpose:        app.Purpose(),
		Status:         app.Status().String(),
		DecisionReason: app.DecisionReason(),
		CreditScoreID:  app.CreditScoreID(),
		CreditScore:    app.CreditScore(),
		ApplicantName:  app.Applicant().FullName(),
		ContractNo:     app.ContractNo(),
		CreatedAt:      app.CreatedAt(),
		UpdatedAt:      app.UpdatedAt(),
	}
}

func toLoanResponse(loan model.LoanAccount) dto.LoanResponse {
	ledger := loan.Ledger()
	agg := loan.Aggregates()

	resp := dto.LoanResponse{
		ID:             loan.ID(),
		UserID:         loan.UserID(),
		ApplicationID:  loan.ApplicationID(),
		ContractNo:     loan.ContractNo(),
		Principal:      loan.Principal(),
		InterestRate:   loan.InterestRate(),
		OriginalTerm:   loan.OriginalTerm(),
		CurrentTerm:    loan.CurrentTerm(),
		PaymentDay:     loan.PaymentDay(),
		MonthlyPayment: loan.MonthlyPayment(),
		Status:         loan.Status().String(),
		AccountStatus:  loan.AccountStatus().String(),
		Aggregates: dto.AggregatesResponse{
			RemainingPrincipal: agg.RemainingPrincipal,
			RemainingInterest:  agg.RemainingInterest,
			TotalRemaining:     agg.TotalRemaining,
			TotalPaid:          agg.TotalPaid,
			TotalLateFees:      agg.TotalLateFees,
			PaidInstallments:   agg.PaidInstallments,
			OverdueCount:       agg.OverdueCount,
			DaysOverdue:        agg.DaysOverdue,
			PaymentSuccessRate: agg.PaymentSuccessRate,
			NextDueDate:        copyTime(agg.NextDueDate),
		},
		EarlyRepaymentSavings: loan.EarlyRepaymentSavings(),
		MaturityDate:          loan.MaturityDate(),
		Installments:          make([]dto.InstallmentResponse, 0, len(ledger.Installments)),
		Transactions:          toTransactionResponses(ledger.Transactions),
		LateFees:              make([]dto.LateFeeResponse, 0, len(ledger.LateFees)),
		DisbursedAt:           loan.DisbursedAt(),
		Version:               loan.Version(),
	}

	if m := loan.Modification(); m.IsModified {
		resp.Modification = &dto.ModificationResponse{
			ModificationDate:       copyTime(m.ModificationDate),
			OriginalInterestRate:   m.OriginalInterestRate,
			OriginalMonthlyPayment: m.OriginalMonthlyPayment,
			OriginalMaturityDate:   copyTime(m.OriginalMaturityDate),
			SegmentStarts:          m.SegmentStarts,
		}
	}

	for _, inst := range ledger.Installments {
		resp.Installments = append(resp.Installments, dto.InstallmentResponse{
			ID:            inst.ID,
			Sequence:      inst.Sequence,
			DueDate:       inst.DueDate,
			Principal:     inst.Principal,
			Interest:      inst.Interest,
			Total:         inst.Total,
			Status:        inst.Status.String(),
			PaidAmount:    inst.PaidAmount,
			PaymentDate:   copyTime(inst.PaymentDate),
			DaysLate:      inst.DaysLate,
			IsPaidOnTime:  inst.IsPaidOnTime,
			LateFee:       inst.LateFee,
			LateFeeWaived: inst.LateFeeWaived,
		})
	}

	for _, r := range ledger.LateFees {
		lf := dto.LateFeeResponse{
			ID:            r.ID,
			InstallmentID: r.InstallmentID,
			DaysLate:      r.DaysLate,
			CalculatedFee: r.CalculatedFee,
			AppliedFee:    r.AppliedFee,
			IsWaived:      r.IsWaived,
		}
		if r.Waiver != nil {
			lf.WaivedBy = r.Waiver.Actor
			lf.WaiverReason = r.Waiver.Reason
		}
		resp.LateFees = append(resp.LateFees, lf)
	}
	return resp
}

func toTransactionResponses(txs []model.Transaction) []dto.TransactionResponse {
	out := make([]dto.TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, dto.TransactionResponse{
			ID:            tx.ID,
			InstallmentID: tx.InstallmentID,
			Type:          string(tx.Type),
			Status:        string(tx.Status),
			Amount:        tx.Amount,
			Principal:     tx.Allocation.Principal,
			Interest:      tx.Allocation.Interest,
			LateFee:       tx.Allocation.LateFee,
			OtherFees:     tx.Allocation.OtherFees,
			ReversalOf:    tx.ReversalOf,
			CreatedAt:     tx.CreatedAt,
		})
	}
	return out
}

func toStatementResponses(rows []model.ParsedStatementTransaction) []dto.StatementTransactionResponse {
	out := make([]dto.StatementTransactionResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.StatementTransactionResponse{
			Date:        row.Date,
			Description: row.Description,
			Amount:      row.Amount,
			Type:        string(row.Type),
		})
	}
	return out
}

func toInconsistencyResponse(i service.Inconsistency) dto.InconsistencyResponse {
	return dto.InconsistencyResponse{
		LoanID:   i.LoanID,
		Rule:     i.Rule,
		Expected: i.Expected,
		Actual:   i.Actual,
		Message:  i.Message,
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
