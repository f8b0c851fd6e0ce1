package datasource_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jecoplus/lending/internal/application/dto"
	"github.com/jecoplus/lending/internal/application/usecase"
	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/service"
	"github.com/jecoplus/lending/internal/domain/valueobject"
	"github.com/jecoplus/lending/internal/infrastructure/datasource"
	"github.com/jecoplus/lending/pkg/observability"
)

func userIDs(loans []model.LoanAccount) []string {
	out := make([]string, 0, len(loans))
	for _, l := range loans {
		out = append(out, l.UserID())
	}
	return out
}

func TestNewMock(t *testing.T) {
	ctx := context.Background()
	asOf := time.Date(2024, 9, 15, 0, 0, 0, 0, time.UTC)

	t.Run("unseeded store is empty", func(t *testing.T) {
		ds, err := datasource.NewMock(ctx, datasource.MockOptions{}, observability.NopLogger())
		require.NoError(t, err)
		assert.Equal(t, datasource.NameMock, ds.Name)
		assert.NoError(t, ds.Ping(ctx))

		active, err := ds.Loans.ListByStatus(ctx, valueobject.LoanStatusActive)
		require.NoError(t, err)
		assert.Empty(t, active)

		_, err = ds.Identities.FindByUserID(ctx, "demo-ontime")
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("personas are seeded", func(t *testing.T) {
		ds, err := datasource.NewMock(ctx, datasource.MockOptions{SeedPersonas: true, AsOf: asOf}, observability.NopLogger())
		require.NoError(t, err)

		active, err := ds.Loans.ListByStatus(ctx, valueobject.LoanStatusActive)
		require.NoError(t, err)
		assert.Contains(t, userIDs(active), "demo-ontime")
		assert.Contains(t, userIDs(active), "demo-delinquent")

		paidOff, err := ds.Loans.ListByStatus(ctx, valueobject.LoanStatusPaidOff)
		require.NoError(t, err)
		assert.Equal(t, []string{"demo-settled"}, userIDs(paidOff))

		identity, err := ds.Identities.FindByUserID(ctx, "demo-applicant")
		require.NoError(t, err)
		assert.Equal(t, "Niran Kaewmanee", identity.FullName())

		score, err := ds.CreditScores.LatestByUserID(ctx, "demo-applicant")
		require.NoError(t, err)
		assert.True(t, score.Score() >= 300 && score.Score() <= 850)

		for _, loan := range active {
			assert.Empty(t, loan.DomainEvents(), "seeded loans carry no pending events")
		}
	})

	t.Run("seeded portfolio survives a sweep", func(t *testing.T) {
		ds, err := datasource.NewMock(ctx, datasource.MockOptions{SeedPersonas: true, AsOf: asOf}, observability.NopLogger())
		require.NoError(t, err)

		sweep := usecase.NewSweepPortfolioUseCase(ds.Loans, ds.CollectionCases, ds.Publisher, ds.Transactor,
			service.DefaultLateFeePolicy(), nil, observability.NopLogger())
		resp, err := sweep.Execute(ctx, dto.SweepPortfolioRequest{AsOf: asOf})
		require.NoError(t, err)
		assert.Zero(t, resp.Failed)
		assert.GreaterOrEqual(t, resp.Processed, 4)
	})
}
