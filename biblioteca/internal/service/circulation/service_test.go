package circulation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bibliotek/biblioteca-service/biblioteca/config"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/errs"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/model"
	mock_repository "github.com/bibliotek/biblioteca-service/biblioteca/internal/repository/mocks"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testPolicy = config.Policy{
	LoanPeriodDays: 15,
	LateDailyRate:  5,
	DamageFee:      10,
	LossFee:        20,
	NonReturnFee:   50,
}

func newTestService(t *testing.T, now time.Time) (*Service, *mock_repository.MockRepository) {
	t.Helper()
	c := gomock.NewController(t)
	t.Cleanup(c.Finish)
	repo := mock_repository.NewMockRepository(c)
	svc := NewService(repo, nil, testPolicy, zap.NewExample().Named("test"))
	svc.now = func() time.Time { return now }
	return svc, repo
}

func draftLoan(loanUid string, books ...model.Book) model.Loan {
	return model.Loan{
		ID:        1,
		LoanUid:   loanUid,
		PatronUid: "11111111-0000-0000-0000-000000000001",
		StaffUid:  "22222222-0000-0000-0000-000000000001",
		State:     model.LoanStateDraft,
		Books:     books,
	}
}

func TestService_Activate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	due := now.Add(15 * 24 * time.Hour)
	book := model.Book{ID: 3, BookUid: "33333333-0000-0000-0000-000000000001", Name: "The Odyssey", TotalCopies: 1}

	t.Run("ok sets due date from loan period", func(t *testing.T) {
		svc, repo := newTestService(t, now)
		loan := draftLoan("loan-1", book)

		repo.EXPECT().GetLoan(ctx, "loan-1").Return(loan, nil)
		repo.EXPECT().AvailableCopies(ctx, book.ID).Return(1, nil)
		repo.EXPECT().ActivateLoan(ctx, "loan-1", now, due).Return(nil)

		active := loan
		active.State = model.LoanStateActive
		active.LoanDate, active.DueDate = &now, &due
		repo.EXPECT().GetLoan(ctx, "loan-1").Return(active, nil)

		got, err := svc.Activate(ctx, "loan-1")
		require.NoError(t, err)
		require.Equal(t, model.LoanStateActive, got.State)
		require.Equal(t, due, *got.DueDate)
	})

	t.Run("preset loan date is kept", func(t *testing.T) {
		svc, repo := newTestService(t, now)
		loan := draftLoan("loan-1", book)
		preset := now.Add(-48 * time.Hour)
		loan.LoanDate = &preset

		repo.EXPECT().GetLoan(ctx, "loan-1").Return(loan, nil)
		repo.EXPECT().AvailableCopies(ctx, book.ID).Return(1, nil)
		repo.EXPECT().ActivateLoan(ctx, "loan-1", preset, preset.Add(15*24*time.Hour)).Return(nil)
		repo.EXPECT().GetLoan(ctx, "loan-1").Return(loan, nil)

		_, err := svc.Activate(ctx, "loan-1")
		require.NoError(t, err)
	})

	t.Run("no available copies", func(t *testing.T) {
		svc, repo := newTestService(t, now)
		loan := draftLoan("loan-1", book)

		repo.EXPECT().GetLoan(ctx, "loan-1").Return(loan, nil)
		repo.EXPECT().AvailableCopies(ctx, book.ID).Return(0, nil)

		_, err := svc.Activate(ctx, "loan-1")
		require.ErrorIs(t, err, errs.ErrPrecondition)
	})

	t.Run("missing patron", func(t *testing.T) {
		svc, repo := newTestService(t, now)
		loan := draftLoan("loan-1", book)
		loan.PatronUid = ""

		repo.EXPECT().GetLoan(ctx, "loan-1").Return(loan, nil)

		_, err := svc.Activate(ctx, "loan-1")
		require.ErrorIs(t, err, errs.ErrPrecondition)
	})

	t.Run("no books", func(t *testing.T) {
		svc, repo := newTestService(t, now)
		loan := draftLoan("loan-1")

		repo.EXPECT().GetLoan(ctx, "loan-1").Return(loan, nil)

		_, err := svc.Activate(ctx, "loan-1")
		require.ErrorIs(t, err, errs.ErrPrecondition)
	})

	t.Run("already active", func(t *testing.T) {
		svc, repo := newTestService(t, now)
		loan := draftLoan("loan-1", book)
		loan.State = model.LoanStateActive

		repo.EXPECT().GetLoan(ctx, "loan-1").Return(loan, nil)

		_, err := svc.Activate(ctx, "loan-1")
		require.ErrorIs(t, err, errs.ErrInvalidState)
	})
}

// Two activations race for the last copy of one book: exactly one may win.
func TestService_Activate_LastCopyRace(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	book := model.Book{ID: 3, BookUid: "33333333-0000-0000-0000-000000000001", Name: "The Odyssey", TotalCopies: 1}

	svc, repo := newTestService(t, now)

	var (
		mu        sync.Mutex
		available = 1
	)
	repo.EXPECT().GetLoan(gomock.Any(), gomock.Any()).AnyTimes().
		DoAndReturn(func(_ context.Context, loanUid string) (model.Loan, error) {
			return draftLoan(loanUid, book), nil
		})
	repo.EXPECT().AvailableCopies(gomock.Any(), book.ID).AnyTimes().
		DoAndReturn(func(context.Context, int) (int, error) {
			mu.Lock()
			defer mu.Unlock()
			return available, nil
		})
	repo.EXPECT().ActivateLoan(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(1).
		DoAndReturn(func(context.Context, string, time.Time, time.Time) error {
			mu.Lock()
			defer mu.Unlock()
			available--
			return nil
		})

	errc := make(chan error, 2)
	for _, uid := range []string{"loan-1", "loan-2"} {
		uid := uid
		go func() {
			_, err := svc.Activate(ctx, uid)
			errc <- err
		}()
	}

	var won, lost int
	for i := 0; i < 2; i++ {
		err := <-errc
		if err == nil {
			won++
		} else {
			require.ErrorIs(t, err, errs.ErrPrecondition)
			lost++
		}
	}
	require.Equal(t, 1, won)
	require.Equal(t, 1, lost)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, available, 0)
}

func TestService_Return(t *testing.T) {
	ctx := context.Background()
	due := time.Date(2024, 5, 25, 12, 0, 0, 0, time.UTC)

	activeLoan := func() model.Loan {
		loan := draftLoan("loan-1", model.Book{ID: 3, BookUid: "b", Name: "The Odyssey"})
		loan.State = model.LoanStateActive
		loanDate := due.Add(-15 * 24 * time.Hour)
		loan.LoanDate, loan.DueDate = &loanDate, &due
		return loan
	}

	t.Run("on time, no fine, returned", func(t *testing.T) {
		svc, repo := newTestService(t, due)
		loan := activeLoan()

		repo.EXPECT().GetLoan(ctx, "loan-1").Return(loan, nil)
		repo.EXPECT().CountFines(ctx, loan.ID).Return(0, nil)
		repo.EXPECT().FinishLoan(ctx, "loan-1", due, model.LoanStateReturned).Return(nil)
		finished := loan
		finished.State = model.LoanStateReturned
		repo.EXPECT().GetLoan(ctx, "loan-1").Return(finished, nil)

		got, err := svc.Return(ctx, "loan-1")
		require.NoError(t, err)
		require.Equal(t, model.LoanStateReturned, got.State)
	})

	t.Run("three days late, one fine, fined", func(t *testing.T) {
		returned := due.Add(3 * 24 * time.Hour)
		svc, repo := newTestService(t, returned)
		loan := activeLoan()

		repo.EXPECT().GetLoan(ctx, "loan-1").Return(loan, nil)
		repo.EXPECT().
			CreateFine(ctx, "loan-1", model.FineTypeLate, 15.0, "late return (3 days)", returned).
			Return(model.Fine{FineUid: "f", LoanUid: "loan-1", Type: model.FineTypeLate, Amount: 15}, nil)
		repo.EXPECT().CountFines(ctx, loan.ID).Return(1, nil)
		repo.EXPECT().FinishLoan(ctx, "loan-1", returned, model.LoanStateFined).Return(nil)
		finished := loan
		finished.State = model.LoanStateFined
		repo.EXPECT().GetLoan(ctx, "loan-1").Return(finished, nil)

		got, err := svc.Return(ctx, "loan-1")
		require.NoError(t, err)
		require.Equal(t, model.LoanStateFined, got.State)
	})

	t.Run("pre-existing manual fine settles to fined even on time", func(t *testing.T) {
		svc, repo := newTestService(t, due)
		loan := activeLoan()

		repo.EXPECT().GetLoan(ctx, "loan-1").Return(loan, nil)
		repo.EXPECT().CountFines(ctx, loan.ID).Return(1, nil)
		repo.EXPECT().FinishLoan(ctx, "loan-1", due, model.LoanStateFined).Return(nil)
		repo.EXPECT().GetLoan(ctx, "loan-1").Return(loan, nil)

		_, err := svc.Return(ctx, "loan-1")
		require.NoError(t, err)
	})

	t.Run("already finalized, no second fine", func(t *testing.T) {
		svc, repo := newTestService(t, due.Add(24*time.Hour))
		loan := activeLoan()
		loan.State = model.LoanStateFined

		repo.EXPECT().GetLoan(ctx, "loan-1").Return(loan, nil)

		_, err := svc.Return(ctx, "loan-1")
		require.ErrorIs(t, err, errs.ErrInvalidState)
	})
}

func TestService_CreateManualFine(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		ftype      model.FineType
		wantAmount float64
	}{
		{name: "damage", ftype: model.FineTypeDamage, wantAmount: 10},
		{name: "loss", ftype: model.FineTypeLoss, wantAmount: 20},
		{name: "non return", ftype: model.FineTypeNonReturn, wantAmount: 50},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService(t, now)
			repo.EXPECT().
				CreateFine(ctx, "loan-1", tt.ftype, tt.wantAmount, "desc", now).
				Return(model.Fine{Type: tt.ftype, Amount: tt.wantAmount}, nil)

			fine, err := svc.CreateManualFine(ctx, model.CreateFineRequest{
				LoanUid:     "loan-1",
				Type:        tt.ftype,
				Description: "desc",
			})
			require.NoError(t, err)
			require.Equal(t, tt.wantAmount, fine.Amount)
		})
	}

	t.Run("late is not issuable by hand", func(t *testing.T) {
		svc, _ := newTestService(t, now)
		_, err := svc.CreateManualFine(ctx, model.CreateFineRequest{LoanUid: "loan-1", Type: model.FineTypeLate})
		require.ErrorIs(t, err, errs.ErrPrecondition)
	})
}
