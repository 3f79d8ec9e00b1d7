package circulation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bibliotek/biblioteca-service/biblioteca/config"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/errs"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/keylock"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/model"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/queue"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/repository"
	"github.com/bibliotek/biblioteca-service/pkg/kafka"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Service struct {
	log    *zap.Logger
	repo   repository.Repository
	queue  queue.Enqueuer
	policy config.Policy

	loanLocks *keylock.KeyedMutex
	bookLocks *keylock.KeyedMutex

	now func() time.Time
}

func NewService(repo repository.Repository, q queue.Enqueuer, policy config.Policy, log *zap.Logger) *Service {
	return &Service{
		log:       log,
		repo:      repo,
		queue:     q,
		policy:    policy,
		loanLocks: keylock.New(),
		bookLocks: keylock.New(),
		now:       time.Now,
	}
}

func (s *Service) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	return s.repo.CreateBook(ctx, req)
}

func (s *Service) GetBook(ctx context.Context, bookUid string) (model.Book, error) {
	return s.repo.GetBook(ctx, bookUid)
}

func (s *Service) ListBooks(ctx context.Context, page, size int) (model.ListBooks, error) {
	return s.repo.ListBooks(ctx, page, size)
}

func (s *Service) DeleteBook(ctx context.Context, bookUid string) error {
	return s.repo.DeleteBook(ctx, bookUid)
}

func (s *Service) AvailableCopies(ctx context.Context, bookUid string) (int, error) {
	book, err := s.repo.GetBook(ctx, bookUid)
	if err != nil {
		return 0, err
	}
	return book.AvailableCopies, nil
}

func (s *Service) CreatePatron(ctx context.Context, req model.CreatePatronRequest) (model.Patron, error) {
	return s.repo.CreatePatron(ctx, req)
}

func (s *Service) GetPatron(ctx context.Context, patronUid string) (model.Patron, error) {
	return s.repo.GetPatron(ctx, patronUid)
}

func (s *Service) CreateStaff(ctx context.Context, req model.CreateStaffRequest) (model.Staff, error) {
	return s.repo.CreateStaff(ctx, req)
}

func (s *Service) CreateLoan(ctx context.Context, req model.CreateLoanRequest) (model.Loan, error) {
	return s.repo.CreateLoan(ctx, req)
}

func (s *Service) GetLoan(ctx context.Context, loanUid string) (model.Loan, error) {
	return s.repo.GetLoan(ctx, loanUid)
}

func (s *Service) ListFines(ctx context.Context, loanUid string) ([]model.Fine, error) {
	if _, err := s.repo.GetLoan(ctx, loanUid); err != nil {
		return nil, err
	}
	return s.repo.ListFines(ctx, loanUid)
}

// Activate moves a draft loan to ACTIVE. Patron, staff and at least one book
// must be assigned and every referenced book must have a copy available; the
// due date is set exactly once, loan_date + loan period.
func (s *Service) Activate(ctx context.Context, loanUid string) (model.Loan, error) {
	s.loanLocks.Lock(loanUid)
	defer s.loanLocks.Unlock(loanUid)

	loan, err := s.repo.GetLoan(ctx, loanUid)
	if err != nil {
		return model.Loan{}, err
	}
	if loan.State != model.LoanStateDraft {
		return model.Loan{}, errors.Wrapf(errs.ErrInvalidState, "loan is %s", loan.State)
	}
	if loan.PatronUid == "" || loan.StaffUid == "" || len(loan.Books) == 0 {
		return model.Loan{}, errors.Wrap(errs.ErrPrecondition, "loan needs a patron, a staff member and at least one book")
	}

	// lock books in a stable order so overlapping activations cannot deadlock
	bookUids := make([]string, 0, len(loan.Books))
	for _, b := range loan.Books {
		bookUids = append(bookUids, b.BookUid)
	}
	sort.Strings(bookUids)
	for _, uid := range bookUids {
		s.bookLocks.Lock(uid)
	}
	defer func() {
		for _, uid := range bookUids {
			s.bookLocks.Unlock(uid)
		}
	}()

	// all-or-nothing: availability of every book is checked before any mutation
	for _, b := range loan.Books {
		available, err := s.repo.AvailableCopies(ctx, b.ID)
		if err != nil {
			return model.Loan{}, err
		}
		if available <= 0 {
			return model.Loan{}, errors.Wrapf(errs.ErrPrecondition, "no available copies of %q", b.Name)
		}
	}

	loanDate := s.now()
	if loan.LoanDate != nil {
		loanDate = *loan.LoanDate
	}
	dueDate := loanDate.Add(time.Duration(s.policy.LoanPeriodDays) * 24 * time.Hour)

	if err := s.repo.ActivateLoan(ctx, loanUid, loanDate, dueDate); err != nil {
		return model.Loan{}, err
	}
	return s.repo.GetLoan(ctx, loanUid)
}

// Return finalizes an active loan: records the return date, generates the
// late fine when overdue and settles the final state. It is the sole writer
// of RETURNED/FINED, computed after fine generation.
func (s *Service) Return(ctx context.Context, loanUid string) (model.Loan, error) {
	s.loanLocks.Lock(loanUid)
	defer s.loanLocks.Unlock(loanUid)

	loan, err := s.repo.GetLoan(ctx, loanUid)
	if err != nil {
		return model.Loan{}, err
	}
	if loan.State != model.LoanStateActive {
		return model.Loan{}, errors.Wrapf(errs.ErrInvalidState, "loan is %s", loan.State)
	}

	returnDate := s.now()
	if err := s.generateLateFine(ctx, loan, returnDate); err != nil {
		return model.Loan{}, err
	}

	fineCount, err := s.repo.CountFines(ctx, loan.ID)
	if err != nil {
		return model.Loan{}, err
	}
	state := model.LoanStateReturned
	if fineCount > 0 {
		state = model.LoanStateFined
	}

	if err := s.repo.FinishLoan(ctx, loanUid, returnDate, state); err != nil {
		return model.Loan{}, err
	}
	return s.repo.GetLoan(ctx, loanUid)
}

func (s *Service) generateLateFine(ctx context.Context, loan model.Loan, returnDate time.Time) error {
	if loan.DueDate == nil {
		return nil
	}
	daysLate := model.DaysLate(*loan.DueDate, returnDate)
	if daysLate <= 0 {
		return nil
	}

	amount := model.LateFineAmount(s.policy.LateDailyRate, daysLate)
	description := fmt.Sprintf("late return (%d days)", daysLate)
	fine, err := s.repo.CreateFine(ctx, loan.LoanUid, model.FineTypeLate, amount, description, returnDate)
	if err != nil {
		return err
	}
	s.publishFine(fine)
	return nil
}

// CreateManualFine ingests fines issued outside the circulation flow
// (damage, loss, non-return). Amounts are fixed by policy and the loan state
// is left alone: Return settles it.
func (s *Service) CreateManualFine(ctx context.Context, req model.CreateFineRequest) (model.Fine, error) {
	var amount float64
	switch req.Type {
	case model.FineTypeDamage:
		amount = s.policy.DamageFee
	case model.FineTypeLoss:
		amount = s.policy.LossFee
	case model.FineTypeNonReturn:
		amount = s.policy.NonReturnFee
	default:
		return model.Fine{}, errors.Wrapf(errs.ErrPrecondition, "unsupported fine type %q", req.Type)
	}

	fine, err := s.repo.CreateFine(ctx, req.LoanUid, req.Type, amount, req.Description, s.now())
	if err != nil {
		return model.Fine{}, err
	}
	s.publishFine(fine)
	return fine, nil
}

func (s *Service) publishFine(fine model.Fine) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(kafka.FineEventsTopic, fine); err != nil {
		s.log.Warn("publish fine event", zap.String("fineUid", fine.FineUid), zap.Error(err))
	}
}
