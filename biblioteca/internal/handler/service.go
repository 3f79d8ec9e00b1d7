package handler

import (
	"context"

	"github.com/bibliotek/biblioteca-service/biblioteca/internal/model"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/service/catalog"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/service/circulation"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type CirculationService interface {
	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	GetBook(ctx context.Context, bookUid string) (model.Book, error)
	ListBooks(ctx context.Context, page, size int) (model.ListBooks, error)
	DeleteBook(ctx context.Context, bookUid string) error
	AvailableCopies(ctx context.Context, bookUid string) (int, error)

	CreatePatron(ctx context.Context, req model.CreatePatronRequest) (model.Patron, error)
	GetPatron(ctx context.Context, patronUid string) (model.Patron, error)
	CreateStaff(ctx context.Context, req model.CreateStaffRequest) (model.Staff, error)

	CreateLoan(ctx context.Context, req model.CreateLoanRequest) (model.Loan, error)
	GetLoan(ctx context.Context, loanUid string) (model.Loan, error)
	Activate(ctx context.Context, loanUid string) (model.Loan, error)
	Return(ctx context.Context, loanUid string) (model.Loan, error)

	CreateManualFine(ctx context.Context, req model.CreateFineRequest) (model.Fine, error)
	ListFines(ctx context.Context, loanUid string) ([]model.Fine, error)
}

type CatalogService interface {
	Resolve(ctx context.Context, bookUid string) (model.Book, error)
}

var (
	_ CirculationService = (*circulation.Service)(nil)
	_ CatalogService     = (*catalog.Service)(nil)
)
