package repository

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/errs"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

//go:generate go run github.com/golang/mock/mockgen -source=repository.go -destination=mocks/mock.go

type Repository interface {
	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	GetBook(ctx context.Context, bookUid string) (model.Book, error)
	ListBooks(ctx context.Context, page, size int) (model.ListBooks, error)
	DeleteBook(ctx context.Context, bookUid string) error
	UpdateBookCatalog(ctx context.Context, bookUid string, data model.CatalogData) error
	AvailableCopies(ctx context.Context, bookID int) (int, error)

	GetAuthorByName(ctx context.Context, name string) (model.Author, error)
	CreateAuthor(ctx context.Context, name string) (model.Author, error)

	CreatePatron(ctx context.Context, req model.CreatePatronRequest) (model.Patron, error)
	GetPatron(ctx context.Context, patronUid string) (model.Patron, error)
	CreateStaff(ctx context.Context, req model.CreateStaffRequest) (model.Staff, error)

	CreateLoan(ctx context.Context, req model.CreateLoanRequest) (model.Loan, error)
	GetLoan(ctx context.Context, loanUid string) (model.Loan, error)
	ActivateLoan(ctx context.Context, loanUid string, loanDate, dueDate time.Time) error
	FinishLoan(ctx context.Context, loanUid string, returnDate time.Time, state model.LoanState) error

	CreateFine(ctx context.Context, loanUid string, ftype model.FineType, amount float64, description string, date time.Time) (model.Fine, error)
	CountFines(ctx context.Context, loanID int) (int, error)
	ListFines(ctx context.Context, loanUid string) ([]model.Fine, error)
}

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	authorsTableName   = `authors`
	booksTableName     = `books`
	patronsTableName   = `patrons`
	staffTableName     = `staff`
	loansTableName     = `loans`
	loanBooksTableName = `loan_books`
	finesTableName     = `fines`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// availableCopiesExpr derives availability from loan states; total_copies is
// authoritative and never decremented.
const availableCopiesExpr = `greatest(b.total_copies - (
	select count(*) from loans l
	join loan_books lb on lb.loan_id = l.id
	where lb.book_id = b.id and l.state in ('ACTIVE', 'FINED')
), 0)`

const bookColumns = `b.id, b.book_uid, b.name, b.isbn,
	coalesce(a.author_uid::text, '') as author_uid,
	coalesce(a.name, '') as author_name,
	b.category, b.location, b.publisher, b.pages, b.publish_date,
	b.work_key, b.synopsis, b.total_copies,
	` + availableCopiesExpr + ` as available_copies`

func (r *repository) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	q, args, err := qb.Insert(booksTableName).
		Columns("book_uid", "name", "isbn", "category", "location", "total_copies").
		Values(uuid.New(), req.Name, req.ISBN, req.Category, req.Location, req.TotalCopies).
		Suffix("returning book_uid").
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var bookUid string
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&bookUid); err != nil {
		r.log.Error("CreateBook", zap.String("q", q), zap.Any("args", args))
		return model.Book{}, err
	}
	return r.GetBook(ctx, bookUid)
}

func (r *repository) GetBook(ctx context.Context, bookUid string) (model.Book, error) {
	q := `select ` + bookColumns + `
	from books b
	left join authors a on a.id = b.author_id
	where b.book_uid = $1`

	var book model.Book
	if err := r.db.GetContext(ctx, &book, q, bookUid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	return book, nil
}

func (r *repository) ListBooks(ctx context.Context, page, size int) (model.ListBooks, error) {
	q := `select ` + bookColumns + `
	from books b
	left join authors a on a.id = b.author_id
	order by b.id`
	args := make([]any, 0, 2)
	if page != 0 && size != 0 {
		q += ` limit $1 offset $2`
		args = append(args, size, (page-1)*size)
	}

	var books []model.Book
	if err := r.db.SelectContext(ctx, &books, q, args...); err != nil {
		return model.ListBooks{}, err
	}

	return model.ListBooks{
		Paging: model.Paging{
			Page:          page,
			PageSize:      size,
			TotalElements: len(books),
		},
		Items: books,
	}, nil
}

func (r *repository) DeleteBook(ctx context.Context, bookUid string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var refs int
	if err := tx.QueryRowContext(ctx, `
	select count(*) from loan_books lb
	join books b on b.id = lb.book_id
	where b.book_uid = $1`, bookUid).Scan(&refs); err != nil {
		return err
	}
	if refs > 0 {
		return errs.ErrHasReferences
	}

	res, err := tx.ExecContext(ctx, `delete from books where book_uid = $1`, bookUid)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrNotFound
	}
	return tx.Commit()
}

func (r *repository) UpdateBookCatalog(ctx context.Context, bookUid string, data model.CatalogData) error {
	upd := qb.Update(booksTableName)
	set := 0
	apply := func(col string, v any, ok bool) {
		if ok {
			upd = upd.Set(col, v)
			set++
		}
	}
	apply("name", data.Name, data.Name != "")
	apply("isbn", data.ISBN, data.ISBN != "")
	apply("publisher", data.Publisher, data.Publisher != "")
	apply("pages", data.Pages, data.Pages > 0)
	apply("publish_date", data.PublishDate, data.PublishDate != "")
	apply("category", data.Category, data.Category != "")
	apply("synopsis", data.Synopsis, data.Synopsis != "")
	apply("work_key", data.WorkKey, data.WorkKey != "")
	apply("author_id", data.AuthorID, data.AuthorID > 0)
	if set == 0 {
		return nil
	}

	q, args, err := upd.Where(sq.Eq{"book_uid": bookUid}).ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		r.log.Error("UpdateBookCatalog", zap.String("q", q), zap.Any("args", args))
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repository) AvailableCopies(ctx context.Context, bookID int) (int, error) {
	q := `select ` + availableCopiesExpr + ` from books b where b.id = $1`

	var available int
	if err := r.db.QueryRowContext(ctx, q, bookID).Scan(&available); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, errs.ErrNotFound
		}
		return 0, err
	}
	return available, nil
}

func (r *repository) GetAuthorByName(ctx context.Context, name string) (model.Author, error) {
	q, args, err := qb.Select("id", "author_uid", "name", "nationality", "biography", "birth_date").
		From(authorsTableName).
		Where(sq.Eq{"name": name}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Author{}, err
	}

	var author model.Author
	if err := r.db.GetContext(ctx, &author, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Author{}, errs.ErrNotFound
		}
		return model.Author{}, err
	}
	return author, nil
}

func (r *repository) CreateAuthor(ctx context.Context, name string) (model.Author, error) {
	q, args, err := qb.Insert(authorsTableName).
		Columns("author_uid", "name").
		Values(uuid.New(), name).
		Suffix("returning id, author_uid, name, nationality, biography, birth_date").
		ToSql()
	if err != nil {
		return model.Author{}, err
	}

	var author model.Author
	if err := r.db.GetContext(ctx, &author, q, args...); err != nil {
		if isUniqueViolation(err) {
			return model.Author{}, errs.ErrConflict
		}
		return model.Author{}, err
	}
	return author, nil
}

func (r *repository) CreatePatron(ctx context.Context, req model.CreatePatronRequest) (model.Patron, error) {
	q, args, err := qb.Insert(patronsTableName).
		Columns("patron_uid", "full_name", "national_id", "email", "phone", "address").
		Values(uuid.New(), req.FullName, req.NationalID, req.Email, req.Phone, req.Address).
		Suffix("returning id, patron_uid, full_name, national_id, email, phone, address, registered_at").
		ToSql()
	if err != nil {
		return model.Patron{}, err
	}

	var patron model.Patron
	if err := r.db.GetContext(ctx, &patron, q, args...); err != nil {
		r.log.Error("CreatePatron", zap.String("q", q), zap.Any("args", args))
		return model.Patron{}, err
	}
	return patron, nil
}

func (r *repository) GetPatron(ctx context.Context, patronUid string) (model.Patron, error) {
	q, args, err := qb.Select("id", "patron_uid", "full_name", "national_id", "email", "phone", "address", "registered_at").
		From(patronsTableName).
		Where(sq.Eq{"patron_uid": patronUid}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Patron{}, err
	}

	var patron model.Patron
	if err := r.db.GetContext(ctx, &patron, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Patron{}, errs.ErrNotFound
		}
		return model.Patron{}, err
	}
	return patron, nil
}

func (r *repository) CreateStaff(ctx context.Context, req model.CreateStaffRequest) (model.Staff, error) {
	q, args, err := qb.Insert(staffTableName).
		Columns("staff_uid", "first_name", "last_name", "code").
		Values(uuid.New(), req.FirstName, req.LastName, req.Code).
		Suffix("returning id, staff_uid, first_name, last_name, code").
		ToSql()
	if err != nil {
		return model.Staff{}, err
	}

	var st model.Staff
	if err := r.db.GetContext(ctx, &st, q, args...); err != nil {
		if isUniqueViolation(err) {
			return model.Staff{}, errs.ErrConflict
		}
		return model.Staff{}, err
	}
	return st, nil
}

func (r *repository) CreateLoan(ctx context.Context, req model.CreateLoanRequest) (model.Loan, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Loan{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	var patronID, staffID sql.NullInt32
	if req.PatronUid != "" {
		if err := tx.QueryRowContext(ctx,
			`select id from patrons where patron_uid = $1`, req.PatronUid).Scan(&patronID.Int32); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.Loan{}, errors.Wrap(errs.ErrNotFound, "patron")
			}
			return model.Loan{}, err
		}
		patronID.Valid = true
	}
	if req.StaffUid != "" {
		if err := tx.QueryRowContext(ctx,
			`select id from staff where staff_uid = $1`, req.StaffUid).Scan(&staffID.Int32); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.Loan{}, errors.Wrap(errs.ErrNotFound, "staff")
			}
			return model.Loan{}, err
		}
		staffID.Valid = true
	}

	loanUid := uuid.New().String()
	var loanID int
	if err := tx.QueryRowContext(ctx, `
	insert into loans (loan_uid, name, patron_id, staff_id, state)
	values ($1, $2, $3, $4, 'DRAFT')
	returning id`, loanUid, req.Name, patronID, staffID).Scan(&loanID); err != nil {
		return model.Loan{}, err
	}

	for _, bookUid := range req.BookUids {
		res, err := tx.ExecContext(ctx, `
		insert into loan_books (loan_id, book_id)
		select $1, id from books where book_uid = $2`, loanID, bookUid)
		if err != nil {
			return model.Loan{}, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return model.Loan{}, errors.Wrap(errs.ErrNotFound, "book "+bookUid)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Loan{}, err
	}
	return r.GetLoan(ctx, loanUid)
}

func (r *repository) GetLoan(ctx context.Context, loanUid string) (model.Loan, error) {
	q := `
	select l.id, l.loan_uid, l.name,
		coalesce(p.patron_uid::text, '') as patron_uid,
		coalesce(s.staff_uid::text, '') as staff_uid,
		l.loan_date, l.due_date, l.return_date, l.state,
		(select count(*) from fines f where f.loan_id = l.id) as fine_count,
		coalesce((select sum(f.amount) from fines f where f.loan_id = l.id), 0) as fine_total
	from loans l
	left join patrons p on p.id = l.patron_id
	left join staff s on s.id = l.staff_id
	where l.loan_uid = $1`

	var loan model.Loan
	if err := r.db.GetContext(ctx, &loan, q, loanUid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Loan{}, errs.ErrNotFound
		}
		return model.Loan{}, err
	}

	booksQ := `select ` + bookColumns + `
	from books b
	join loan_books lb on lb.book_id = b.id
	left join authors a on a.id = b.author_id
	where lb.loan_id = $1
	order by b.book_uid`
	if err := r.db.SelectContext(ctx, &loan.Books, booksQ, loan.ID); err != nil {
		return model.Loan{}, err
	}
	return loan, nil
}

func (r *repository) ActivateLoan(ctx context.Context, loanUid string, loanDate, dueDate time.Time) error {
	// the state predicate keeps a concurrent second activation from
	// rewriting due_date
	res, err := r.db.ExecContext(ctx, `
	update loans set loan_date = $2, due_date = $3, state = 'ACTIVE'
	where loan_uid = $1 and state = 'DRAFT'`, loanUid, loanDate, dueDate)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrInvalidState
	}
	return nil
}

func (r *repository) FinishLoan(ctx context.Context, loanUid string, returnDate time.Time, state model.LoanState) error {
	res, err := r.db.ExecContext(ctx, `
	update loans set return_date = $2, state = $3
	where loan_uid = $1 and state = 'ACTIVE'`, loanUid, returnDate, string(state))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrInvalidState
	}
	return nil
}

func (r *repository) CreateFine(ctx context.Context, loanUid string, ftype model.FineType, amount float64, description string, date time.Time) (model.Fine, error) {
	q := `
	insert into fines (fine_uid, patron_id, loan_id, type, amount, date, description)
	select $1, l.patron_id, l.id, $3, $4, $5, $6
	from loans l where l.loan_uid = $2
	returning id, fine_uid, type, amount, date, description`

	var fine model.Fine
	if err := r.db.GetContext(ctx, &fine, q,
		uuid.New(), loanUid, string(ftype), amount, date, description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Fine{}, errs.ErrNotFound
		}
		r.log.Error("CreateFine", zap.String("loanUid", loanUid), zap.Error(err))
		return model.Fine{}, err
	}
	fine.LoanUid = loanUid

	if err := r.db.QueryRowContext(ctx, `
	select coalesce(p.patron_uid::text, '')
	from loans l
	left join patrons p on p.id = l.patron_id
	where l.loan_uid = $1`, loanUid).Scan(&fine.PatronUid); err != nil {
		return model.Fine{}, err
	}
	return fine, nil
}

func (r *repository) CountFines(ctx context.Context, loanID int) (int, error) {
	q, args, err := qb.Select("count(*)").
		From(finesTableName).
		Where(sq.Eq{"loan_id": loanID}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var count int
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) ListFines(ctx context.Context, loanUid string) ([]model.Fine, error) {
	q := `
	select f.id, f.fine_uid,
		coalesce(p.patron_uid::text, '') as patron_uid,
		l.loan_uid, f.type, f.amount, f.date, f.description
	from fines f
	join loans l on l.id = f.loan_id
	left join patrons p on p.id = f.patron_id
	where l.loan_uid = $1
	order by f.id`

	var fines []model.Fine
	if err := r.db.SelectContext(ctx, &fines, q, loanUid); err != nil {
		return nil, err
	}
	return fines, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
