package model

import (
	"time"
)

type Paging struct {
	Page          int `json:"page"`
	PageSize      int `json:"pageSize"`
	TotalElements int `json:"totalElements"`
}

type ListBooks struct {
	Paging `json:",inline"`
	Items  []Book
}

type Book struct {
	ID         int    `json:"-" db:"id"`
	BookUid    string `json:"bookUid" db:"book_uid"`
	Name       string `json:"name" db:"name"`
	ISBN       string `json:"isbn" db:"isbn"`
	AuthorUid  string `json:"authorUid,omitempty" db:"author_uid"`
	AuthorName string `json:"authorName,omitempty" db:"author_name"`
	Category   string `json:"category" db:"category"`
	Location   string `json:"location" db:"location"`

	// catalog enrichment
	Publisher   string `json:"publisher" db:"publisher"`
	Pages       int    `json:"pages" db:"pages"`
	PublishDate string `json:"publishDate" db:"publish_date"`
	WorkKey     string `json:"workKey" db:"work_key"`
	Synopsis    string `json:"synopsis" db:"synopsis"`

	TotalCopies int `json:"totalCopies" db:"total_copies"`
	// derived from loan states, never stored
	AvailableCopies int `json:"availableCopies" db:"available_copies"`
}

type Author struct {
	ID          int    `json:"-" db:"id"`
	AuthorUid   string `json:"authorUid" db:"author_uid"`
	Name        string `json:"name" db:"name"`
	Nationality string `json:"nationality" db:"nationality"`
	Biography   string `json:"biography" db:"biography"`
	BirthDate   string `json:"birthDate" db:"birth_date"`
}

type Patron struct {
	ID           int       `json:"-" db:"id"`
	PatronUid    string    `json:"patronUid" db:"patron_uid"`
	FullName     string    `json:"fullName" db:"full_name"`
	NationalID   string    `json:"nationalID" db:"national_id"`
	Email        string    `json:"email" db:"email"`
	Phone        string    `json:"phone" db:"phone"`
	Address      string    `json:"address" db:"address"`
	RegisteredAt time.Time `json:"registeredAt" db:"registered_at"`
}

type Staff struct {
	ID        int    `json:"-" db:"id"`
	StaffUid  string `json:"staffUid" db:"staff_uid"`
	FirstName string `json:"firstName" db:"first_name"`
	LastName  string `json:"lastName" db:"last_name"`
	Code      string `json:"code" db:"code"`
}

type LoanState string

const (
	LoanStateDraft    LoanState = "DRAFT"
	LoanStateActive   LoanState = "ACTIVE"
	LoanStateReturned LoanState = "RETURNED"
	LoanStateFined    LoanState = "FINED"
)

type Loan struct {
	ID         int        `json:"-" db:"id"`
	LoanUid    string     `json:"loanUid" db:"loan_uid"`
	Name       string     `json:"name" db:"name"`
	PatronUid  string     `json:"patronUid" db:"patron_uid"`
	StaffUid   string     `json:"staffUid" db:"staff_uid"`
	LoanDate   *time.Time `json:"loanDate,omitempty" db:"loan_date"`
	DueDate    *time.Time `json:"dueDate,omitempty" db:"due_date"`
	ReturnDate *time.Time `json:"returnDate,omitempty" db:"return_date"`
	State      LoanState  `json:"state" db:"state"`
	FineCount  int        `json:"fineCount" db:"fine_count"`
	FineTotal  float64    `json:"fineTotal" db:"fine_total"`
	Books      []Book     `json:"books"`
}

type FineType string

const (
	FineTypeLate      FineType = "LATE"
	FineTypeDamage    FineType = "DAMAGE"
	FineTypeLoss      FineType = "LOSS"
	FineTypeNonReturn FineType = "NON_RETURN"
)

type Fine struct {
	ID          int       `json:"-" db:"id"`
	FineUid     string    `json:"fineUid" db:"fine_uid"`
	PatronUid   string    `json:"patronUid" db:"patron_uid"`
	LoanUid     string    `json:"loanUid" db:"loan_uid"`
	Type        FineType  `json:"type" db:"type"`
	Amount      float64   `json:"amount" db:"amount"`
	Date        time.Time `json:"date" db:"date"`
	Description string    `json:"description" db:"description"`
}

type CreateBookRequest struct {
	Name        string `json:"name" validate:"required"`
	ISBN        string `json:"isbn"`
	Category    string `json:"category"`
	Location    string `json:"location"`
	TotalCopies int    `json:"totalCopies" validate:"gte=0"`
}

type CreatePatronRequest struct {
	FullName   string `json:"fullName" validate:"required"`
	NationalID string `json:"nationalID" validate:"required,cedula"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
}

type CreateStaffRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Code      string `json:"code" validate:"required"`
}

type CreateLoanRequest struct {
	Name      string   `json:"name"`
	PatronUid string   `json:"patronUid"`
	StaffUid  string   `json:"staffUid"`
	BookUids  []string `json:"bookUids"`
}

// CreateFineRequest arrives over the fines topic for fines issued outside the
// circulation flow.
type CreateFineRequest struct {
	LoanUid     string   `json:"loanUid" validate:"required"`
	Type        FineType `json:"type" validate:"required,oneof=DAMAGE LOSS NON_RETURN"`
	Description string   `json:"description"`
}

// CatalogData is the buffered result of a metadata resolution; it is written
// to the book only once the whole resolution has succeeded.
type CatalogData struct {
	Name        string
	ISBN        string
	Publisher   string
	Pages       int
	PublishDate string
	Category    string
	Synopsis    string
	WorkKey     string
	AuthorID    int
}

// DaysLate counts whole 24h periods between the due date and the return
// moment. Zero or negative means the loan came back in time.
func DaysLate(due, returned time.Time) int {
	return int(returned.Sub(due).Hours() / 24)
}

// LateFineAmount charges the daily rate per late day, with a one day minimum.
func LateFineAmount(dailyRate float64, daysLate int) float64 {
	if daysLate < 1 {
		daysLate = 1
	}
	return dailyRate * float64(daysLate)
}
