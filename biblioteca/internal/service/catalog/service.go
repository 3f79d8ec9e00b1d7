package catalog

import (
	"context"
	"strconv"

	"github.com/bibliotek/biblioteca-service/biblioteca/internal/errs"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/keylock"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/model"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/openlibrary"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/repository"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

// Bibliographic is the remote catalog surface the pipeline consumes.
// nil record with nil error means "not found"; an error is a soft failure
// (timeout, non-success status, malformed body) the pipeline absorbs.
type Bibliographic interface {
	LookupByISBN(ctx context.Context, isbn string) (*openlibrary.Edition, error)
	SearchByTitle(ctx context.Context, title string, limit int) (*openlibrary.SearchDoc, error)
	FetchWork(ctx context.Context, workKey string) (*openlibrary.Work, error)
	FetchAuthor(ctx context.Context, authorKey string) (*openlibrary.Author, error)
}

var _ Bibliographic = (*openlibrary.Client)(nil)

type Service struct {
	log         *zap.Logger
	repo        repository.Repository
	catalog     Bibliographic
	authorLocks *keylock.KeyedMutex
}

func NewService(repo repository.Repository, catalog Bibliographic, log *zap.Logger) *Service {
	return &Service{
		log:         log,
		repo:        repo,
		catalog:     catalog,
		authorLocks: keylock.New(),
	}
}

// Resolve fills a book's catalog fields from the remote catalog: first by
// ISBN, then by free-text title. Writes are buffered and committed only when
// a strategy succeeds; exhaustion of both strategies is ErrNotFound and
// leaves the book untouched.
func (s *Service) Resolve(ctx context.Context, bookUid string) (model.Book, error) {
	book, err := s.repo.GetBook(ctx, bookUid)
	if err != nil {
		return model.Book{}, err
	}

	var (
		data       model.CatalogData
		authorName string
		found      bool
	)

	if book.ISBN != "" {
		found, authorName = s.resolveByISBN(ctx, book.ISBN, &data)
	}
	if !found && book.Name != "" {
		found, authorName = s.resolveByTitle(ctx, book, &data)
	}
	if !found {
		return model.Book{}, errors.Wrap(errs.ErrNotFound, "bibliographic catalog")
	}

	if authorName != "" {
		author, err := s.resolveAuthor(ctx, authorName)
		if err != nil {
			return model.Book{}, err
		}
		data.AuthorID = author.ID
	}

	if err := s.repo.UpdateBookCatalog(ctx, bookUid, data); err != nil {
		return model.Book{}, err
	}
	return s.repo.GetBook(ctx, bookUid)
}

func (s *Service) resolveByISBN(ctx context.Context, isbn string, data *model.CatalogData) (found bool, authorName string) {
	ed, err := s.catalog.LookupByISBN(ctx, isbn)
	if err != nil {
		s.log.Warn("isbn lookup failed", zap.String("isbn", isbn), zap.Error(err))
		return false, ""
	}
	if ed == nil {
		return false, ""
	}

	data.Name = ed.Title
	if len(ed.Publishers) > 0 {
		data.Publisher = ed.Publishers[0]
	}
	data.Pages = ed.NumberOfPages
	data.PublishDate = ed.PublishDate
	if len(ed.Works) > 0 {
		data.WorkKey = openlibrary.NormalizeWorkKey(ed.Works[0].Key)
	}

	if data.WorkKey != "" {
		s.fillFromWork(ctx, data)
	}

	if len(ed.Authors) > 0 {
		author, err := s.catalog.FetchAuthor(ctx, ed.Authors[0].Key)
		if err != nil {
			s.log.Warn("author fetch failed", zap.String("key", ed.Authors[0].Key), zap.Error(err))
		} else if author != nil {
			authorName = author.Name
		}
	}

	return true, authorName
}

func (s *Service) resolveByTitle(ctx context.Context, book model.Book, data *model.CatalogData) (found bool, authorName string) {
	doc, err := s.catalog.SearchByTitle(ctx, book.Name, 1)
	if err != nil {
		s.log.Warn("title search failed", zap.String("title", book.Name), zap.Error(err))
		return false, ""
	}
	if doc == nil {
		return false, ""
	}

	data.Name = doc.Title
	data.WorkKey = openlibrary.NormalizeWorkKey(doc.Key)
	if doc.FirstPublishYear > 0 {
		data.PublishDate = strconv.Itoa(doc.FirstPublishYear)
	}
	if len(doc.Publisher) > 0 {
		data.Publisher = doc.Publisher[0]
	}
	data.Pages = doc.NumberOfPagesMedian
	if len(doc.Subject) > 0 {
		data.Category = doc.Subject[0]
	}
	// the search result may carry an ISBN the record lacks; never overwrite
	if book.ISBN == "" && len(doc.ISBN) > 0 {
		data.ISBN = doc.ISBN[0]
	}
	if len(doc.AuthorName) > 0 {
		authorName = doc.AuthorName[0]
	}

	if data.WorkKey != "" {
		s.fillFromWork(ctx, data)
	}

	return true, authorName
}

// fillFromWork populates category and synopsis from the work record, keeping
// values already set by the current strategy.
func (s *Service) fillFromWork(ctx context.Context, data *model.CatalogData) {
	work, err := s.catalog.FetchWork(ctx, data.WorkKey)
	if err != nil {
		s.log.Warn("work fetch failed", zap.String("key", data.WorkKey), zap.Error(err))
		return
	}
	if work == nil {
		return
	}
	if data.Category == "" && len(work.Subjects) > 0 {
		data.Category = work.Subjects[0]
	}
	if data.Synopsis == "" {
		data.Synopsis = work.Description.Value
	}
}

// resolveAuthor returns the author with the exact name, creating it when
// missing. Creation is serialized per name; the unique index on the name is
// the backstop for other writers.
func (s *Service) resolveAuthor(ctx context.Context, name string) (model.Author, error) {
	s.authorLocks.Lock(name)
	defer s.authorLocks.Unlock(name)

	author, err := s.repo.GetAuthorByName(ctx, name)
	if err == nil {
		return author, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return model.Author{}, err
	}

	author, err = s.repo.CreateAuthor(ctx, name)
	if errors.Is(err, errs.ErrConflict) {
		return s.repo.GetAuthorByName(ctx, name)
	}
	return author, err
}
