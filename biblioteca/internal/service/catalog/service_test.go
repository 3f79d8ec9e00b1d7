package catalog_test

import (
	"context"
	"testing"

	"github.com/bibliotek/biblioteca-service/biblioteca/internal/errs"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/model"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/openlibrary"
	mock_repository "github.com/bibliotek/biblioteca-service/biblioteca/internal/repository/mocks"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/service/catalog"
	mock_catalog "github.com/bibliotek/biblioteca-service/biblioteca/internal/service/catalog/mocks"
	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const bookUid = "44444444-0000-0000-0000-000000000001"

func newTestService(t *testing.T) (*catalog.Service, *mock_repository.MockRepository, *mock_catalog.MockBibliographic) {
	t.Helper()
	c := gomock.NewController(t)
	t.Cleanup(c.Finish)
	repo := mock_repository.NewMockRepository(c)
	remote := mock_catalog.NewMockBibliographic(c)
	return catalog.NewService(repo, remote, zap.NewExample().Named("test")), repo, remote
}

func TestService_Resolve_ByISBN(t *testing.T) {
	ctx := context.Background()
	svc, repo, remote := newTestService(t)

	book := model.Book{ID: 4, BookUid: bookUid, Name: "odyssey", ISBN: "9780140449136"}
	repo.EXPECT().GetBook(ctx, bookUid).Return(book, nil)

	remote.EXPECT().LookupByISBN(ctx, "9780140449136").Return(&openlibrary.Edition{
		Title:         "The Odyssey",
		Publishers:    []string{"Penguin Classics"},
		NumberOfPages: 541,
		PublishDate:   "1996",
		Works:         []openlibrary.KeyRef{{Key: "/works/OL61982W"}},
		Authors:       []openlibrary.KeyRef{{Key: "/authors/OL448939A"}},
	}, nil)
	remote.EXPECT().FetchWork(ctx, "/works/OL61982W").Return(&openlibrary.Work{
		Description: openlibrary.Text{Value: "An epic poem."},
		Subjects:    []string{"Epic poetry, Greek"},
	}, nil)
	remote.EXPECT().FetchAuthor(ctx, "/authors/OL448939A").Return(&openlibrary.Author{Name: "Homer"}, nil)

	repo.EXPECT().GetAuthorByName(ctx, "Homer").Return(model.Author{}, errs.ErrNotFound)
	repo.EXPECT().CreateAuthor(ctx, "Homer").Return(model.Author{ID: 7, Name: "Homer"}, nil)

	repo.EXPECT().UpdateBookCatalog(ctx, bookUid, model.CatalogData{
		Name:        "The Odyssey",
		Publisher:   "Penguin Classics",
		Pages:       541,
		PublishDate: "1996",
		Category:    "Epic poetry, Greek",
		Synopsis:    "An epic poem.",
		WorkKey:     "/works/OL61982W",
		AuthorID:    7,
	}).Return(nil)

	enriched := book
	enriched.Name, enriched.AuthorName = "The Odyssey", "Homer"
	repo.EXPECT().GetBook(ctx, bookUid).Return(enriched, nil)

	got, err := svc.Resolve(ctx, bookUid)
	require.NoError(t, err)
	require.Equal(t, "The Odyssey", got.Name)
	require.Equal(t, "Homer", got.AuthorName)
}

// The ISBN strategy soft-fails, the title search takes over, and the stored
// ISBN survives whatever the search result carries.
func TestService_Resolve_TitleFallbackKeepsISBN(t *testing.T) {
	ctx := context.Background()
	svc, repo, remote := newTestService(t)

	book := model.Book{ID: 4, BookUid: bookUid, Name: "The Odyssey", ISBN: "9780140449136"}
	repo.EXPECT().GetBook(ctx, bookUid).Return(book, nil)

	remote.EXPECT().LookupByISBN(ctx, "9780140449136").
		Return(nil, errors.New("openlibrary /isbn/9780140449136.json: status 500"))
	remote.EXPECT().SearchByTitle(ctx, "The Odyssey", 1).Return(&openlibrary.SearchDoc{
		Title:            "The Odyssey",
		Key:              "/works/OL61982W",
		FirstPublishYear: 1996,
		ISBN:             []string{"0000000000"},
		AuthorName:       []string{"Homer"},
	}, nil)
	remote.EXPECT().FetchWork(ctx, "/works/OL61982W").Return(nil, nil)

	repo.EXPECT().GetAuthorByName(ctx, "Homer").Return(model.Author{ID: 7, Name: "Homer"}, nil)
	repo.EXPECT().UpdateBookCatalog(ctx, bookUid, model.CatalogData{
		Name:        "The Odyssey",
		PublishDate: "1996",
		WorkKey:     "/works/OL61982W",
		AuthorID:    7,
	}).Return(nil)
	repo.EXPECT().GetBook(ctx, bookUid).Return(book, nil)

	got, err := svc.Resolve(ctx, bookUid)
	require.NoError(t, err)
	require.Equal(t, "9780140449136", got.ISBN)
}

func TestService_Resolve_TitleFillsMissingISBN(t *testing.T) {
	ctx := context.Background()
	svc, repo, remote := newTestService(t)

	book := model.Book{ID: 4, BookUid: bookUid, Name: "The Odyssey"}
	repo.EXPECT().GetBook(ctx, bookUid).Return(book, nil)

	remote.EXPECT().SearchByTitle(ctx, "The Odyssey", 1).Return(&openlibrary.SearchDoc{
		Title: "The Odyssey",
		Key:   "/works/OL61982W",
		ISBN:  []string{"9780140449136"},
	}, nil)
	remote.EXPECT().FetchWork(ctx, "/works/OL61982W").Return(nil, nil)

	repo.EXPECT().UpdateBookCatalog(ctx, bookUid, model.CatalogData{
		Name:    "The Odyssey",
		ISBN:    "9780140449136",
		WorkKey: "/works/OL61982W",
	}).Return(nil)
	repo.EXPECT().GetBook(ctx, bookUid).Return(book, nil)

	_, err := svc.Resolve(ctx, bookUid)
	require.NoError(t, err)
}

func TestService_Resolve_BothStrategiesExhausted(t *testing.T) {
	ctx := context.Background()
	svc, repo, remote := newTestService(t)

	book := model.Book{ID: 4, BookUid: bookUid, Name: "no such book", ISBN: "9999999999999"}
	repo.EXPECT().GetBook(ctx, bookUid).Return(book, nil)

	remote.EXPECT().LookupByISBN(ctx, "9999999999999").Return(nil, nil)
	remote.EXPECT().SearchByTitle(ctx, "no such book", 1).Return(nil, nil)

	_, err := svc.Resolve(ctx, bookUid)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestService_Resolve_AuthorCreateConflictFallsBack(t *testing.T) {
	ctx := context.Background()
	svc, repo, remote := newTestService(t)

	book := model.Book{ID: 4, BookUid: bookUid, Name: "The Odyssey"}
	repo.EXPECT().GetBook(ctx, bookUid).Return(book, nil)

	remote.EXPECT().SearchByTitle(ctx, "The Odyssey", 1).Return(&openlibrary.SearchDoc{
		Title:      "The Odyssey",
		AuthorName: []string{"Homer"},
	}, nil)

	repo.EXPECT().GetAuthorByName(ctx, "Homer").Return(model.Author{}, errs.ErrNotFound)
	repo.EXPECT().CreateAuthor(ctx, "Homer").Return(model.Author{}, errs.ErrConflict)
	repo.EXPECT().GetAuthorByName(ctx, "Homer").Return(model.Author{ID: 7, Name: "Homer"}, nil)

	repo.EXPECT().UpdateBookCatalog(ctx, bookUid, model.CatalogData{
		Name:     "The Odyssey",
		AuthorID: 7,
	}).Return(nil)
	repo.EXPECT().GetBook(ctx, bookUid).Return(book, nil)

	_, err := svc.Resolve(ctx, bookUid)
	require.NoError(t, err)
}

// Two resolutions naming the same author share one row.
func TestService_Resolve_AuthorDedup(t *testing.T) {
	ctx := context.Background()
	svc, repo, remote := newTestService(t)

	doc := &openlibrary.SearchDoc{Title: "The Odyssey", AuthorName: []string{"Homer"}}
	book := model.Book{ID: 4, BookUid: bookUid, Name: "The Odyssey"}

	repo.EXPECT().GetBook(ctx, bookUid).Return(book, nil).Times(2)
	remote.EXPECT().SearchByTitle(ctx, "The Odyssey", 1).Return(doc, nil).Times(2)

	gomock.InOrder(
		repo.EXPECT().GetAuthorByName(ctx, "Homer").Return(model.Author{}, errs.ErrNotFound),
		repo.EXPECT().CreateAuthor(ctx, "Homer").Return(model.Author{ID: 7, Name: "Homer"}, nil),
		repo.EXPECT().GetAuthorByName(ctx, "Homer").Return(model.Author{ID: 7, Name: "Homer"}, nil),
	)

	repo.EXPECT().
		UpdateBookCatalog(ctx, bookUid, model.CatalogData{Name: "The Odyssey", AuthorID: 7}).
		Return(nil).Times(2)
	repo.EXPECT().GetBook(ctx, bookUid).Return(book, nil).Times(2)

	for i := 0; i < 2; i++ {
		_, err := svc.Resolve(ctx, bookUid)
		require.NoError(t, err)
	}
}
