package openlibrary_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bibliotek/biblioteca-service/biblioteca/config"
	"github.com/bibliotek/biblioteca-service/biblioteca/internal/openlibrary"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *openlibrary.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return openlibrary.NewClient(config.OpenLibrary{
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	}, zap.NewExample())
}

func TestClient_LookupByISBN(t *testing.T) {
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/isbn/9780140449136.json", r.URL.Path)
			w.Write([]byte(`{
				"title": "The Odyssey",
				"publishers": ["Penguin Classics"],
				"number_of_pages": 541,
				"publish_date": "1996",
				"works": [{"key": "/works/OL61982W"}],
				"authors": [{"key": "/authors/OL448939A"}]
			}`))
		})

		ed, err := client.LookupByISBN(ctx, "9780140449136")
		require.NoError(t, err)
		require.NotNil(t, ed)
		require.Equal(t, "The Odyssey", ed.Title)
		require.Equal(t, 541, ed.NumberOfPages)
		require.Equal(t, "/works/OL61982W", ed.Works[0].Key)
	})

	t.Run("not found is nil nil", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		ed, err := client.LookupByISBN(ctx, "0000000000")
		require.NoError(t, err)
		require.Nil(t, ed)
	})

	t.Run("server error is a soft failure", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		ed, err := client.LookupByISBN(ctx, "9780140449136")
		require.Error(t, err)
		require.Nil(t, ed)
	})

	t.Run("malformed body is a soft failure", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"title":`))
		})

		_, err := client.LookupByISBN(ctx, "9780140449136")
		require.Error(t, err)
	})
}

func TestClient_SearchByTitle(t *testing.T) {
	ctx := context.Background()

	t.Run("first doc wins", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/search.json", r.URL.Path)
			require.Equal(t, "The Odyssey", r.URL.Query().Get("q"))
			require.Equal(t, "1", r.URL.Query().Get("limit"))
			w.Write([]byte(`{
				"numFound": 2,
				"docs": [
					{"title": "The Odyssey", "key": "/works/OL61982W", "first_publish_year": 1996, "author_name": ["Homer"]},
					{"title": "The Odyssey II", "key": "/works/OL9W"}
				]
			}`))
		})

		doc, err := client.SearchByTitle(ctx, "The Odyssey", 1)
		require.NoError(t, err)
		require.NotNil(t, doc)
		require.Equal(t, "The Odyssey", doc.Title)
		require.Equal(t, 1996, doc.FirstPublishYear)
		require.Equal(t, []string{"Homer"}, doc.AuthorName)
	})

	t.Run("no docs is nil nil", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"numFound": 0, "docs": []}`))
		})

		doc, err := client.SearchByTitle(ctx, "no such book", 1)
		require.NoError(t, err)
		require.Nil(t, doc)
	})
}

func TestClient_FetchWork(t *testing.T) {
	ctx := context.Background()

	t.Run("description as object", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/works/OL61982W.json", r.URL.Path)
			w.Write([]byte(`{
				"description": {"type": "/type/text", "value": "An epic poem."},
				"subjects": ["Epic poetry, Greek"]
			}`))
		})

		work, err := client.FetchWork(ctx, "OL61982W")
		require.NoError(t, err)
		require.Equal(t, "An epic poem.", work.Description.Value)
		require.Equal(t, "Epic poetry, Greek", work.Subjects[0])
	})

	t.Run("description as string", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"description": "An epic poem."}`))
		})

		work, err := client.FetchWork(ctx, "/works/OL61982W")
		require.NoError(t, err)
		require.Equal(t, "An epic poem.", work.Description.Value)
	})

	t.Run("unusable key skips the call", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected request")
		})

		work, err := client.FetchWork(ctx, "/books/OL1M")
		require.NoError(t, err)
		require.Nil(t, work)
	})
}

func TestClient_FetchAuthor(t *testing.T) {
	ctx := context.Background()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/authors/OL448939A.json", r.URL.Path)
		w.Write([]byte(`{"name": "Homer", "bio": "Ancient Greek poet."}`))
	})

	for _, key := range []string{"OL448939A", "/authors/OL448939A"} {
		author, err := client.FetchAuthor(ctx, key)
		require.NoError(t, err)
		require.Equal(t, "Homer", author.Name)
		require.Equal(t, "Ancient Greek poet.", author.Bio.Value)
	}

	author, err := client.FetchAuthor(ctx, "")
	require.NoError(t, err)
	require.Nil(t, author)
}

func TestNormalizeWorkKey(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "OL45883W", want: "/works/OL45883W"},
		{raw: "/works/OL45883W", want: "/works/OL45883W"},
		{raw: "/works/OL45883W/extra", want: ""},
		{raw: "/books/OL1M", want: ""},
		{raw: "45883W", want: ""},
		{raw: "", want: ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, openlibrary.NormalizeWorkKey(tt.raw), tt.raw)
	}
}
