package notifications

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/catalog-service/cmd/api/book"
	"github.com/matryer/is"
)

func TestBookCreated(t *testing.T) {

	t.Run("publishes the creation message to the catalog topic", func(t *testing.T) {
		is := is.New(t)

		var gotPath string
		var gotBody string
		topicServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			body, _ := io.ReadAll(r.Body)
			gotBody = string(body)
			w.WriteHeader(http.StatusOK)
		}))
		defer topicServer.Close()

		ntfy := NewNtfy(true, 2*time.Second, topicServer.URL)

		err := ntfy.BookCreated("1984", "George Orwell")
		is.NoErr(err)
		is.Equal(gotPath, "/Book_added_to_catalog")
		is.Equal(gotBody, "New book added to the catalog:\nTitle: 1984\nAuthor: George Orwell")
	})

	t.Run("a non 200 from ntfy is an error", func(t *testing.T) {
		is := is.New(t)

		topicServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer topicServer.Close()

		ntfy := NewNtfy(true, 2*time.Second, topicServer.URL)

		err := ntfy.BookCreated("1984", "George Orwell")
		var notifErr book.ErrNotificationFailed
		is.True(errors.As(err, &notifErr))
	})

	t.Run("does nothing when disabled", func(t *testing.T) {
		is := is.New(t)

		called := false
		topicServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer topicServer.Close()

		ntfy := NewNtfy(false, 2*time.Second, topicServer.URL)

		err := ntfy.BookCreated("1984", "George Orwell")
		is.NoErr(err)
		is.True(!called)
	})
}
