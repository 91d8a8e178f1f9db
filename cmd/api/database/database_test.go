package database_test

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"github.com/catalog-service/cmd/api/book"
	"github.com/catalog-service/cmd/api/database"
	"github.com/golang-migrate/migrate/v4"
	"github.com/matryer/is"

	_ "github.com/golang-migrate/migrate/v4/source/file"

	_ "github.com/lib/pq"
)

var store *database.Store
var sqlDB *sql.DB
var ctx context.Context = context.Background()

// TestMain is called before all the tests run.
// The whole package needs a reachable postgres, so it is skipped without one.
func TestMain(m *testing.M) {
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		log.Println("DATABASE_URL not set, skipping database tests.")
		os.Exit(0)
	}

	var err error
	sqlDB, err = database.ConnectDb(connStr)
	if err != nil {
		log.Fatalln(err)
	}

	store = database.NewStore(sqlDB)
	path := os.Getenv("DATABASE_MIGRATIONS_PATH")
	if path == "" {
		path = "../../../migrations"
	}
	err = database.MigrationUp(store, path)
	if err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalln(err)
		}
		log.Println(err)
	}

	os.Exit(m.Run())
}

func teardownDB(t *testing.T) {
	t.Helper()
	_, err := sqlDB.Exec(`DELETE FROM books`)
	if err != nil {
		t.Fatalf("cleaning books table: %v", err)
	}
}

func newBook(title, author string) book.Book {
	now := time.Now().UTC().Round(time.Millisecond)
	return book.Book{
		Title:     title,
		Author:    author,
		Available: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateBook(t *testing.T) {
	t.Cleanup(func() {
		teardownDB(t)
	})

	t.Run("creates a book without errors", func(t *testing.T) {
		is := is.New(t)

		created, err := store.CreateBook(ctx, newBook("A new book", "A new author"))
		is.NoErr(err)
		is.True(created.ID > 0)

		found, err := store.GetBookByID(ctx, created.ID)
		is.NoErr(err)
		is.Equal(found.Title, "A new book")
		is.Equal(found.Author, "A new author")
		is.True(found.Available)
		is.True(found.Genre == nil)
		is.True(found.ReturnDate == nil)
		is.True(!found.UpdatedAt.Before(found.CreatedAt))
	})

	t.Run("ids are unique and always increasing", func(t *testing.T) {
		is := is.New(t)

		first, err := store.CreateBook(ctx, newBook("First", "X"))
		is.NoErr(err)
		second, err := store.CreateBook(ctx, newBook("Second", "X"))
		is.NoErr(err)
		is.True(second.ID > first.ID)

		is.NoErr(store.DeleteBook(ctx, second.ID))

		third, err := store.CreateBook(ctx, newBook("Third", "X"))
		is.NoErr(err)
		is.True(third.ID > second.ID) //The sequence never hands a deleted id out again.
	})
}

func TestGetBookByID(t *testing.T) {
	t.Cleanup(func() {
		teardownDB(t)
	})

	t.Run("expected not found error", func(t *testing.T) {
		is := is.New(t)

		_, err := store.GetBookByID(ctx, 999999)
		is.True(errors.Is(err, book.ErrResponseBookNotFound))
	})
}

func TestListBooks(t *testing.T) {
	t.Cleanup(func() {
		teardownDB(t)
	})

	is := is.New(t)

	harry := newBook("Harry Potter", "J. K. Rowling")
	dune := newBook("Dune", "Frank Herbert")
	dune.Available = false

	_, err := store.CreateBook(ctx, harry)
	is.NoErr(err)
	_, err = store.CreateBook(ctx, dune)
	is.NoErr(err)

	t.Run("lists all books sorted by title", func(t *testing.T) {
		is := is.New(t)

		books, err := store.ListBooks(ctx, book.ListBooksRequest{})
		is.NoErr(err)
		is.Equal(len(books), 2)
		is.Equal(books[0].Title, "Dune")
		is.Equal(books[1].Title, "Harry Potter")
	})

	t.Run("title filter matches substrings case-insensitively", func(t *testing.T) {
		is := is.New(t)

		books, err := store.ListBooks(ctx, book.ListBooksRequest{Title: "hArRy"})
		is.NoErr(err)
		is.Equal(len(books), 1)
		is.Equal(books[0].Title, "Harry Potter")
	})

	t.Run("availability filter is an exact match", func(t *testing.T) {
		is := is.New(t)

		available := true
		books, err := store.ListBooks(ctx, book.ListBooksRequest{Available: &available})
		is.NoErr(err)
		is.Equal(len(books), 1)
		is.Equal(books[0].Title, "Harry Potter")
	})

	t.Run("no match is an empty list, not an error", func(t *testing.T) {
		is := is.New(t)

		books, err := store.ListBooks(ctx, book.ListBooksRequest{Title: "zzzz"})
		is.NoErr(err)
		is.Equal(len(books), 0)
	})
}

func TestUpdateBook(t *testing.T) {
	t.Cleanup(func() {
		teardownDB(t)
	})

	is := is.New(t)

	genre := "Fantasy"
	seeded := newBook("The Hobbit", "J. R. R. Tolkien")
	seeded.Genre = &genre
	created, err := store.CreateBook(ctx, seeded)
	is.NoErr(err)

	t.Run("merges only the provided fields", func(t *testing.T) {
		is := is.New(t)

		available := false
		borrower := "Alice"
		returnDate := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
		updatedAt := time.Now().UTC().Round(time.Millisecond)

		updated, err := store.UpdateBook(ctx, book.UpdateBookRequest{
			ID:         created.ID,
			Available:  &available,
			BorrowedTo: &borrower,
			ReturnDate: &returnDate,
		}, updatedAt)
		is.NoErr(err)

		is.Equal(*updated.Genre, "Fantasy")
		is.Equal(updated.Title, "The Hobbit")
		is.True(!updated.Available)
		is.Equal(*updated.BorrowedTo, "Alice")
		is.True(updated.ReturnDate != nil)
		is.True(!updated.UpdatedAt.Before(updated.CreatedAt))
	})

	t.Run("clears borrowing fields on return", func(t *testing.T) {
		is := is.New(t)

		available := true
		empty := ""
		updated, err := store.UpdateBook(ctx, book.UpdateBookRequest{
			ID:              created.ID,
			Available:       &available,
			BorrowedTo:      &empty,
			ClearReturnDate: true,
		}, time.Now().UTC().Round(time.Millisecond))
		is.NoErr(err)

		is.True(updated.Available)
		is.True(updated.BorrowedTo == nil)
		is.True(updated.ReturnDate == nil)
	})

	t.Run("nullable text fields are stored trimmed", func(t *testing.T) {
		is := is.New(t)

		padded := "  SciFi  "
		updated, err := store.UpdateBook(ctx, book.UpdateBookRequest{
			ID:    created.ID,
			Genre: &padded,
		}, time.Now().UTC().Round(time.Millisecond))
		is.NoErr(err)

		is.Equal(*updated.Genre, "SciFi")
	})

	t.Run("expected not found error", func(t *testing.T) {
		is := is.New(t)

		title := "Whatever"
		_, err := store.UpdateBook(ctx, book.UpdateBookRequest{ID: 999999, Title: &title}, time.Now())
		is.True(errors.Is(err, book.ErrResponseBookNotFound))
	})
}

func TestDeleteBook(t *testing.T) {
	t.Cleanup(func() {
		teardownDB(t)
	})

	is := is.New(t)

	created, err := store.CreateBook(ctx, newBook("Deletable", "Nobody"))
	is.NoErr(err)

	t.Run("deletes permanently and a second delete is not found", func(t *testing.T) {
		is := is.New(t)

		is.NoErr(store.DeleteBook(ctx, created.ID))

		_, err := store.GetBookByID(ctx, created.ID)
		is.True(errors.Is(err, book.ErrResponseBookNotFound))

		err = store.DeleteBook(ctx, created.ID)
		is.True(errors.Is(err, book.ErrResponseBookNotFound))
	})
}
