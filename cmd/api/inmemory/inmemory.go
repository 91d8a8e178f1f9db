package inmemory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/catalog-service/cmd/api/book"
	"github.com/hashicorp/go-memdb"
)

type InMemoryStore struct {
	db     *memdb.MemDB
	lastID int64
}

func NewInMemoryStore() (*InMemoryStore, error) {
	// Define the schema
	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			"book": {
				Name: "book",
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
				},
			},
		},
	}

	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize in-memory database: %w", err)
	}
	return &InMemoryStore{db: db}, nil
}

/* memdb indexes on string fields, so the serial id is stored formatted. */
type AdaptedBook struct {
	ID            string
	Title         string
	Author        string
	Year          *int
	Genre         *string
	Available     bool
	Description   *string
	CoverImageURL *string
	DownloadLink  *string
	BorrowedTo    *string
	ReturnDate    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func adaptBookIdToString(bookEntry book.Book) AdaptedBook {
	return AdaptedBook{
		ID:            strconv.FormatInt(bookEntry.ID, 10),
		Title:         bookEntry.Title,
		Author:        bookEntry.Author,
		Year:          bookEntry.Year,
		Genre:         bookEntry.Genre,
		Available:     bookEntry.Available,
		Description:   bookEntry.Description,
		CoverImageURL: bookEntry.CoverImageURL,
		DownloadLink:  bookEntry.DownloadLink,
		BorrowedTo:    bookEntry.BorrowedTo,
		ReturnDate:    bookEntry.ReturnDate,
		CreatedAt:     bookEntry.CreatedAt,
		UpdatedAt:     bookEntry.UpdatedAt,
	}
}

func adaptBookIdToInt(adptBook AdaptedBook) book.Book {
	id, _ := strconv.ParseInt(adptBook.ID, 10, 64)
	return book.Book{
		ID:            id,
		Title:         adptBook.Title,
		Author:        adptBook.Author,
		Year:          adptBook.Year,
		Genre:         adptBook.Genre,
		Available:     adptBook.Available,
		Description:   adptBook.Description,
		CoverImageURL: adptBook.CoverImageURL,
		DownloadLink:  adptBook.DownloadLink,
		BorrowedTo:    adptBook.BorrowedTo,
		ReturnDate:    adptBook.ReturnDate,
		CreatedAt:     adptBook.CreatedAt,
		UpdatedAt:     adptBook.UpdatedAt,
	}
}

/* Assigns the next id from a counter that only moves forward, so a deleted book's id is never handed out again. */
func (store *InMemoryStore) CreateBook(ctx context.Context, bookEntry book.Book) (book.Book, error) {
	bookEntry.ID = atomic.AddInt64(&store.lastID, 1)

	txn := store.db.Txn(true)
	defer txn.Abort()

	err := txn.Insert("book", adaptBookIdToString(bookEntry))
	if err != nil {
		return book.Book{}, fmt.Errorf("storing book on db: %w", err)
	}

	txn.Commit()
	return bookEntry, nil
}

func (store *InMemoryStore) GetBookByID(ctx context.Context, id int64) (book.Book, error) {
	txn := store.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First("book", "id", strconv.FormatInt(id, 10))
	if err != nil {
		return book.Book{}, fmt.Errorf("searching by ID: %w", err)
	}
	if raw == nil {
		return book.Book{}, fmt.Errorf("searching by ID: %w", book.ErrResponseBookNotFound)
	}

	return adaptBookIdToInt(raw.(AdaptedBook)), nil
}

func (store *InMemoryStore) ListBooks(ctx context.Context, req book.ListBooksRequest) ([]book.Book, error) {
	txn := store.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get("book", "id")
	if err != nil {
		return []book.Book{}, fmt.Errorf("listing books from db: %w", err)
	}

	books := []book.Book{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		b := obj.(AdaptedBook)
		if req.Title != "" && !containsFold(b.Title, req.Title) {
			continue
		}
		if req.Author != "" && !containsFold(b.Author, req.Author) {
			continue
		}
		if req.Available != nil && b.Available != *req.Available {
			continue
		}
		books = append(books, adaptBookIdToInt(b))
	}

	sort.Slice(books, func(i, j int) bool {
		if books[i].Title != books[j].Title {
			return books[i].Title < books[j].Title
		}
		return books[i].ID < books[j].ID
	})

	return books, nil
}

func (store *InMemoryStore) UpdateBook(ctx context.Context, req book.UpdateBookRequest, updatedAt time.Time) (book.Book, error) {
	txn := store.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First("book", "id", strconv.FormatInt(req.ID, 10))
	if err != nil {
		return book.Book{}, fmt.Errorf("updating book on db: %w", err)
	}
	if raw == nil {
		return book.Book{}, fmt.Errorf("updating book on db: %w", book.ErrResponseBookNotFound)
	}

	updatedBook := raw.(AdaptedBook)
	if req.Title != nil {
		updatedBook.Title = *req.Title
	}
	if req.Author != nil {
		updatedBook.Author = *req.Author
	}
	if req.Year != nil {
		updatedBook.Year = req.Year
	}
	if req.Genre != nil {
		updatedBook.Genre = book.OptionalText(req.Genre)
	}
	if req.Available != nil {
		updatedBook.Available = *req.Available
	}
	if req.Description != nil {
		updatedBook.Description = book.OptionalText(req.Description)
	}
	if req.CoverImageURL != nil {
		updatedBook.CoverImageURL = book.OptionalText(req.CoverImageURL)
	}
	if req.DownloadLink != nil {
		updatedBook.DownloadLink = book.OptionalText(req.DownloadLink)
	}
	if req.BorrowedTo != nil {
		updatedBook.BorrowedTo = book.OptionalText(req.BorrowedTo)
	}
	if req.ReturnDate != nil {
		updatedBook.ReturnDate = req.ReturnDate
	}
	if req.ClearReturnDate {
		updatedBook.ReturnDate = nil
	}
	//CreatedAt will not change
	updatedBook.UpdatedAt = updatedAt

	if err := txn.Insert("book", updatedBook); err != nil {
		return book.Book{}, fmt.Errorf("updating book on db: %w", err)
	}

	txn.Commit()
	return adaptBookIdToInt(updatedBook), nil
}

func (store *InMemoryStore) DeleteBook(ctx context.Context, id int64) error {
	txn := store.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First("book", "id", strconv.FormatInt(id, 10))
	if err != nil {
		return fmt.Errorf("deleting book on db: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("deleting book on db: %w", book.ErrResponseBookNotFound)
	}

	if err := txn.Delete("book", raw); err != nil {
		return fmt.Errorf("deleting book on db: %w", err)
	}

	txn.Commit()
	return nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
