package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/catalog-service/cmd/api/book"
	"github.com/doug-martin/goqu/v9"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	_ "github.com/lib/pq"
)

var dialect = goqu.Dialect("postgres")

var bookColumns = []any{"id", "title", "author", "year", "genre", "available",
	"description", "cover_image_url", "download_link", "borrowed_to", "return_date",
	"created_at", "updated_at"}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

/* Connects to the database trough a connection string and returns a pointer to a valid DB object (*sql.DB). */
func ConnectDb(connStr string) (*sql.DB, error) {
	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("connecting to db, openning: %w", err)
	}

	err = sqlDB.Ping()
	if err != nil {
		return nil, fmt.Errorf("connecting to db, pingging: %w", err)
	}

	log.Println("Successfully connected!")
	return sqlDB, nil
}

func MigrationUp(store *Store, path string) error {
	driver, err := postgres.WithInstance(store.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migrating up: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", path),
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("migrating up: %w", err)
	}

	err = m.Up()
	if err != nil {
		return fmt.Errorf("migrating up: %w", err)
	}
	return nil
}

/* Stores the book into the database and returns it with the id the database assigned. */
func (store *Store) CreateBook(ctx context.Context, bookEntry book.Book) (book.Book, error) {
	sqlStatement := `
	INSERT INTO books (title, author, year, genre, available, description, cover_image_url, download_link, borrowed_to, return_date, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	RETURNING id`

	createdRow := store.db.QueryRowContext(ctx, sqlStatement,
		bookEntry.Title,
		bookEntry.Author,
		bookEntry.Year,
		bookEntry.Genre,
		bookEntry.Available,
		bookEntry.Description,
		bookEntry.CoverImageURL,
		bookEntry.DownloadLink,
		bookEntry.BorrowedTo,
		bookEntry.ReturnDate,
		bookEntry.CreatedAt,
		bookEntry.UpdatedAt,
	)

	err := createdRow.Scan(&bookEntry.ID)
	if err != nil {
		return book.Book{}, fmt.Errorf("storing book on db: %w", err)
	}

	return bookEntry, nil
}

/* Searches a book by its ID and returns it if found. */
func (store *Store) GetBookByID(ctx context.Context, id int64) (book.Book, error) {
	sqlStatement := `
	SELECT id, title, author, year, genre, available, description, cover_image_url, download_link, borrowed_to, return_date, created_at, updated_at
	FROM books
	WHERE id = $1`

	foundRow := store.db.QueryRowContext(ctx, sqlStatement, id)

	bookToReturn, err := scanBook(foundRow)
	if err != nil {
		switch err {
		case sql.ErrNoRows:
			return book.Book{}, fmt.Errorf("searching by ID: %w", book.ErrResponseBookNotFound)
		default:
			return book.Book{}, fmt.Errorf("searching by ID: %w", err)
		}
	}

	return bookToReturn, nil
}

/* Returns the books matching the filters, ordered by title. An empty result is not an error. */
func (store *Store) ListBooks(ctx context.Context, req book.ListBooksRequest) ([]book.Book, error) {
	stmt := dialect.From("books").
		Select(bookColumns...).
		Order(goqu.I("title").Asc(), goqu.I("id").Asc())

	if req.Title != "" {
		stmt = stmt.Where(goqu.I("title").ILike("%" + req.Title + "%"))
	}
	if req.Author != "" {
		stmt = stmt.Where(goqu.I("author").ILike("%" + req.Author + "%"))
	}
	if req.Available != nil {
		stmt = stmt.Where(goqu.I("available").Eq(*req.Available))
	}

	sqlQuery, args, err := stmt.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("listing books from db: %w", err)
	}

	rows, err := store.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("listing books from db: %w", err)
	}
	defer rows.Close()

	books := []book.Book{}
	for rows.Next() {
		bookToReturn, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("listing books from db: %w", err)
		}
		books = append(books, bookToReturn)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("listing books from db: %w", err)
	}

	return books, nil
}

/* Merges the filled entry fields into the stored row. Absent fields keep their stored value. */
func (store *Store) UpdateBook(ctx context.Context, req book.UpdateBookRequest, updatedAt time.Time) (book.Book, error) {
	record := goqu.Record{"updated_at": updatedAt}

	if req.Title != nil {
		record["title"] = *req.Title
	}
	if req.Author != nil {
		record["author"] = *req.Author
	}
	if req.Year != nil {
		record["year"] = *req.Year
	}
	if req.Genre != nil {
		record["genre"] = nullableText(*req.Genre)
	}
	if req.Available != nil {
		record["available"] = *req.Available
	}
	if req.Description != nil {
		record["description"] = nullableText(*req.Description)
	}
	if req.CoverImageURL != nil {
		record["cover_image_url"] = nullableText(*req.CoverImageURL)
	}
	if req.DownloadLink != nil {
		record["download_link"] = nullableText(*req.DownloadLink)
	}
	if req.BorrowedTo != nil {
		record["borrowed_to"] = nullableText(*req.BorrowedTo)
	}
	if req.ReturnDate != nil {
		record["return_date"] = *req.ReturnDate
	}
	if req.ClearReturnDate {
		record["return_date"] = nil
	}

	stmt := dialect.Update("books").
		Set(record).
		Where(goqu.I("id").Eq(req.ID)).
		Returning(bookColumns...)

	sqlQuery, args, err := stmt.Prepared(true).ToSQL()
	if err != nil {
		return book.Book{}, fmt.Errorf("updating book on db: %w", err)
	}

	updatedRow := store.db.QueryRowContext(ctx, sqlQuery, args...)

	bookToReturn, err := scanBook(updatedRow)
	if err != nil {
		switch err {
		case sql.ErrNoRows:
			return book.Book{}, fmt.Errorf("updating book on db: %w", book.ErrResponseBookNotFound)
		default:
			return book.Book{}, fmt.Errorf("updating book on db: %w", err)
		}
	}

	return bookToReturn, nil
}

/* Removes the row permanently. The id is never reused, the sequence only moves forward. */
func (store *Store) DeleteBook(ctx context.Context, id int64) error {
	sqlStatement := `
	DELETE FROM books
	WHERE id = $1`

	result, err := store.db.ExecContext(ctx, sqlStatement, id)
	if err != nil {
		return fmt.Errorf("deleting book on db: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting book on db: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("deleting book on db: %w", book.ErrResponseBookNotFound)
	}

	return nil
}

type scannableRow interface {
	Scan(dest ...any) error
}

func scanBook(row scannableRow) (book.Book, error) {
	var bookToReturn book.Book
	err := row.Scan(
		&bookToReturn.ID,
		&bookToReturn.Title,
		&bookToReturn.Author,
		&bookToReturn.Year,
		&bookToReturn.Genre,
		&bookToReturn.Available,
		&bookToReturn.Description,
		&bookToReturn.CoverImageURL,
		&bookToReturn.DownloadLink,
		&bookToReturn.BorrowedTo,
		&bookToReturn.ReturnDate,
		&bookToReturn.CreatedAt,
		&bookToReturn.UpdatedAt,
	)
	return bookToReturn, err
}

/* An explicitly provided empty string clears the nullable column, anything else is stored trimmed. */
func nullableText(value string) any {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return trimmed
}
