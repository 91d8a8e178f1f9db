package book

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

//go:generate mockgen -source=service.go -destination=./mocks/service_mock.go -package=bookmock

type ServiceAPI interface {
	CreateBook(ctx context.Context, req CreateBookRequest) (Book, error)
	GetBook(ctx context.Context, id int64) (Book, error)
	ListBooks(ctx context.Context, req ListBooksRequest) ([]Book, error)
	UpdateBook(ctx context.Context, req UpdateBookRequest) (Book, error)
	DeleteBook(ctx context.Context, id int64) error
}

type Repository interface {
	CreateBook(ctx context.Context, bookEntry Book) (Book, error)
	GetBookByID(ctx context.Context, id int64) (Book, error)
	ListBooks(ctx context.Context, req ListBooksRequest) ([]Book, error)
	UpdateBook(ctx context.Context, req UpdateBookRequest, updatedAt time.Time) (Book, error)
	DeleteBook(ctx context.Context, id int64) error
}

type Notifier interface {
	BookCreated(title, author string) error
}

type Service struct {
	repo Repository
	ntfy Notifier
}

func NewService(repo Repository, ntfy Notifier) *Service {
	return &Service{repo: repo, ntfy: ntfy}
}

/* Fills the defaults, stores the new book and fires the creation notification. */
func (s *Service) CreateBook(ctx context.Context, req CreateBookRequest) (Book, error) {
	available := true
	if req.Available != nil {
		available = *req.Available
	}

	createdAt := time.Now().UTC().Round(time.Millisecond)
	newBook := Book{
		Title:         strings.TrimSpace(req.Title),
		Author:        strings.TrimSpace(req.Author),
		Year:          req.Year,
		Genre:         OptionalText(req.Genre),
		Available:     available,
		Description:   OptionalText(req.Description),
		CoverImageURL: OptionalText(req.CoverImageURL),
		DownloadLink:  OptionalText(req.DownloadLink),
		BorrowedTo:    OptionalText(req.BorrowedTo),
		ReturnDate:    req.ReturnDate,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}

	storedBook, err := s.repo.CreateBook(ctx, newBook)
	if err != nil {
		return Book{}, fmt.Errorf("creating book: %w", err)
	}

	go func() {
		err := s.ntfy.BookCreated(storedBook.Title, storedBook.Author)
		if err != nil {
			log.Println(err)
		}
	}()

	return storedBook, nil
}

func (s *Service) GetBook(ctx context.Context, id int64) (Book, error) {
	return s.repo.GetBookByID(ctx, id)
}

func (s *Service) ListBooks(ctx context.Context, req ListBooksRequest) ([]Book, error) {
	return s.repo.ListBooks(ctx, req)
}

/* Merges the filled entry fields into the stored book. Absent fields stay untouched. */
func (s *Service) UpdateBook(ctx context.Context, req UpdateBookRequest) (Book, error) {
	if req.Title != nil {
		trimmed := strings.TrimSpace(*req.Title)
		req.Title = &trimmed
	}
	if req.Author != nil {
		trimmed := strings.TrimSpace(*req.Author)
		req.Author = &trimmed
	}

	updatedAt := time.Now().UTC().Round(time.Millisecond) //Atribute a new updating time to the entry.
	return s.repo.UpdateBook(ctx, req, updatedAt)
}

/* Deletion is permanent, there is no soft delete or tombstone state. */
func (s *Service) DeleteBook(ctx context.Context, id int64) error {
	return s.repo.DeleteBook(ctx, id)
}
