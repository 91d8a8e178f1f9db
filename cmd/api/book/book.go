package book

import (
	"strings"
	"time"
)

type Book struct {
	ID            int64
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

type CreateBookRequest struct {
	Title         string
	Author        string
	Year          *int
	Genre         *string
	Available     *bool
	Description   *string
	CoverImageURL *string
	DownloadLink  *string
	BorrowedTo    *string
	ReturnDate    *time.Time
}

/* Every field is optional: nil means "leave it as it is". A non-nil empty string on a nullable column clears it, ClearReturnDate clears the return date. */
type UpdateBookRequest struct {
	ID              int64
	Title           *string
	Author          *string
	Year            *int
	Genre           *string
	Available       *bool
	Description     *string
	CoverImageURL   *string
	DownloadLink    *string
	BorrowedTo      *string
	ReturnDate      *time.Time
	ClearReturnDate bool
}

type ListBooksRequest struct {
	Title     string
	Author    string
	Available *bool
}

/* Verifies if the required fields are filled after trimming and returns a warning message if not. */
func FilledFields(entry CreateBookRequest) error {
	if strings.TrimSpace(entry.Title) == "" {
		return ErrResponseBookEntryBlankFields
	}
	if strings.TrimSpace(entry.Author) == "" {
		return ErrResponseBookEntryBlankFields
	}

	return nil
}

/* Coerces a blank optional text field to absent. */
func OptionalText(field *string) *string {
	if field == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*field)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

/* Required fields may be changed by an update but never blanked out. */
func UpdatableFields(entry UpdateBookRequest) error {
	if entry.Title != nil && strings.TrimSpace(*entry.Title) == "" {
		return ErrResponseBookEntryBlankFields
	}
	if entry.Author != nil && strings.TrimSpace(*entry.Author) == "" {
		return ErrResponseBookEntryBlankFields
	}

	return nil
}
