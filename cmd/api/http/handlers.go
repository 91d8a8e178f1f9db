package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/catalog-service/cmd/api/book"
)

const dateLayout = "2006-01-02"

var RequestTimeout = 5 * time.Second

type BookHandler struct {
	bookService book.ServiceAPI
}

func NewBookHandler(bookService book.ServiceAPI) *BookHandler {
	return &BookHandler{bookService: bookService}
}

/* Addresses a call to "/books/(expected id here)" according to the requested action. */
func (h *BookHandler) bookById(w http.ResponseWriter, r *http.Request) {
	method := r.Method
	switch method {
	case http.MethodGet:
		h.getBookById(w, r)
		return
	case http.MethodPut, http.MethodPatch: //Both merge, a field absent from the entry stays untouched.
		h.updateBook(w, r)
		return
	case http.MethodDelete:
		h.deleteBook(w, r)
		return
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
}

/* Addresses a call to "/books" according to the requested action. */
func (h *BookHandler) books(w http.ResponseWriter, r *http.Request) {
	method := r.Method
	switch method {
	case http.MethodGet:
		h.listBooks(w, r)
		return
	case http.MethodPost:
		h.createBook(w, r)
		return
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
}

type BookEntry struct {
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	Year          *int    `json:"year"`
	Genre         *string `json:"genre"`
	Available     *bool   `json:"available"`
	Description   *string `json:"description"`
	CoverImageURL *string `json:"coverImageUrl"`
	DownloadLink  *string `json:"downloadLink"`
	BorrowedTo    *string `json:"borrowedTo"`
	ReturnDate    *string `json:"returnDate"`
}

/* Wire shape of a merge update. A field set to JSON null reads the same as an absent one, both mean "leave it untouched". Sending an empty string is the way to clear a nullable field. */
type UpdateBookEntry struct {
	Title         *string `json:"title"`
	Author        *string `json:"author"`
	Year          *int    `json:"year"`
	Genre         *string `json:"genre"`
	Available     *bool   `json:"available"`
	Description   *string `json:"description"`
	CoverImageURL *string `json:"coverImageUrl"`
	DownloadLink  *string `json:"downloadLink"`
	BorrowedTo    *string `json:"borrowedTo"`
	ReturnDate    *string `json:"returnDate"`
}

/* Validates the entry, then stores it as a new book. */
func (h *BookHandler) createBook(w http.ResponseWriter, r *http.Request) {
	var bookEntry BookEntry
	err := json.NewDecoder(r.Body).Decode(&bookEntry)
	if err != nil {
		log.Println(err)
		errR := book.ErrResponse{
			Code:    book.ErrResponseEntryInvalidJSON.Code,
			Message: book.ErrResponseEntryInvalidJSON.Message + err.Error(),
		}
		responseJSON(w, http.StatusBadRequest, errR)
		return
	}

	reqBook, err := bookToCreateReq(bookEntry)
	if err != nil {
		responseJSON(w, http.StatusBadRequest, err)
		return
	}

	err = book.FilledFields(reqBook) //Verify if the required entry fields are filled.
	if err != nil {
		responseJSON(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), RequestTimeout)
	defer cancel()

	storedBook, err := h.bookService.CreateBook(ctx, reqBook)
	if err != nil {
		h.serviceErrorResponse(w, err)
		return
	}

	responseJSON(w, http.StatusCreated, bookToResponse(storedBook))
}

/* Validates the entry, then merges it into the asked book. */
func (h *BookHandler) updateBook(w http.ResponseWriter, r *http.Request) {
	id, err := isolateId(w, r)
	if err != nil {
		return
	}

	var bookEntry UpdateBookEntry
	err = json.NewDecoder(r.Body).Decode(&bookEntry)
	if err != nil {
		log.Println(err)
		errR := book.ErrResponse{
			Code:    book.ErrResponseEntryInvalidJSON.Code,
			Message: book.ErrResponseEntryInvalidJSON.Message + err.Error(),
		}
		responseJSON(w, http.StatusBadRequest, errR)
		return
	}

	reqBook, err := bookToUpdateReq(bookEntry, id)
	if err != nil {
		responseJSON(w, http.StatusBadRequest, err)
		return
	}

	err = book.UpdatableFields(reqBook) //Required fields can change but never turn blank.
	if err != nil {
		responseJSON(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), RequestTimeout)
	defer cancel()

	updatedBook, err := h.bookService.UpdateBook(ctx, reqBook)
	if err != nil {
		h.serviceErrorResponse(w, err)
		return
	}

	responseJSON(w, http.StatusOK, bookToResponse(updatedBook))
}

/* Returns the book with that specific ID. */
func (h *BookHandler) getBookById(w http.ResponseWriter, r *http.Request) {
	id, err := isolateId(w, r)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), RequestTimeout)
	defer cancel()

	returnedBook, err := h.bookService.GetBook(ctx, id)
	if err != nil {
		h.serviceErrorResponse(w, err)
		return
	}

	responseJSON(w, http.StatusOK, bookToResponse(returnedBook))
}

/* Returns the stored books matching the query filters, sorted by title. */
func (h *BookHandler) listBooks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	params := book.ListBooksRequest{
		Title:  query.Get("title"),
		Author: query.Get("author"),
	}

	//Only the literal strings "true" and "false" filter on availability.
	//Anything else, including absence, means no filter on this field.
	switch query.Get("available") {
	case "true":
		available := true
		params.Available = &available
	case "false":
		available := false
		params.Available = &available
	}

	ctx, cancel := context.WithTimeout(r.Context(), RequestTimeout)
	defer cancel()

	books, err := h.bookService.ListBooks(ctx, params)
	if err != nil {
		h.serviceErrorResponse(w, err)
		return
	}

	results := []BookResponse{}
	for _, b := range books {
		results = append(results, bookToResponse(b))
	}
	responseJSON(w, http.StatusOK, results)
}

type DeleteBookResponse struct {
	Message string `json:"message"`
}

/* Removes the asked book permanently. A second delete of the same id is a plain 404. */
func (h *BookHandler) deleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := isolateId(w, r)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), RequestTimeout)
	defer cancel()

	err = h.bookService.DeleteBook(ctx, id)
	if err != nil {
		h.serviceErrorResponse(w, err)
		return
	}

	responseJSON(w, http.StatusOK, DeleteBookResponse{Message: "book successfully deleted"})
}

/* Maps a service layer failure to the matching status code and JSON body. */
func (h *BookHandler) serviceErrorResponse(w http.ResponseWriter, err error) {
	log.Println(err)
	switch {
	case errors.Is(err, book.ErrResponseBookNotFound):
		responseJSON(w, http.StatusNotFound, book.ErrResponseBookNotFound)
	case errors.Is(err, context.DeadlineExceeded):
		responseJSON(w, http.StatusRequestTimeout, book.ErrResponseRequestTimeout)
	default:
		responseJSON(w, http.StatusInternalServerError, book.ErrResponseFromRespository)
	}
}

/* Converts from BookEntry type to CreateBookRequest type, with no json tags. */
func bookToCreateReq(b BookEntry) (book.CreateBookRequest, error) {
	returnDate, clear, err := parseReturnDate(b.ReturnDate)
	if err != nil {
		return book.CreateBookRequest{}, err
	}
	_ = clear //A blank return date on creation simply stays absent.

	return book.CreateBookRequest{
		Title:         b.Title,
		Author:        b.Author,
		Year:          b.Year,
		Genre:         b.Genre,
		Available:     b.Available,
		Description:   b.Description,
		CoverImageURL: b.CoverImageURL,
		DownloadLink:  b.DownloadLink,
		BorrowedTo:    b.BorrowedTo,
		ReturnDate:    returnDate,
	}, nil
}

/* Converts from UpdateBookEntry type to UpdateBookRequest type, with no json tags. */
func bookToUpdateReq(b UpdateBookEntry, id int64) (book.UpdateBookRequest, error) {
	returnDate, clear, err := parseReturnDate(b.ReturnDate)
	if err != nil {
		return book.UpdateBookRequest{}, err
	}

	return book.UpdateBookRequest{
		ID:              id,
		Title:           b.Title,
		Author:          b.Author,
		Year:            b.Year,
		Genre:           b.Genre,
		Available:       b.Available,
		Description:     b.Description,
		CoverImageURL:   b.CoverImageURL,
		DownloadLink:    b.DownloadLink,
		BorrowedTo:      b.BorrowedTo,
		ReturnDate:      returnDate,
		ClearReturnDate: clear,
	}, nil
}

/* A present but blank return date means "clear it". A filled one must be YYYY-MM-DD. */
func parseReturnDate(entry *string) (parsed *time.Time, clear bool, err error) {
	if entry == nil {
		return nil, false, nil
	}
	if strings.TrimSpace(*entry) == "" {
		return nil, true, nil
	}

	date, err := time.Parse(dateLayout, *entry)
	if err != nil {
		return nil, false, book.ErrResponseEntryInvalidReturnDate
	}
	return &date, false, nil
}

/* Isolates the ID from the URL. */
func isolateId(w http.ResponseWriter, r *http.Request) (id int64, err error) {
	justId, _ := strings.CutPrefix(r.URL.Path, "/books/")
	id, err = strconv.ParseInt(justId, 10, 64)
	if err != nil || id < 1 {
		log.Println("invalid id on path:", r.URL.Path)
		responseJSON(w, http.StatusBadRequest, book.ErrResponseIdInvalidFormat)
		return 0, book.ErrResponseIdInvalidFormat
	}
	return id, nil
}

type BookResponse struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Year          *int      `json:"year"`
	Genre         *string   `json:"genre"`
	Available     bool      `json:"available"`
	Description   *string   `json:"description"`
	CoverImageURL *string   `json:"coverImageUrl"`
	DownloadLink  *string   `json:"downloadLink"`
	BorrowedTo    *string   `json:"borrowedTo"`
	ReturnDate    *string   `json:"returnDate"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

/* Copy the fields of a book object to an http layer struct with json tags. */
func bookToResponse(b book.Book) BookResponse {
	var returnDate *string
	if b.ReturnDate != nil {
		formatted := b.ReturnDate.Format(dateLayout)
		returnDate = &formatted
	}

	return BookResponse{
		ID:            b.ID,
		Title:         b.Title,
		Author:        b.Author,
		Year:          b.Year,
		Genre:         b.Genre,
		Available:     b.Available,
		Description:   b.Description,
		CoverImageURL: b.CoverImageURL,
		DownloadLink:  b.DownloadLink,
		BorrowedTo:    b.BorrowedTo,
		ReturnDate:    returnDate,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

/* Writes a JSON response into a http.ResponseWriter. */
func responseJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		log.Println(err)
	}
}
