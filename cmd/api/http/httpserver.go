package http

import (
	"fmt"
	"net/http"
)

type ServerConfig struct {
	Port int
}

func NewServer(config ServerConfig, h *BookHandler) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", status)
	mux.HandleFunc("/books", h.books)
	mux.HandleFunc("/books/", h.bookById)

	server := http.Server{
		Addr:    fmt.Sprintf(":%d", config.Port),
		Handler: recoverPanic(requestID(rateLimit(mux))),
	}
	return &server
}

type StatusResponse struct {
	Status string `json:"status"`
}

/* Fixed ok marker so clients can check the service is up. */
func status(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	responseJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}
