package http

import (
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/catalog-service/cmd/api/book"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

/* Catches any panic from a downstream handler, so a failing request never takes the process down with it. */
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Println("recovered from panic:", err)
				w.Header().Set("Connection", "close")
				responseJSON(w, http.StatusInternalServerError, book.ErrResponseFromRespository)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

/* Tags every request with an id, echoed on the response header and prefixed to the access log line. */
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		log.Printf("[%s] %s %s", id, r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

/* Per-IP token bucket: 10 tokens per second, burst of 20. Entries not seen for 3 minutes are evicted by a background sweep. */
func rateLimit(next http.Handler) http.Handler {
	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
	)

	go func() {
		for {
			time.Sleep(time.Minute)
			mu.Lock()
			for ip, c := range clients {
				if time.Since(c.lastSeen) > 3*time.Minute {
					delete(clients, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		mu.Lock()
		if _, found := clients[ip]; !found {
			clients[ip] = &client{
				limiter: rate.NewLimiter(rate.Limit(10), 20),
			}
		}
		clients[ip].lastSeen = time.Now()

		if !clients[ip].limiter.Allow() {
			mu.Unlock()
			responseJSON(w, http.StatusTooManyRequests, book.ErrResponseRateLimitExceeded)
			return
		}
		mu.Unlock()

		next.ServeHTTP(w, r)
	})
}
