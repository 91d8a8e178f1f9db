package notifications

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/catalog-service/cmd/api/book"
)

type Ntfy struct {
	baseURL string
	enabled bool
	timeout time.Duration
	client  *http.Client
}

func NewNtfy(enableNotifications bool, notificationsTimeout time.Duration, notificationsBaseURL string) *Ntfy {
	return &Ntfy{
		baseURL: notificationsBaseURL,
		enabled: enableNotifications,
		timeout: notificationsTimeout,
		client:  &http.Client{},
	}
}

/* Publishes a message to the catalog topic when a new book enters the catalog. Does nothing when notifications are disabled. */
func (ntf *Ntfy) BookCreated(title, author string) error {
	if !ntf.enabled {
		return nil
	}

	message := fmt.Sprintf("New book added to the catalog:\nTitle: %s\nAuthor: %s", title, author)
	topicURL := ntf.baseURL + "/Book_added_to_catalog"

	ctx, cancel := context.WithTimeout(context.Background(), ntf.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, topicURL, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("delivering message (%s) to topic (%s): %w", message, topicURL, err)
	}

	resp, err := ntf.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivering message (%s) to topic (%s): %w", message, topicURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return book.NewErrNotificationFailed(resp.StatusCode)
	}

	return nil
}
