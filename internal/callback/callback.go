package callback

import (
	"bytes"
	"colorimgdiff/internal/retry"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/xerrors"
)

// Notifier PATCHes a JSON document to a callback URL, retrying transient
// failures.
type Notifier struct {
	client *http.Client
}

// NewNotifier builds a Notifier that retries on condition, or on
// retry.NewCallbackCondition when condition is nil.
func NewNotifier(logger logr.Logger, condition *retry.Condition) *Notifier {
	if condition == nil {
		condition = retry.NewCallbackCondition()
	}
	return &Notifier{
		client: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &retry.Transport{
				Base:      http.DefaultTransport,
				Backoff:   retry.Exponential(10*time.Millisecond, 1*time.Second, 3, nil),
				Condition: condition,
				Log:       logger,
			},
		},
	}
}

func (n *Notifier) Notify(ctx context.Context, url string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return xerrors.Errorf("failed to encode callback body: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(data))
	if err != nil {
		return xerrors.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := n.client.Do(request)
	if err != nil {
		return xerrors.Errorf("failed to send request: %w", err)
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, response.Body)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return xerrors.Errorf("callback %s returned %s", url, response.Status)
	}
	return nil
}
