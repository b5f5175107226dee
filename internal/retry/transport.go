package retry

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/xerrors"
)

// Transport repeats a request while Condition matches and Backoff allows.
// Requests with a body are only repeated when GetBody is set, which
// http.NewRequest does for in-memory readers.
type Transport struct {
	Base      http.RoundTripper
	Backoff   Backoff
	Condition *Condition
	Log       logr.Logger
}

func (t *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	ctx := request.Context()

	for attempt := uint(0); ; attempt++ {
		if attempt > 0 && request.Body != nil && request.Body != http.NoBody {
			if request.GetBody == nil {
				return nil, xerrors.New("cannot retry a request whose body cannot be rewound")
			}
			body, err := request.GetBody()
			if err != nil {
				return nil, xerrors.Errorf("failed to rewind request body: %w", err)
			}
			request = request.Clone(ctx)
			request.Body = body
		}

		response, err := t.base().RoundTrip(request)

		retry := false
		if err != nil {
			retry = t.Condition != nil && t.Condition.RetryError(err)
		} else {
			retry = t.Condition != nil && t.Condition.RetryResponse(response)
		}
		if !retry {
			return response, err
		}

		delay, ok := t.backoff().Next(attempt)
		if !ok {
			return response, err
		}
		if response != nil {
			delay = max(delay, retryAfter(response))
			_, _ = io.Copy(io.Discard, response.Body)
			_ = response.Body.Close()
		}
		t.Log.V(1).Info("Retrying request", "url", request.URL.String(), "attempt", attempt+1, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) backoff() Backoff {
	if t.Backoff != nil {
		return t.Backoff
	}
	return Never()
}

// retryAfter reads a delay-seconds Retry-After header. HTTP dates are ignored.
func retryAfter(response *http.Response) time.Duration {
	seconds, err := strconv.Atoi(response.Header.Get("Retry-After"))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
