package retry

import (
	"errors"
	"io"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/xerrors"
)

// Condition decides which responses and transport errors are worth another
// attempt. Tokens follow Envoy's retry_on names.
type Condition struct {
	serverError    bool
	gatewayError   bool
	connectFailure bool
	retriable4xx   bool
	statusCodes    []int
}

// NewCallbackCondition retries gateway errors, connect failures, 409 and 429.
func NewCallbackCondition() *Condition {
	return &Condition{
		gatewayError:   true,
		connectFailure: true,
		retriable4xx:   true,
		statusCodes:    []int{http.StatusTooManyRequests},
	}
}

func ParseCondition(s string) (*Condition, error) {
	c := &Condition{}
	for _, token := range strings.Split(s, ",") {
		switch token = strings.TrimSpace(token); token {
		case "":
		case "5xx":
			c.serverError = true
		case "gateway-error":
			c.gatewayError = true
		case "connect-failure":
			c.connectFailure = true
		case "retriable-4xx":
			c.retriable4xx = true
		default:
			statusCode, err := strconv.Atoi(token)
			if err != nil || statusCode < 100 || statusCode > 599 {
				return nil, xerrors.Errorf("invalid retry condition: %q", token)
			}
			c.statusCodes = append(c.statusCodes, statusCode)
		}
	}
	return c, nil
}

// https://github.com/envoyproxy/envoy/blob/70d6ec1df6384118cf2fa2f02c0041edb76b2377/source/common/router/retry_state_impl.cc#L387
func (c *Condition) RetryResponse(response *http.Response) bool {
	code := response.StatusCode
	switch {
	case c.serverError && code >= 500 && code < 600:
		return true
	case c.gatewayError && code >= 502 && code < 505:
		return true
	case c.retriable4xx && code == http.StatusConflict:
		return true
	}
	return slices.Contains(c.statusCodes, code)
}

func (c *Condition) RetryError(err error) bool {
	if !c.connectFailure && !c.serverError {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}

	type temporary interface{ Temporary() bool }
	var terr temporary
	return errors.As(err, &terr) && terr.Temporary()
}
