package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/fault"
)

// response is what a probe request reports back.
type response struct {
	Status int   `json:"status"`
	Bytes  int64 `json:"bytes"`
}

// fetcher returns an operation issuing GET requests. Status codes >= 400
// become HTTP_ERROR faults carrying the status.
func fetcher(client *http.Client) chaos.Func[string, response] {
	return func(ctx context.Context, url string) (response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return response{}, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return response{}, err
		}
		defer func() { _ = resp.Body.Close() }()

		n, err := io.Copy(io.Discard, resp.Body)
		if err != nil {
			return response{}, fmt.Errorf("read body: %w", err)
		}
		out := response{Status: resp.StatusCode, Bytes: n}
		if resp.StatusCode >= http.StatusBadRequest {
			return out, fault.New(fault.CodeHTTP, "http "+strconv.Itoa(resp.StatusCode),
				fault.WithStatus(resp.StatusCode))
		}
		return out, nil
	}
}

// outcome classifies a request result for progress marks and tallies.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeFailure
	outcomeTimeout
)

func classify(err error) outcome {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, fault.ErrTimeout):
		return outcomeTimeout
	default:
		return outcomeFailure
	}
}

// mark is the progress character written per request.
func (o outcome) mark() string {
	switch o {
	case outcomeSuccess:
		return "."
	case outcomeTimeout:
		return "T"
	default:
		return "X"
	}
}

// errorCode buckets an error for tallies.
func errorCode(err error) string {
	if code := fault.CodeOf(err); code != "" {
		return string(code)
	}
	if classify(err) == outcomeTimeout {
		return string(fault.CodeTimeout)
	}
	return "ERROR"
}
