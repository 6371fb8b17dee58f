package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/rslist/pkg/metrics"
)

// Error codes written in errorResponse.Code; they double as the error_type
// label on the rslist error metrics.
const (
	codeBadRequest         = "bad_request"
	codeInvalidIndex       = "invalid_index"
	codeInsufficientAmount = "insufficient_amount"
	codeInvalidBid         = "invalid_bid"
	codeVoteRejected       = "vote_rejected"
	codeUnavailable        = "unavailable"
	codeInternal           = "internal_error"
)

// Severities for rslist_ranking_errors_by_type_total.
const (
	severityHigh   = "high"
	severityMedium = "medium"
	severityLow    = "low"
)

// MetricsMiddleware records request count and latency for one rs route, and
// for failed requests the error code the responder wrote.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := float64(time.Since(start).Milliseconds())
		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, elapsed)

		if rec.status < http.StatusBadRequest {
			return
		}
		code := errorCode(rec)
		metrics.RecordErrorByEndpoint(endpoint, r.Method, code)
		metrics.RecordErrorByType(code, severityOf(code))
		metrics.RecordErrorLatency(endpoint, code, elapsed)
	}
}

// errorCode prefers the code set by writeError. Responses that bypassed it
// (mux fallbacks, http.Error) are labelled by status.
func errorCode(rec *recordingWriter) string {
	if rec.code != "" {
		return rec.code
	}
	switch rec.status {
	case http.StatusServiceUnavailable:
		return codeUnavailable
	case http.StatusBadRequest:
		return codeBadRequest
	}
	if rec.status >= http.StatusInternalServerError {
		return codeInternal
	}
	return "http_" + strconv.Itoa(rec.status)
}

// severityOf ranks a failure: rejected purchases and votes are the caller's
// problem, lock timeouts are load, anything else is a defect.
func severityOf(code string) string {
	switch code {
	case codeInternal:
		return severityHigh
	case codeUnavailable:
		return severityMedium
	default:
		return severityLow
	}
}

// codeSetter is implemented by writers that want the error code of the
// response, so writeError can report it without a header.
type codeSetter interface {
	setErrorCode(code string)
}

// recordingWriter captures the status and error code of one response.
type recordingWriter struct {
	http.ResponseWriter
	status int
	code   string
}

func (rw *recordingWriter) setErrorCode(code string) { rw.code = code }

func (rw *recordingWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write %d byte response: %w", len(b), err)
	}
	return n, nil
}
