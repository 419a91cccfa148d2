package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/subfusion/checkout/internal/checkout/core/domain/fault"
)

const codeInternal = "INTERNAL"

// statusFor maps an error class to its HTTP status. Trust failures stay
// 4xx: the caller sent something we refuse to believe.
func statusFor(err error) int {
	fe, ok := fault.As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch fe.Kind {
	case fault.KindValidation, fault.KindTrust:
		return http.StatusBadRequest
	case fault.KindUpstream:
		// The success page otherwise answers 400; an unreachable validator
		// is the gateway's fault, not the caller's, so it gets a 5xx.
		if fe.Code == fault.CodeValidationFailed {
			return http.StatusBadGateway
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func codeFor(err error) string {
	if code := fault.Code(err); code != "" {
		return code
	}
	return codeInternal
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}

// writeFault writes err with its mapped status. Internal details stay in
// the logs; callers only see the code.
func writeFault(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), codeFor(err), "")
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
