package httputil

import (
	"encoding/json"
	"maps"
	"net/http"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeProblem = "application/problem+json"
)

// RespondJSON writes data with the given status. The body is marshaled
// before any header goes out, so an encoding failure becomes a clean 500.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	write(w, status, contentTypeJSON, payload)
}

// ProblemDetail is an RFC 7807 body. Extra members (code, holder_name,
// rehydration_pending...) are flattened next to the standard ones.
type ProblemDetail struct {
	Type     string                 `json:"type"`
	Title    string                 `json:"title"`
	Status   int                    `json:"status"`
	Detail   string                 `json:"detail,omitempty"`
	Instance string                 `json:"instance,omitempty"`
	Extra    map[string]interface{} `json:"-"`
}

// MarshalJSON flattens Extra; standard members win on a name clash
func (p ProblemDetail) MarshalJSON() ([]byte, error) {
	type standard ProblemDetail
	base, err := json.Marshal(standard(p))
	if err != nil || len(p.Extra) == 0 {
		return base, err
	}

	var members map[string]interface{}
	if err := json.Unmarshal(base, &members); err != nil {
		return nil, err
	}
	merged := maps.Clone(p.Extra)
	maps.Copy(merged, members)
	return json.Marshal(merged)
}

// NewProblem builds a problem for status with the matching type URI
func NewProblem(status int, detail string) ProblemDetail {
	return ProblemDetail{
		Type:   problemType(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
}

// RespondError writes an RFC 7807 problem
func RespondError(w http.ResponseWriter, status int, detail string) {
	RespondProblem(w, NewProblem(status, detail))
}

// RespondErrorWithExtras writes an RFC 7807 problem carrying extra members
func RespondErrorWithExtras(w http.ResponseWriter, status int, detail string, extras map[string]interface{}) {
	problem := NewProblem(status, detail)
	problem.Extra = extras
	RespondProblem(w, problem)
}

// RespondProblem writes p. If its extras cannot be encoded the client still
// gets the bare problem with the same status.
func RespondProblem(w http.ResponseWriter, p ProblemDetail) {
	payload, err := json.Marshal(p)
	if err != nil {
		p.Extra = nil
		payload, _ = json.Marshal(p)
	}
	write(w, p.Status, contentTypeProblem, payload)
}

func write(w http.ResponseWriter, status int, contentType string, payload []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	w.Write(payload)
}

var problemTypes = map[int]string{
	http.StatusBadRequest:          "https://datatracker.ietf.org/doc/html/rfc9110#section-15.5.1",
	http.StatusUnauthorized:        "https://datatracker.ietf.org/doc/html/rfc9110#section-15.5.2",
	http.StatusForbidden:           "https://datatracker.ietf.org/doc/html/rfc9110#section-15.5.4",
	http.StatusNotFound:            "https://datatracker.ietf.org/doc/html/rfc9110#section-15.5.5",
	http.StatusConflict:            "https://datatracker.ietf.org/doc/html/rfc9110#section-15.5.10",
	http.StatusGone:                "https://datatracker.ietf.org/doc/html/rfc9110#section-15.5.11",
	http.StatusLocked:              "https://datatracker.ietf.org/doc/html/rfc4918#section-11.3",
	http.StatusTooManyRequests:     "https://datatracker.ietf.org/doc/html/rfc6585#section-4",
	http.StatusInternalServerError: "https://datatracker.ietf.org/doc/html/rfc9110#section-15.6.1",
	http.StatusServiceUnavailable:  "https://datatracker.ietf.org/doc/html/rfc9110#section-15.6.4",
}

// problemType returns the type URI for status, about:blank when unlisted
func problemType(status int) string {
	if uri, ok := problemTypes[status]; ok {
		return uri
	}
	return "about:blank"
}
