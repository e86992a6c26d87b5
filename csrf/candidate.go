package csrf

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// CandidateKind tells what shape the client-supplied token had.
type CandidateKind int

const (
	// Absent means no usable value was sent.
	Absent CandidateKind = iota
	// Scalar is a single non-empty string, the only kind ever compared.
	Scalar
	// Composite covers arrays, objects, repeated fields and non-string JSON values.
	Composite
)

func (k CandidateKind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Composite:
		return "composite"
	default:
		return "absent"
	}
}

// Candidate is the token a request claims to carry.
type Candidate struct {
	Kind  CandidateKind
	Value string
}

func scalar(v string) Candidate {
	if v == "" {
		return Candidate{Kind: Absent}
	}
	return Candidate{Kind: Scalar, Value: v}
}

// BodyExtractor reads the candidate stored under field in the request body.
// It must leave r.Body readable for the next handler.
type BodyExtractor func(r *http.Request, field string) Candidate

// DefaultMaxMemory bounds the multipart bytes kept in memory while looking
// for the token. Larger parts spill to temporary files.
const DefaultMaxMemory = 1 << 20

const (
	maxFormBody = 10 << 20
	maxJSONBody = 1 << 20
)

var errBodyTooLarge = errors.New("csrf: request body too large")

// DefaultExtractor picks JSONExtractor for application/json bodies and
// FormExtractor for everything else.
func DefaultExtractor(r *http.Request, field string) Candidate {
	return NewExtractor(DefaultMaxMemory)(r, field)
}

// NewExtractor is DefaultExtractor with its own multipart memory limit.
func NewExtractor(maxMemory int64) BodyExtractor {
	return func(r *http.Request, field string) Candidate {
		if mediaType(r) == "application/json" {
			return JSONExtractor(r, field)
		}
		return formCandidate(r, field, maxMemory)
	}
}

// FormExtractor reads urlencoded and multipart bodies for every unsafe
// method, DELETE included. Repeated fields and bracketed names such as
// "_csrf[]" count as Composite.
func FormExtractor(r *http.Request, field string) Candidate {
	return formCandidate(r, field, DefaultMaxMemory)
}

func formCandidate(r *http.Request, field string, maxMemory int64) Candidate {
	if r.PostForm == nil {
		var err error
		switch mediaType(r) {
		case "multipart/form-data":
			err = r.ParseMultipartForm(maxMemory)
		case "application/x-www-form-urlencoded":
			err = parseURLEncoded(r)
		default:
			return Candidate{Kind: Absent}
		}
		if err != nil {
			loggerFromContext(r.Context()).Debug("CSRF form body not parsed",
				slog.String("error", err.Error()),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
		}
	}
	for k, vs := range r.PostForm {
		if len(vs) > 0 && strings.HasPrefix(k, field+"[") {
			return Candidate{Kind: Composite}
		}
	}
	vs := r.PostForm[field]
	switch len(vs) {
	case 0:
		return Candidate{Kind: Absent}
	case 1:
		return scalar(vs[0])
	default:
		return Candidate{Kind: Composite}
	}
}

// JSONExtractor reads a top-level field from a JSON object body. The body is
// restored afterwards.
func JSONExtractor(r *http.Request, field string) Candidate {
	if r.Body == nil || r.Body == http.NoBody {
		return Candidate{Kind: Absent}
	}
	buf, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody+1))
	restoreBody(r, buf)
	if err != nil || len(buf) > maxJSONBody {
		return Candidate{Kind: Absent}
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(buf, &doc); err != nil {
		return Candidate{Kind: Absent}
	}
	raw, ok := doc[field]
	if !ok {
		return Candidate{Kind: Absent}
	}
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		return Candidate{Kind: Absent}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return Candidate{Kind: Composite}
	}
	return scalar(s)
}

// parseURLEncoded fills r.PostForm from a urlencoded body regardless of the
// method (net/http skips DELETE bodies) and leaves the body readable.
func parseURLEncoded(r *http.Request) error {
	r.PostForm = make(url.Values)
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	buf, err := io.ReadAll(io.LimitReader(r.Body, maxFormBody+1))
	restoreBody(r, buf)
	if err != nil {
		return err
	}
	if len(buf) > maxFormBody {
		return errBodyTooLarge
	}
	vs, err := url.ParseQuery(string(buf))
	r.PostForm = vs
	return err
}

// restoreBody puts the consumed prefix back in front of the rest of r.Body.
func restoreBody(r *http.Request, consumed []byte) {
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(consumed), r.Body), r.Body}
}

// headerCandidate returns the first value of the header, if any.
func headerCandidate(r *http.Request, name string) Candidate {
	vs := r.Header.Values(name)
	if len(vs) == 0 {
		return Candidate{Kind: Absent}
	}
	return scalar(vs[0])
}

func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}
