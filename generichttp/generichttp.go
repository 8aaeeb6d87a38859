// Package generichttp defines the JSON envelopes and route plumbing used
// to wrap lab hardware in an HTTP interface
package generichttp

import (
	"encoding/json"
	"go/types"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
)

// MethodPath is an HTTP method and URL path pair, the key of a RouteTable
type MethodPath struct {
	Method string
	Path   string
}

// RouteTable maps method-paths to HTTP handlers
type RouteTable map[MethodPath]http.HandlerFunc

// Bind attaches every route in the table to a chi router
func (rt RouteTable) Bind(r chi.Router) {
	for mp, handler := range rt {
		r.Method(mp.Method, mp.Path, handler)
	}
}

// Endpoints returns the URL paths in the table, duplicates removed
func (rt RouteTable) Endpoints() []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(rt))
	for mp := range rt {
		if _, ok := seen[mp.Path]; ok {
			continue
		}
		seen[mp.Path] = struct{}{}
		out = append(out, mp.Path)
	}
	return out
}

// HTTPer is an object which exposes a route table
type HTTPer interface {
	RT() RouteTable
}

// SubMuxSanitize prepares a URL fragment for mounting as a submux,
// "omc/magnet/" => "/omc/magnet".  Mount adds the wildcard itself.
func SubMuxSanitize(url string) string {
	url = strings.TrimSuffix(strings.TrimSuffix(url, "/*"), "/")
	if !strings.HasPrefix(url, "/") {
		url = "/" + url
	}
	return url
}

// FloatT is a struct with a single field, F64, used for JSON of one float
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single field, Int, used for JSON of one int
type IntT struct {
	Int int `json:"int"`
}

// StrT is a struct with a single field, Str, used for JSON of one string
type StrT struct {
	Str string `json:"str"`
}

// BoolT is a struct with a single field, Bool, used for JSON of one bool
type BoolT struct {
	Bool bool `json:"bool"`
}

// HumanPayload holds one of the payload types drivers reply with and the
// type tag saying which
type HumanPayload struct {
	T      types.BasicKind
	Bool   bool
	Int    int
	Float  float64
	String string
}

// EncodeAndRespond writes the payload to w in its JSON envelope
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var err error
	switch hp.T {
	case types.Bool:
		err = json.NewEncoder(w).Encode(BoolT{Bool: hp.Bool})
	case types.Int:
		err = json.NewEncoder(w).Encode(IntT{Int: hp.Int})
	case types.Float64:
		err = json.NewEncoder(w).Encode(FloatT{F64: hp.Float})
	case types.String:
		err = json.NewEncoder(w).Encode(StrT{Str: hp.String})
	default:
		http.Error(w, "payload type unsupported", http.StatusInternalServerError)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GetFloat calls a float-getting function and returns the response
// as json {'f64': value}
func GetFloat(fcn func() (float64, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := HumanPayload{T: types.Float64, Float: f}
		hp.EncodeAndRespond(w, r)
	}
}

// SetFloat parses a JSON input of {'f64': value} and calls fcn with it
func SetFloat(fcn func(float64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := FloatT{}
		err := json.NewDecoder(r.Body).Decode(&f)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = fcn(f.F64)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetString calls a string-getting function and returns the response
// as json {'str': value}
func GetString(fcn func() (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := HumanPayload{T: types.String, String: s}
		hp.EncodeAndRespond(w, r)
	}
}

// SetString parses a JSON input of {'str': value} and calls fcn with it
func SetString(fcn func(string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := StrT{}
		err := json.NewDecoder(r.Body).Decode(&s)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = fcn(s.Str)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetBool calls a bool-getting function and returns the response
// as json {'bool': value}
func GetBool(fcn func() (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := HumanPayload{T: types.Bool, Bool: b}
		hp.EncodeAndRespond(w, r)
	}
}

// SetBool parses a JSON input of {'bool': value} and calls fcn with it
func SetBool(fcn func(bool) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := BoolT{}
		err := json.NewDecoder(r.Body).Decode(&b)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = fcn(b.Bool)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
