package generichttp_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/maglab/mercuryips/generichttp"
)

func TestSubMuxSanitize(t *testing.T) {
	cases := map[string]string{
		"omc/magnet":   "/omc/magnet",
		"/omc/magnet/": "/omc/magnet",
		"/magnet/*":    "/magnet",
	}
	for in, want := range cases {
		if got := generichttp.SubMuxSanitize(in); got != want {
			t.Errorf("SubMuxSanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetFloatEnvelope(t *testing.T) {
	h := generichttp.GetFloat(func() (float64, error) { return 1.25, nil })
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	f := generichttp.FloatT{}
	if err := json.NewDecoder(w.Body).Decode(&f); err != nil {
		t.Fatal(err)
	}
	if f.F64 != 1.25 {
		t.Errorf("expected 1.25, got %g", f.F64)
	}
}

func TestGetFloatError(t *testing.T) {
	h := generichttp.GetFloat(func() (float64, error) { return 0, errors.New("no reply") })
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestSetFloatDecodes(t *testing.T) {
	var got float64
	h := generichttp.SetFloat(func(f float64) error { got = f; return nil })
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"f64": -0.5}`))
	h(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if got != -0.5 {
		t.Errorf("expected -0.5, got %g", got)
	}
}

func TestRouteTableBind(t *testing.T) {
	rt := generichttp.RouteTable{
		generichttp.MethodPath{Method: http.MethodGet, Path: "/ping"}: func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("pong"))
		},
	}
	r := chi.NewRouter()
	rt.Bind(r)
	srv := httptest.NewServer(r)
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/ping")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if len(rt.Endpoints()) != 1 {
		t.Errorf("expected 1 endpoint, got %d", len(rt.Endpoints()))
	}
}
