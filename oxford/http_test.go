package oxford

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/maglab/mercuryips/generichttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, opts ...Option) (*MercuryIPS, *httptest.Server) {
	t.Helper()
	m := simulated(t, opts...)
	wrap := NewHTTPWrapper(m)
	r := chi.NewRouter()
	wrap.RT().Bind(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return m, srv
}

func getJSON(t *testing.T, url string, into interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if into != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	}
	return resp
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(buf).Encode(body))
	resp, err := http.Post(url, "application/json", buf)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func TestHTTPIdentification(t *testing.T) {
	_, srv := testServer(t)
	idn := IDN{}
	resp := getJSON(t, srv.URL+"/idn", &idn)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OXFORD INSTRUMENTS", idn.Vendor)
	assert.Equal(t, "MERCURY IPS", idn.Model)
}

func TestHTTPAxisField(t *testing.T) {
	m, srv := testServer(t)
	m.Sim().Group("GRPX").Field = 0.75
	f := generichttp.FloatT{}
	resp := getJSON(t, srv.URL+"/axis/x/field", &f)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 0.75, f.F64, 1e-9)
}

func TestHTTPAxisUnknown(t *testing.T) {
	_, srv := testServer(t)
	resp := getJSON(t, srv.URL+"/axis/q/field", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTPSetFieldTarget(t *testing.T) {
	m, srv := testServer(t)
	resp := postJSON(t, srv.URL+"/axis/z/field-target", generichttp.FloatT{F64: 1.25})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 1.25, m.Sim().Group("GRPZ").FieldTarget, 1e-9)
}

func TestHTTPTargetValidation(t *testing.T) {
	unitBall := func(x, y, z float64) bool { return x*x+y*y+z*z <= 1 }
	m, srv := testServer(t, WithFieldLimits(unitBall))
	resp := postJSON(t, srv.URL+"/target/x", generichttp.FloatT{F64: 2})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0.0, m.Target("x"))

	resp = postJSON(t, srv.URL+"/target/x", generichttp.FloatT{F64: 0.5})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	f := generichttp.FloatT{}
	getJSON(t, srv.URL+"/target/r", &f)
	assert.InDelta(t, 0.5, f.F64, 1e-9)

	resp = getJSON(t, srv.URL+"/target/q", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTPRampStatusGuard(t *testing.T) {
	m, srv := testServer(t)
	m.Sim().Group("GRPY").Action = "CLMP"
	resp := postJSON(t, srv.URL+"/axis/y/ramp-status", generichttp.StrT{Str: "TO SET"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "CLMP", m.Sim().Group("GRPY").Action)

	s := generichttp.StrT{}
	getJSON(t, srv.URL+"/axis/y/ramp-status", &s)
	assert.Equal(t, "CLAMP", s.Str)
}

func TestHTTPRampAllAxes(t *testing.T) {
	m, srv := testServer(t)
	require.NoError(t, m.SetTarget("x", 0.1))
	require.NoError(t, m.SetTarget("z", -0.2))
	resp := postJSON(t, srv.URL+"/ramp", generichttp.StrT{Str: "TO SET"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 0.1, m.Sim().Group("GRPX").Field, 1e-9)
	assert.InDelta(t, -0.2, m.Sim().Group("GRPZ").Field, 1e-9)
	assert.Equal(t, "RTOS", m.Sim().Group("GRPY").Action)
}
