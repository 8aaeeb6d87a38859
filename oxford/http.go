package oxford

import (
	"encoding/json"
	"errors"
	"go/types"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/maglab/mercuryips/fieldvec"
	"github.com/maglab/mercuryips/generichttp"
)

// HTTPWrapper provides HTTP bindings on top of the underlying Go interface.
// Bind the route table to a router to serve it.
type HTTPWrapper struct {
	// M is the underlying magnet power supply that is wrapped
	M *MercuryIPS

	// RouteTable maps method-paths to handlers
	RouteTable generichttp.RouteTable
}

// NewHTTPWrapper returns a new HTTP wrapper with the route table
// pre-configured
func NewHTTPWrapper(m *MercuryIPS) HTTPWrapper {
	w := HTTPWrapper{M: m}
	get := http.MethodGet
	post := http.MethodPost
	rt := generichttp.RouteTable{
		generichttp.MethodPath{Method: get, Path: "/idn"}: w.HTTPIdentification,

		generichttp.MethodPath{Method: get, Path: "/axis/{axis}/voltage"}:            w.axisGet((*PSU).Voltage),
		generichttp.MethodPath{Method: get, Path: "/axis/{axis}/current"}:            w.axisGet((*PSU).Current),
		generichttp.MethodPath{Method: get, Path: "/axis/{axis}/current-persistent"}: w.axisGet((*PSU).CurrentPersistent),
		generichttp.MethodPath{Method: get, Path: "/axis/{axis}/current-target"}:     w.axisGet((*PSU).CurrentTarget),
		generichttp.MethodPath{Method: post, Path: "/axis/{axis}/current-target"}:    w.axisSet((*PSU).SetCurrentTarget),
		generichttp.MethodPath{Method: get, Path: "/axis/{axis}/field"}:              w.axisGet((*PSU).Field),
		generichttp.MethodPath{Method: get, Path: "/axis/{axis}/field-persistent"}:   w.axisGet((*PSU).FieldPersistent),
		generichttp.MethodPath{Method: get, Path: "/axis/{axis}/field-target"}:       w.axisGet((*PSU).FieldTarget),
		generichttp.MethodPath{Method: post, Path: "/axis/{axis}/field-target"}:      w.axisSet((*PSU).SetFieldTarget),
		generichttp.MethodPath{Method: get, Path: "/axis/{axis}/current-ramp-rate"}:  w.axisGet((*PSU).CurrentRampRate),
		generichttp.MethodPath{Method: get, Path: "/axis/{axis}/field-ramp-rate"}:    w.axisGet((*PSU).FieldRampRate),
		generichttp.MethodPath{Method: post, Path: "/axis/{axis}/field-ramp-rate"}:   w.axisSet((*PSU).SetFieldRampRate),
		generichttp.MethodPath{Method: get, Path: "/axis/{axis}/atob"}:               w.axisGet((*PSU).AToB),
		generichttp.MethodPath{Method: post, Path: "/axis/{axis}/atob"}:              w.axisSet((*PSU).SetAToB),
		generichttp.MethodPath{Method: get, Path: "/axis/{axis}/ramp-status"}:        w.HTTPRampStatus,
		generichttp.MethodPath{Method: post, Path: "/axis/{axis}/ramp-status"}:       w.HTTPSetRampStatus,

		generichttp.MethodPath{Method: get, Path: "/target/{coord}"}:  w.HTTPTarget,
		generichttp.MethodPath{Method: post, Path: "/target/{coord}"}: w.HTTPSetTarget,

		generichttp.MethodPath{Method: post, Path: "/ramp"}: w.HTTPRamp,
	}
	w.RouteTable = rt
	return w
}

// RT satisfies generichttp.HTTPer
func (h HTTPWrapper) RT() generichttp.RouteTable {
	return h.RouteTable
}

func (h HTTPWrapper) axis(w http.ResponseWriter, r *http.Request) (*PSU, bool) {
	psu, err := h.M.Axis(chi.URLParam(r, "axis"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return nil, false
	}
	return psu, true
}

func (h HTTPWrapper) axisGet(fcn func(*PSU) (float64, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		psu, ok := h.axis(w, r)
		if !ok {
			return
		}
		generichttp.GetFloat(func() (float64, error) { return fcn(psu) })(w, r)
	}
}

func (h HTTPWrapper) axisSet(fcn func(*PSU, float64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		psu, ok := h.axis(w, r)
		if !ok {
			return
		}
		generichttp.SetFloat(func(f float64) error { return fcn(psu, f) })(w, r)
	}
}

// HTTPIdentification returns the repackaged *IDN? record as JSON
func (h HTTPWrapper) HTTPIdentification(w http.ResponseWriter, r *http.Request) {
	idn, err := h.M.Identification()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(idn)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HTTPRampStatus returns the ramp status of one axis as json {'str': label}
func (h HTTPWrapper) HTTPRampStatus(w http.ResponseWriter, r *http.Request) {
	psu, ok := h.axis(w, r)
	if !ok {
		return
	}
	rs, err := psu.RampStatus()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	hp := generichttp.HumanPayload{T: types.String, String: rs.String()}
	hp.EncodeAndRespond(w, r)
}

// HTTPSetRampStatus sets the ramp status of one axis from json {'str': label}
func (h HTTPWrapper) HTTPSetRampStatus(w http.ResponseWriter, r *http.Request) {
	psu, ok := h.axis(w, r)
	if !ok {
		return
	}
	s := generichttp.StrT{}
	err := json.NewDecoder(r.Body).Decode(&s)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rs, err := ParseRampStatus(s.Str)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err = psu.SetRampStatus(rs)
	if err != nil {
		http.Error(w, err.Error(), errCode(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HTTPTarget returns one component of the staged target vector
func (h HTTPWrapper) HTTPTarget(w http.ResponseWriter, r *http.Request) {
	c, err := fieldvec.ParseComponent(chi.URLParam(r, "coord"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	hp := generichttp.HumanPayload{T: types.Float64, Float: h.M.Target(c)}
	hp.EncodeAndRespond(w, r)
}

// HTTPSetTarget stages one component of the target vector from
// json {'f64': value}
func (h HTTPWrapper) HTTPSetTarget(w http.ResponseWriter, r *http.Request) {
	c, err := fieldvec.ParseComponent(chi.URLParam(r, "coord"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	f := generichttp.FloatT{}
	err = json.NewDecoder(r.Body).Decode(&f)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err = h.M.SetTarget(c, f.F64)
	if err != nil {
		http.Error(w, err.Error(), errCode(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HTTPRamp drives all three axes at once from json {'str': label}.
// "TO SET" writes the staged target to the axes' set points first.
func (h HTTPWrapper) HTTPRamp(w http.ResponseWriter, r *http.Request) {
	s := generichttp.StrT{}
	err := json.NewDecoder(r.Body).Decode(&s)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rs, err := ParseRampStatus(s.Str)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if rs == ToSet {
		if err := h.M.StageTarget(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	err = h.M.SetRampStatusAll(rs)
	if err != nil {
		http.Error(w, err.Error(), errCode(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// errCode distinguishes requests the driver refused from exchanges that
// failed
func errCode(err error) int {
	var ve ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
