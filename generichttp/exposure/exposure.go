// Package exposure exposes the exposure calculator over HTTP
package exposure

import (
	"encoding/json"
	"errors"
	"go/types"
	"net/http"

	"github.com/moonlab/bracket/exposure"
	"github.com/moonlab/bracket/generichttp"
)

// EVRequest asks for the settings that give an EV
type EVRequest struct {
	EV                float64           `json:"ev"`
	ISO               int               `json:"iso"`
	Priority          exposure.Priority `json:"priority"`
	PreferredAperture float64           `json:"preferred_aperture"`
}

// AdjustRequest asks to brighten or darken settings by EVChange stops
type AdjustRequest struct {
	Settings exposure.Settings `json:"settings"`
	EVChange float64           `json:"ev_change"`
	Priority exposure.Priority `json:"priority"`
}

// LadderRequest asks for Count brackets EVStep apart around Base
type LadderRequest struct {
	Base     exposure.Settings `json:"base"`
	EVStep   float64           `json:"ev_step"`
	Count    int               `json:"count"`
	Priority exposure.Priority `json:"priority"`
}

// DirectRequest holds brackets specified value by value
type DirectRequest struct {
	Brackets []exposure.DirectSpec `json:"brackets"`
}

// Rejection describes a direct bracket that was dropped
type Rejection struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// BracketsResponse is the reply of both bracket generators
type BracketsResponse struct {
	Brackets []exposure.Bracket `json:"brackets"`
	Rejected []Rejection        `json:"rejected,omitempty"`
}

func calcStatus(err error) int {
	var pe *exposure.ParseError
	if errors.As(err, &pe) || errors.Is(err, exposure.ErrInvalidSettings) || errors.Is(err, exposure.ErrUnknownPriority) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func priorityOr(p exposure.Priority) exposure.Priority {
	if p == "" {
		return exposure.PriorityAperture
	}
	return p
}

// CalculateEV replies with the EV100 of the settings in the body as {"f64": ev}
func CalculateEV(w http.ResponseWriter, r *http.Request) {
	s := exposure.Settings{}
	err := json.NewDecoder(r.Body).Decode(&s)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ev, err := s.EV()
	if err != nil {
		http.Error(w, err.Error(), calcStatus(err))
		return
	}
	hp := generichttp.HumanPayload{T: types.Float64, Float: ev}
	hp.EncodeAndRespond(w, r)
}

// SettingsForEV replies with the settings for an EV.  Priority defaults to
// aperture, ISO to 100 and the preferred aperture to f/8.
func SettingsForEV(w http.ResponseWriter, r *http.Request) {
	req := EVRequest{}
	err := json.NewDecoder(r.Body).Decode(&req)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ISO == 0 {
		req.ISO = 100
	}
	if req.PreferredAperture == 0 {
		req.PreferredAperture = exposure.ReferenceAperture
	}
	s, err := exposure.SettingsForEV(req.EV, req.ISO, priorityOr(req.Priority), req.PreferredAperture)
	if err != nil {
		http.Error(w, err.Error(), calcStatus(err))
		return
	}
	generichttp.WriteJSON(w, http.StatusOK, s)
}

// Adjust replies with settings brightened or darkened by a number of stops
func Adjust(w http.ResponseWriter, r *http.Request) {
	req := AdjustRequest{}
	err := json.NewDecoder(r.Body).Decode(&req)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s, err := exposure.AdjustExposure(req.Settings, req.EVChange, priorityOr(req.Priority))
	if err != nil {
		http.Error(w, err.Error(), calcStatus(err))
		return
	}
	generichttp.WriteJSON(w, http.StatusOK, s)
}

// BracketsByEV replies with a ladder of brackets around a base exposure
func BracketsByEV(w http.ResponseWriter, r *http.Request) {
	req := LadderRequest{}
	err := json.NewDecoder(r.Body).Decode(&req)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Count <= 0 || req.EVStep <= 0 {
		http.Error(w, "count and ev_step must be positive", http.StatusBadRequest)
		return
	}
	brackets, err := exposure.GenerateBracketsByEV(req.Base, req.EVStep, req.Count, priorityOr(req.Priority))
	if err != nil {
		http.Error(w, err.Error(), calcStatus(err))
		return
	}
	generichttp.WriteJSON(w, http.StatusOK, BracketsResponse{Brackets: brackets})
}

// BracketsDirect snaps directly specified brackets to third stops and replies
// with those accepted and a reason for each one dropped
func BracketsDirect(w http.ResponseWriter, r *http.Request) {
	req := DirectRequest{}
	err := json.NewDecoder(r.Body).Decode(&req)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var rejected []Rejection
	brackets := exposure.GenerateBracketsDirect(req.Brackets, func(spec exposure.DirectSpec, err error) {
		rejected = append(rejected, Rejection{Name: spec.Name, Error: err.Error()})
	})
	generichttp.WriteJSON(w, http.StatusOK, BracketsResponse{Brackets: brackets, Rejected: rejected})
}

// HTTPExposure is an HTTP wrapper around the exposure calculator
type HTTPExposure struct {
	// RouteTable maps method, path pairs to http handlers
	RouteTable generichttp.RouteTable
}

// NewHTTPExposure returns the calculator routes
func NewHTTPExposure() HTTPExposure {
	return HTTPExposure{RouteTable: generichttp.RouteTable{
		{Method: http.MethodPost, Path: "/exposure/ev"}:              CalculateEV,
		{Method: http.MethodPost, Path: "/exposure/settings"}:        SettingsForEV,
		{Method: http.MethodPost, Path: "/exposure/adjust"}:          Adjust,
		{Method: http.MethodPost, Path: "/exposure/brackets/ev"}:     BracketsByEV,
		{Method: http.MethodPost, Path: "/exposure/brackets/direct"}: BracketsDirect,
	}}
}

// RT satisfies generichttp.HTTPer
func (h HTTPExposure) RT() generichttp.RouteTable {
	return h.RouteTable
}
