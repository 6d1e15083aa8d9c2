package web

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// actionRequest is the POST body for /api/action. Fields beyond Action are
// interpreted per action; unused ones are ignored.
type actionRequest struct {
	Action string `json:"action"`

	// Heater parameters. Temperatures in degrees C, duration in seconds.
	Target    float64 `json:"target"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	DurationS float64 `json:"duration_s"`
	Tolerance float64 `json:"tolerance"`
	UseTemp   bool    `json:"use_temp"`

	// Stirrer parameters.
	RPM float64 `json:"rpm"`
}

type actionResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeActionError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeActionError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.dispatch(req); err != nil {
		writeActionError(w, http.StatusBadRequest, err.Error())
		return
	}

	log.Printf("web: action %q accepted", req.Action)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(actionResponse{OK: true})
}

func (s *Server) dispatch(req actionRequest) error {
	duration := time.Duration(req.DurationS * float64(time.Second))

	switch req.Action {
	case "hold":
		return s.controls.SetHold(req.Target, req.Tolerance)
	case "ramp":
		if duration <= 0 {
			return fmt.Errorf("ramp requires duration_s > 0")
		}
		return s.controls.SetRamp(req.Start, req.End, duration, req.Tolerance)
	case "timer":
		if duration <= 0 {
			return fmt.Errorf("timer requires duration_s > 0")
		}
		return s.controls.SetTimer(duration, req.Target, req.UseTemp, req.Tolerance)
	case "heater_off":
		return s.controls.HeaterOff()
	case "stirrer_start":
		return s.controls.StirrerStart()
	case "stirrer_stop":
		return s.controls.StirrerStop()
	case "stirrer_rpm":
		if req.RPM < 0 {
			return fmt.Errorf("rpm must not be negative")
		}
		return s.controls.SetStirrerRPM(req.RPM)
	case "":
		return fmt.Errorf("missing action")
	default:
		return fmt.Errorf("unknown action %q", req.Action)
	}
}

func writeActionError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(actionResponse{Error: msg})
}
