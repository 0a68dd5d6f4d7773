package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/freeeve/ultimalive/internal/store"
)

// MapResponse describes one served map.
type MapResponse struct {
	Map   int           `json:"map"`
	Stats StatsResponse `json:"stats"`
}

// StatsResponse is the JSON form of store.Stats.
type StatsResponse struct {
	Blocks         uint32 `json:"blocks"`
	PoolBytes      uint32 `json:"pool_bytes"`
	PoolCapacity   uint32 `json:"pool_capacity"`
	StaticsReads   uint64 `json:"statics_reads"`
	StaticsWrites  uint64 `json:"statics_writes"`
	StaticsReuses  uint64 `json:"statics_reuses"`
	StaticsAppends uint64 `json:"statics_appends"`
	StaticsClears  uint64 `json:"statics_clears"`
	AppendedBytes  uint64 `json:"appended_bytes"`
	LandReads      uint64 `json:"land_reads"`
	LandWrites     uint64 `json:"land_writes"`
}

// ToStatsResponse converts session counters to their JSON form.
func ToStatsResponse(s store.Stats) StatsResponse {
	return StatsResponse{
		Blocks:         s.Blocks,
		PoolBytes:      s.PoolBytes,
		PoolCapacity:   s.PoolCapacity,
		StaticsReads:   s.StaticsReads,
		StaticsWrites:  s.StaticsWrites(),
		StaticsReuses:  s.StaticsReuses,
		StaticsAppends: s.StaticsAppends,
		StaticsClears:  s.StaticsClears,
		AppendedBytes:  s.AppendedBytes,
		LandReads:      s.LandReads,
		LandWrites:     s.LandWrites,
	}
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
	// Don't call http.Error after setting headers - it causes "superfluous WriteHeader"
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: msg, RequestID: GetRequestID(r.Context())})
}

// statusFor maps store errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrBlockOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, store.ErrBadBlockSize):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrCapacityExceeded):
		return http.StatusInsufficientStorage
	case errors.Is(err, store.ErrClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
