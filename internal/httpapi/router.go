package httpapi

import (
	"io"
	"net/http"
	"net/http/pprof"
	"slices"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/freeeve/ultimalive/internal/store"
)

// maxStaticsBody bounds a statics upload. A block of 64 cells rarely
// carries more than a few hundred statics of 7 bytes each.
const maxStaticsBody = 1 << 20

// guardedMap serializes access to a MapStore, which has a single mutator.
type guardedMap struct {
	mu sync.Mutex
	ms store.MapStore
}

// Handler serves statics and land blocks of a set of open maps.
type Handler struct {
	maps map[int]*guardedMap
	log  zerolog.Logger
}

// NewRouter creates the HTTP router for maps, keyed by map number. The
// caller keeps ownership of the stores and closes them after the server
// has shut down.
func NewRouter(log zerolog.Logger, maps map[int]store.MapStore) http.Handler {
	h := &Handler{
		maps: make(map[int]*guardedMap, len(maps)),
		log:  log,
	}
	for n, ms := range maps {
		h.maps[n] = &guardedMap{ms: ms}
	}
	log.Info().Int("maps", len(maps)).Msg("block service ready")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("GET /readyz", h.health)
	mux.HandleFunc("GET /v1/maps", h.listMaps)
	mux.HandleFunc("GET /v1/maps/{map}/stats", h.stats)
	mux.HandleFunc("GET /v1/maps/{map}/statics/{block}", h.getStatics)
	mux.HandleFunc("PUT /v1/maps/{map}/statics/{block}", h.putStatics)
	mux.HandleFunc("DELETE /v1/maps/{map}/statics/{block}", h.deleteStatics)
	mux.HandleFunc("GET /v1/maps/{map}/land/{block}", h.getLand)
	mux.HandleFunc("PUT /v1/maps/{map}/land/{block}", h.putLand)

	// pprof endpoints
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return RequestID(AccessLog(log, mux))
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) listMaps(w http.ResponseWriter, r *http.Request) {
	numbers := make([]int, 0, len(h.maps))
	for n := range h.maps {
		numbers = append(numbers, n)
	}
	slices.Sort(numbers)

	out := make([]MapResponse, 0, len(numbers))
	for _, n := range numbers {
		g := h.maps[n]
		g.mu.Lock()
		st := g.ms.Stats()
		g.mu.Unlock()
		out = append(out, MapResponse{Map: n, Stats: ToStatsResponse(st)})
	}
	writeJSON(w, out)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	g, ok := h.lookupMap(w, r)
	if !ok {
		return
	}
	g.mu.Lock()
	st := g.ms.Stats()
	g.mu.Unlock()
	writeJSON(w, ToStatsResponse(st))
}

func (h *Handler) getStatics(w http.ResponseWriter, r *http.Request) {
	g, block, ok := h.lookupBlock(w, r)
	if !ok {
		return
	}
	g.mu.Lock()
	data, found := g.ms.ReadStatics(block)
	g.mu.Unlock()
	if !found {
		writeError(w, r, http.StatusNotFound, "block has no statics")
		return
	}
	writeOctets(w, data)
}

func (h *Handler) putStatics(w http.ResponseWriter, r *http.Request) {
	g, block, ok := h.lookupBlock(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxStaticsBody))
	if err != nil {
		writeError(w, r, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	h.writeStatics(w, r, g, block, body)
}

func (h *Handler) deleteStatics(w http.ResponseWriter, r *http.Request) {
	g, block, ok := h.lookupBlock(w, r)
	if !ok {
		return
	}
	h.writeStatics(w, r, g, block, nil)
}

func (h *Handler) writeStatics(w http.ResponseWriter, r *http.Request, g *guardedMap, block uint32, payload []byte) {
	g.mu.Lock()
	err := g.ms.WriteStatics(block, payload)
	g.mu.Unlock()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getLand(w http.ResponseWriter, r *http.Request) {
	g, block, ok := h.lookupBlock(w, r)
	if !ok {
		return
	}
	g.mu.Lock()
	data, err := g.ms.ReadLand(block)
	g.mu.Unlock()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOctets(w, data)
}

func (h *Handler) putLand(w http.ResponseWriter, r *http.Request) {
	g, block, ok := h.lookupBlock(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, store.LandBlockSize+1))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "land block must be 196 bytes")
		return
	}
	g.mu.Lock()
	err = g.ms.WriteLand(block, body)
	g.mu.Unlock()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lookupMap(w http.ResponseWriter, r *http.Request) (*guardedMap, bool) {
	n, err := strconv.Atoi(r.PathValue("map"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid map number")
		return nil, false
	}
	g, ok := h.maps[n]
	if !ok {
		writeError(w, r, http.StatusNotFound, "map not served")
		return nil, false
	}
	return g, true
}

func (h *Handler) lookupBlock(w http.ResponseWriter, r *http.Request) (*guardedMap, uint32, bool) {
	g, ok := h.lookupMap(w, r)
	if !ok {
		return nil, 0, false
	}
	block, err := strconv.ParseUint(r.PathValue("block"), 10, 32)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid block number")
		return nil, 0, false
	}
	return g, uint32(block), true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 && status != http.StatusInsufficientStorage {
		h.log.Error().Err(err).Str("rid", GetRequestID(r.Context())).Msg("block service")
	}
	writeError(w, r, status, err.Error())
}

func writeOctets(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}
