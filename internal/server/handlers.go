package server

import (
	"net/http"
	"time"

	"github.com/bobmcallan/finhub/internal/common"
)

// handleHealth responds with {"status":"ok"} and whether a dashboard is loaded.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"loaded": s.pipeline.Dashboard() != nil,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

type reloadResponse struct {
	LoadedAt time.Time `json:"loaded_at"`
	Holdings int       `json:"holdings"`
	Months   int       `json:"months"`
	Coins    int       `json:"coins"`
}

// handleReload reruns the pipeline. On failure the previous dashboard keeps
// serving and the error names the failed check.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	d, err := s.pipeline.Load(r.Context())
	if err != nil {
		writeErr(w, loadErrorStatus(err), err)
		return
	}
	s.cache.Flush()

	WriteJSON(w, http.StatusOK, reloadResponse{
		LoadedAt: d.LoadedAt,
		Holdings: len(d.Holdings),
		Months:   len(d.Expenses.Months),
		Coins:    len(d.CryptoPositions),
	})
}
