package handler

import (
	"context"
	"net/http"
)

// DBPinger reports store connectivity. Satisfied by *pgxpool.Pool.
type DBPinger interface {
	Ping(ctx context.Context) error
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health reports liveness plus a store connectivity indicator, so the UI can
// show its backend status dot.
func Health(db DBPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Database: "ok"}
		if err := db.Ping(r.Context()); err != nil {
			resp.Database = "unavailable"
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
