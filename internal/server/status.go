package server

import (
	"html/template"
	"time"

	"github.com/lumisproject/digital-twin-project-oracle/internal/store"
	"github.com/lumisproject/digital-twin-project-oracle/internal/syncer"
)

// StatusResponse reports what the store holds and what the orchestrator is
// doing.
type StatusResponse struct {
	Status     string     `json:"status"`
	LastCommit string     `json:"last_commit"`
	UnitCount  int        `json:"unit_count"`
	Syncing    bool       `json:"syncing"`
	Pending    bool       `json:"pending"`
	RunID      string     `json:"run_id,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
}

// BuildStatus reads the store and merges in the orchestrator state, if any.
// A missing store reports no commit and zero units.
func BuildStatus(st *store.FileStore, state *syncer.State) (StatusResponse, error) {
	snap, err := st.Load()
	if err != nil {
		return StatusResponse{}, err
	}
	resp := StatusResponse{
		Status:     "online",
		LastCommit: snap.LastCommit,
		UnitCount:  snap.Len(),
	}
	if state != nil {
		resp.Syncing = state.Syncing
		resp.Pending = state.Pending
		resp.RunID = state.RunID
		resp.LastError = state.LastError
		if !state.LastRunAt.IsZero() {
			t := state.LastRunAt
			resp.LastRunAt = &t
		}
	}
	return resp, nil
}

var statusPage = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html>
<head><title>Lumis Status</title></head>
<body style="font-family: sans-serif; padding: 40px; line-height: 1.6;">
<h1>Lumis Digital Twin: Active</h1>
<hr>
<p><strong>Status:</strong> {{if .Syncing}}Syncing{{if .Pending}} (another sync queued){{end}}{{else}}Online and Listening{{end}}</p>
<p><strong>Last Synced Commit:</strong> <code>{{if .LastCommit}}{{.LastCommit}}{{else}}None{{end}}</code></p>
<p><strong>Knowledge Units Indexed:</strong> {{.UnitCount}}</p>
{{if .LastError}}<p><strong>Last Error:</strong> <code>{{.LastError}}</code></p>{{end}}
<p><strong>Webhook Endpoint:</strong> <code>/webhook</code> (POST only)</p>
</body>
</html>
`))
