package main

import (
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"citychat/models"
	"citychat/routing"
)

// routingTable is the JSON body of /routing_table.
type routingTable struct {
	Timestamp    string        `json:"timestamp"`
	Cursor       int           `json:"cursor"`
	CurrentModel string        `json:"current_model"`
	AuditEnabled bool          `json:"audit_enabled"`
	RateLimit    rateLimitInfo `json:"rate_limit"`
	Models       []modelRow    `json:"models"`
}

type rateLimitInfo struct {
	Max    int    `json:"max"`
	Window string `json:"window"`
}

type modelRow struct {
	Position int    `json:"position"`
	ID       string `json:"id"`
	Family   string `json:"family"`
	Current  bool   `json:"current"`
	routing.ModelStats
}

// snapshotRoutingTable collects the roster and counters. The last upstream
// error text is only kept when exposeDetails is set.
func (s *Server) snapshotRoutingTable(exposeDetails bool) routingTable {
	cursor := s.router.Cursor()
	roster := s.router.Roster()

	table := routingTable{
		Timestamp:    isoTimestamp(time.Now()),
		Cursor:       cursor,
		CurrentModel: roster.At(cursor),
		AuditEnabled: s.audit != nil,
		RateLimit: rateLimitInfo{
			Max:    s.limiter.Limit(),
			Window: s.limiter.Window().String(),
		},
	}

	for i, stats := range s.router.Stats().Snapshot() {
		if !exposeDetails {
			stats.ErrorMessage = ""
		}
		table.Models = append(table.Models, modelRow{
			Position:   i + 1,
			ID:         stats.Model,
			Family:     models.Family(stats.Model),
			Current:    i == cursor,
			ModelStats: stats,
		})
	}
	return table
}

// handleRoutingTable serves JSON by default and an HTML page to browsers.
func (s *Server) handleRoutingTable(w http.ResponseWriter, r *http.Request) {
	table := s.snapshotRoutingTable(s.settings.Development)

	if !strings.Contains(r.Header.Get("Accept"), "text/html") {
		writeJSON(w, http.StatusOK, table)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>Relay Routing Table</title>
    <style>
        body { font-family: monospace; background: #0a0a0a; color: #00ff41; padding: 20px; }
        h1 { color: #ffcc00; border-bottom: 2px solid #00ff41; padding-bottom: 10px; }
        table { width: 100%%; border-collapse: collapse; margin: 20px 0; }
        th { background: #1a1a1a; padding: 10px; text-align: left; border: 1px solid #00ff41; }
        td { padding: 8px; border: 1px solid #333; }
        .current { color: #ffcc00; font-weight: bold; }
        .error { color: #ff3333; }
    </style>
</head>
<body>
    <h1>🗺️ Model Routing Table</h1>
    <p>Current model: <span class="current">%s</span> (position %d)</p>
    <p>Rate limit: %d requests per %s per IP. Audit log: %s</p>
    <table>
        <tr><th>#</th><th>Model</th><th>Family</th><th>OK</th><th>Failed</th><th>Avg latency</th><th>Last error</th></tr>
`,
		html.EscapeString(table.CurrentModel), table.Cursor+1,
		table.RateLimit.Max, table.RateLimit.Window,
		ternary(table.AuditEnabled, "enabled", "disabled"),
	)

	for _, row := range table.Models {
		fmt.Fprintf(w, `        <tr><td>%d</td><td class="%s">%s</td><td>%s</td><td>%d</td><td>%d</td><td>%.0fms</td><td class="error">%s</td></tr>
`,
			row.Position,
			ternary(row.Current, "current", ""),
			html.EscapeString(row.ID),
			html.EscapeString(row.Family),
			row.SuccessRequests,
			row.FailedRequests,
			row.AverageLatency,
			html.EscapeString(row.ErrorMessage),
		)
	}

	fmt.Fprint(w, `    </table>
</body>
</html>
`)
}

// Helper function
func ternary(condition bool, ifTrue, ifFalse string) string {
	if condition {
		return ifTrue
	}
	return ifFalse
}
