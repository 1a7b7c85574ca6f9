package api

import (
	"net/http"

	"github.com/nerrad567/solax-bridge/internal/bridges/solax"
)

// DiscoveryPreview lists the configs a base/up announce would publish.
type DiscoveryPreview struct {
	Model    string                   `json:"model"`
	Count    int                      `json:"count"`
	Messages []solax.DiscoveryMessage `json:"messages"`
}

// handleDiscovery returns the discovery configs for the active model.
func (s *Server) handleDiscovery(w http.ResponseWriter, _ *http.Request) {
	msgs := solax.BuildDiscovery(s.bridge.Model(), s.bridge.Namespace())
	writeJSON(w, http.StatusOK, DiscoveryPreview{
		Model:    s.bridge.Model().Model,
		Count:    len(msgs),
		Messages: msgs,
	})
}
