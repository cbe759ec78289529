package proxy

import (
	"github.com/gluk-w/claworc/launchpad-ai/internal/config"
	"github.com/gluk-w/claworc/launchpad-ai/internal/database"
	"github.com/gluk-w/claworc/launchpad-ai/internal/providers"
)

// ResolveKey returns the API key for a backend: the stored key first, then
// the key from the environment.
func ResolveKey(b providers.Backend) string {
	if database.DB != nil {
		var k database.BackendKey
		if err := database.DB.Where("backend = ?", string(b)).First(&k).Error; err == nil && k.KeyValue != "" {
			return k.KeyValue
		}
	}

	switch b {
	case providers.BackendText:
		return config.Cfg.AnthropicAPIKey
	case providers.BackendVision:
		return config.Cfg.GeminiAPIKey
	}
	return ""
}
