package strategy

import (
	"fmt"

	"MarketPulse/internal/model"
)

// Reasoning renders the narrative for a bias. It is a pure template.
func Reasoning(bias model.Bias, support, resistance float64, tone string) string {
	switch bias {
	case model.Bullish:
		return fmt.Sprintf("Buyers hold price above %.2f and control the tape; %s. "+
			"Acceptance through %.2f opens the next leg, a close back under %.2f invalidates the long idea.",
			support, tone, resistance, support)
	case model.Bearish:
		return fmt.Sprintf("Price trades under its %.2f pivot and sellers are pressing; %s. "+
			"Rallies toward %.2f are suspect until %.2f is reclaimed.",
			support, tone, support, resistance)
	case model.Neutral:
		return fmt.Sprintf("Price is balanced between %.2f and %.2f with no directional edge; %s. "+
			"Wait for acceptance outside that range before committing.",
			support, resistance, tone)
	default:
		return "No confirmed price flow is available, so no bias or levels can be drawn."
	}
}
