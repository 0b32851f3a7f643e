package styles

import (
	"github.com/guslozua/bitacora-sync/models"
)

// Style is the visual treatment for a board card or timeline bar. Colors
// are plain hex strings consumed by the dashboard UI.
type Style struct {
	Background      string `json:"background"`
	ProgressColor   string `json:"progressColor"`
	SelectedVariant string `json:"selectedVariant"`
}

type palette struct {
	pending   Style
	completed Style
}

// Per-type palettes. Each type gets a binary completed/not-completed
// split; "in progress" shares the pending palette.
var palettes = map[models.EntityType]palette{
	models.TypeProject: {
		pending:   Style{Background: "#1565c0", ProgressColor: "#90caf9", SelectedVariant: "#0d47a1"},
		completed: Style{Background: "#2e7d32", ProgressColor: "#a5d6a7", SelectedVariant: "#1b5e20"},
	},
	models.TypeTask: {
		pending:   Style{Background: "#00838f", ProgressColor: "#80deea", SelectedVariant: "#006064"},
		completed: Style{Background: "#558b2f", ProgressColor: "#c5e1a5", SelectedVariant: "#33691e"},
	},
	models.TypeSubtask: {
		pending:   Style{Background: "#ef6c00", ProgressColor: "#ffcc80", SelectedVariant: "#e65100"},
		completed: Style{Background: "#6a1b9a", ProgressColor: "#ce93d8", SelectedVariant: "#4a148c"},
	},
}

// Resolve maps (type, progress) to a style. It is total: unknown types
// fall back to the task palette and progress is clamped, so every input
// yields a defined style. Same inputs always yield the same output.
func Resolve(t models.EntityType, progress int) Style {
	p, ok := palettes[t]
	if !ok {
		p = palettes[models.TypeTask]
	}
	if models.ClampProgress(progress) >= 100 {
		return p.completed
	}
	return p.pending
}
