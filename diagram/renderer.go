package diagram

import (
	"context"
	"errors"

	"github.com/richinex/repolens/model"
)

// ErrNoSteps is returned when there is nothing to draw.
var ErrNoSteps = errors.New("no workflow steps to render")

// Renderer draws a step sequence as a chain diagram.
type Renderer struct {
	engine *Engine
}

// NewRenderer creates a renderer on engine. The caller owns engine and
// closes it.
func NewRenderer(engine *Engine) *Renderer {
	return &Renderer{engine: engine}
}

// Render returns the SVG for steps.
func (r *Renderer) Render(ctx context.Context, steps []model.WorkflowStep) (string, error) {
	if len(steps) == 0 {
		return "", ErrNoSteps
	}
	return r.engine.RenderSVG(ctx, DOT(BuildSpec(steps)))
}
