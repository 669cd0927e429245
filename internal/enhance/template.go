package enhance

import (
	"github.com/fpang/prompt-studio/internal/apperr"
	"github.com/fpang/prompt-studio/internal/stages"
)

// StartFromTemplate starts a session whose initial idea is the prompt of
// the template with id.
func (e *Engine) StartFromTemplate(s *Session, id string) (StartResult, stages.Template, error) {
	tmpl, ok := e.catalog.Template(id)
	if !ok {
		return StartResult{}, stages.Template{}, apperr.Validation("start_template", "unknown template "+id)
	}
	res, err := e.Start(s, tmpl.Prompt)
	return res, tmpl, err
}
