// Package assets provides embedded static assets for the application.
package assets

import (
	_ "embed"
)

// StagesYAML is the ordered refinement stage catalog.
//
//go:embed catalog/stages.yaml
var StagesYAML []byte

// TemplatesYAML holds the example prompts a session can be started from.
//
//go:embed catalog/templates.yaml
var TemplatesYAML []byte
