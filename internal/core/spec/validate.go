package spec

import (
	"context"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Structural Validation
// =============================================================================

// Validate runs the raw document through the compose-go loader so structural
// violations surface at stage time instead of as a runtime key error deep in
// the pipeline. The parsed project is discarded; the round-trip transform
// works on the Document type, which preserves fields compose-go would
// normalize away.
func Validate(content []byte) error {
	if len(strings.TrimSpace(string(content))) == 0 {
		return ErrEmptyInput
	}

	var dict map[string]interface{}
	if err := yaml.Unmarshal(content, &dict); err != nil {
		return NewSpecError("", "invalid YAML syntax", ErrInvalidYAML)
	}
	if dict == nil {
		return NewSpecError("", "invalid YAML syntax", ErrInvalidYAML)
	}

	project, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{
				Content: content,
				Config:  dict,
			},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName("pipeline-stage", false)
		opts.SkipValidation = false
		// Variables like $PIPELINE_ID are resolved by docker-compose when
		// the staged file is consumed, not here.
		opts.SkipInterpolation = true
		opts.SkipNormalization = true
		opts.SkipExtends = true
	})
	if err != nil {
		return NewSpecError("", err.Error(), ErrInvalidSpec)
	}

	if len(project.Services) == 0 {
		return ErrNoServices
	}
	return nil
}
