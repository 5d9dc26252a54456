// Package schema validates negotiation protocol objects against the
// embedded YAML protocol v1 schemas.
package schema

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/avvvet/diplomat-intent/internal/intent"
	"github.com/avvvet/diplomat-intent/internal/models"
)

//go:embed schemas/*.yaml
var schemaFS embed.FS

// Validator compiles the embedded protocol schemas once and validates
// objects against them by name. Safe for concurrent use after New.
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// New loads and compiles every embedded schema.
func New() (*Validator, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded schemas: %w", err)
	}

	v := &Validator{schemas: make(map[string]*gojsonschema.Schema, len(entries))}

	for _, entry := range entries {
		data, err := schemaFS.ReadFile(path.Join("schemas", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", entry.Name(), err)
		}

		// Schemas are authored as YAML; gojsonschema wants JSON.
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse schema %s: %w", entry.Name(), err)
		}
		jsonDoc, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to convert schema %s: %w", entry.Name(), err)
		}

		compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(jsonDoc))
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", entry.Name(), err)
		}

		name := strings.TrimSuffix(entry.Name(), ".yaml")
		v.schemas[name] = compiled
	}

	return v, nil
}

// SchemaNames lists the loaded schema names, sorted.
func (v *Validator) SchemaNames() []string {
	names := make([]string, 0, len(v.schemas))
	for name := range v.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateOrRaise validates obj against the named schema (tried with the
// ".v1" suffix first). On failure it returns a SchemaViolation error
// carrying every field-level violation, not just the first, so callers can
// fix all problems in one round trip.
func (v *Validator) ValidateOrRaise(obj any, schemaName string) (map[string]any, *intent.ClassificationError) {
	compiled, ok := v.schemas[schemaName+".v1"]
	if !ok {
		compiled, ok = v.schemas[schemaName]
	}
	if !ok {
		return nil, &intent.ClassificationError{
			Kind:   intent.ErrSchemaViolation,
			Detail: fmt.Sprintf("schema %q not found, available: %s", schemaName, strings.Join(v.SchemaNames(), ", ")),
		}
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, &intent.ClassificationError{
			Kind:   intent.ErrMalformed,
			Detail: fmt.Sprintf("object is not serializable: %v", err),
		}
	}

	result, err := compiled.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, &intent.ClassificationError{
			Kind:   intent.ErrMalformed,
			Detail: fmt.Sprintf("validation could not run: %v", err),
		}
	}

	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			violations = append(violations, fmt.Sprintf("%s: %s", resultErr.Field(), resultErr.Description()))
		}
		return nil, intent.NewSchemaViolation(violations)
	}

	var validated map[string]any
	if err := json.Unmarshal(raw, &validated); err != nil {
		return nil, &intent.ClassificationError{
			Kind:   intent.ErrMalformed,
			Detail: fmt.Sprintf("object did not round-trip: %v", err),
		}
	}
	return validated, nil
}

// ValidateIntent routes an intent to its variant schema by discriminant.
// Unknown discriminants validate against the small_talk schema, matching
// the classifier's small-talk fallback.
func (v *Validator) ValidateIntent(in *models.Intent) (map[string]any, *intent.ClassificationError) {
	if in == nil {
		return nil, &intent.ClassificationError{Kind: intent.ErrMalformed, Detail: "intent is nil"}
	}
	return v.ValidateOrRaise(in, intentSchemaName(in.Type))
}

// ValidateSpeakerTurn validates a transcript turn.
func (v *Validator) ValidateSpeakerTurn(turn models.SpeakerTurn) (map[string]any, *intent.ClassificationError) {
	return v.ValidateOrRaise(turn, "speaker_turn")
}

// ValidateWorldContext validates the scenario state.
func (v *Validator) ValidateWorldContext(world models.WorldContext) (map[string]any, *intent.ClassificationError) {
	return v.ValidateOrRaise(world, "world_context")
}

// ValidateContentSafety validates a safety report payload.
func (v *Validator) ValidateContentSafety(report models.SafetyPayload) (map[string]any, *intent.ClassificationError) {
	return v.ValidateOrRaise(report, "content_safety")
}

// IsValid reports validity without surfacing the violations.
func (v *Validator) IsValid(obj any, schemaName string) bool {
	_, err := v.ValidateOrRaise(obj, schemaName)
	return err == nil
}

func intentSchemaName(kind string) string {
	switch kind {
	case models.KindProposal, models.KindConcession, models.KindCounterOffer,
		models.KindUltimatum, models.KindSmallTalk:
		return kind
	default:
		return models.KindSmallTalk
	}
}
