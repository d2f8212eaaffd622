package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/observekit/signoz-mcp-server/pkg/mcp"
)

// compileSchemas compiles every tool input schema once at startup. A schema
// that fails to compile is a programming error, so construction fails loudly
// instead of deferring to call time.
func compileSchemas(defs []mcp.Tool) (map[string]*jsonschema.Schema, error) {
	schemas := make(map[string]*jsonschema.Schema, len(defs))
	for _, t := range defs {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft7
		url := t.Name + ".schema.json"
		if err := compiler.AddResource(url, strings.NewReader(string(t.InputSchema))); err != nil {
			return nil, fmt.Errorf("add schema for %s: %w", t.Name, err)
		}
		schema, err := compiler.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", t.Name, err)
		}
		schemas[t.Name] = schema
	}
	return schemas, nil
}

// validateArgs checks raw call arguments against a compiled schema. Missing
// arguments validate as an empty object.
func validateArgs(schema *jsonschema.Schema, args json.RawMessage) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	var v any
	if err := json.Unmarshal(args, &v); err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return errors.New(leafMessage(ve))
		}
		return err
	}
	return nil
}

// leafMessage walks to the most specific cause of a validation failure and
// renders it with a dotted field path.
func leafMessage(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := strings.TrimPrefix(ve.InstanceLocation, "/")
	if loc == "" {
		return ve.Message
	}
	return fmt.Sprintf("%s: %s", strings.ReplaceAll(loc, "/", "."), ve.Message)
}
