package sandbox

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/cryguy/renderworker/internal/core"
)

const optionsSchemaURL = "render-options.schema.json"

// optionsSchema describes the exported options record. Each dimension is
// capped here; the scaled area is checked against core.MaxDevicePixels after
// decoding.
const optionsSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["width", "height", "format"],
	"additionalProperties": false,
	"properties": {
		"width":            {"type": "integer", "minimum": 1, "maximum": 8192},
		"height":           {"type": "integer", "minimum": 1, "maximum": 8192},
		"quality":          {"type": "integer", "minimum": 1, "maximum": 100},
		"format":           {"enum": ["png", "jpeg", "webp"]},
		"devicePixelRatio": {"type": "number", "exclusiveMinimum": 0, "maximum": 4},
		"drawDebugBorder":  {"type": "boolean"}
	}
}`

// compileOptionsSchema compiles optionsSchema once per Sandbox.
func compileOptionsSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(optionsSchema))
	if err != nil {
		return nil, fmt.Errorf("parsing options schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(optionsSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("adding options schema: %w", err)
	}
	sch, err := c.Compile(optionsSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compiling options schema: %w", err)
	}
	return sch, nil
}

// validateOptions checks the JSON-encoded options export and decodes it.
func validateOptions(sch *jsonschema.Schema, raw string) (core.RenderOptions, error) {
	var opts core.RenderOptions
	if raw == "" || raw == "null" || raw == "undefined" {
		return opts, &Error{Kind: KindSchema, Message: "missing options export"}
	}
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		return opts, &Error{Kind: KindSchema, Message: fmt.Sprintf("options are not valid JSON: %v", err)}
	}
	if err := sch.Validate(inst); err != nil {
		return opts, &Error{Kind: KindSchema, Message: fmt.Sprintf("invalid options: %v", err)}
	}
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		return opts, &Error{Kind: KindSchema, Message: fmt.Sprintf("decoding options: %v", err)}
	}
	if px := opts.DevicePixels(); px > core.MaxDevicePixels {
		return opts, &Error{Kind: KindSchema, Message: fmt.Sprintf(
			"invalid options: canvas of %.0f device pixels exceeds the limit of %d", px, core.MaxDevicePixels)}
	}
	return opts, nil
}
