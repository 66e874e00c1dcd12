package sandbox

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Transform compiles TypeScript/JSX render source into a CommonJS script.
// JSX uses the automatic runtime imported from "react", which the sandbox
// require resolves to its own element factory.
func Transform(source string) (string, error) {
	result := api.Transform(source, api.TransformOptions{
		Loader:          api.LoaderTSX,
		Format:          api.FormatCommonJS,
		Target:          api.ES2020,
		JSX:             api.JSXAutomatic,
		JSXImportSource: "react",
		Sourcefile:      "render.tsx",
		LogLevel:        api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return "", &Error{Kind: KindTransform, Message: formatMessages(result.Errors)}
	}
	return string(result.Code), nil
}

func formatMessages(msgs []api.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			parts = append(parts, fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text))
		} else {
			parts = append(parts, m.Text)
		}
	}
	return strings.Join(parts, "\n")
}
