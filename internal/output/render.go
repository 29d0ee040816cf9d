// Package output renders structured results as JSON or commented YAML. The
// YAML variant prefixes a contextual header comment block; the structural
// body is identical between formats.
package output

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Format selects the serialization.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat validates a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return "", eris.New("output: format must be json or yaml")
	}
}

// Render serializes v. For YAML, header lines become a leading comment block.
func Render(v any, format Format, header ...string) (string, error) {
	switch format {
	case YAML:
		return renderYAML(v, header)
	default:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", eris.Wrap(err, "output: marshal json")
		}
		return string(b), nil
	}
}

func renderYAML(v any, header []string) (string, error) {
	var sb strings.Builder
	for _, line := range header {
		sb.WriteString("# ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	if len(header) > 0 {
		sb.WriteString("\n")
	}

	b, err := yaml.Marshal(v)
	if err != nil {
		return "", eris.Wrap(err, "output: marshal yaml")
	}
	sb.Write(b)
	return sb.String(), nil
}

// ErrorSkeleton is the uniform failure shape: the error message plus the
// empty collections a success would carry, so callers read the same fields
// either way.
type ErrorSkeleton struct {
	Error      string `json:"error" yaml:"error"`
	Scorecards []any  `json:"scorecards" yaml:"scorecards"`
	Scores     []any  `json:"scores" yaml:"scores"`
}

// NewError builds the uniform failure object.
func NewError(err error) ErrorSkeleton {
	return ErrorSkeleton{
		Error:      err.Error(),
		Scorecards: []any{},
		Scores:     []any{},
	}
}
