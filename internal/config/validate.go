package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed config.schema.json
var schemaSource string

var documentSchema = jsonschema.MustCompileString("config.schema.json", schemaSource)

type violation struct {
	at  string
	msg string
}

// validateDocument checks the decoded YAML tree against the bundled schema.
// The tree goes through encoding/json first so the validator sees JSON types.
func validateDocument(root map[string]any) []violation {
	data, err := json.Marshal(root)
	if err != nil {
		return []violation{{at: "/", msg: err.Error()}}
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return []violation{{at: "/", msg: err.Error()}}
	}

	err = documentSchema.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []violation{{at: "/", msg: err.Error()}}
	}

	var out []violation
	collectViolations(ve, &out)
	sort.Slice(out, func(i, j int) bool { return out[i].at < out[j].at })
	return out
}

func collectViolations(ve *jsonschema.ValidationError, out *[]violation) {
	if len(ve.Causes) == 0 {
		at := ve.InstanceLocation
		if at == "" {
			at = "/"
		}
		*out = append(*out, violation{at: at, msg: ve.Message})
		return
	}
	for _, cause := range ve.Causes {
		collectViolations(cause, out)
	}
}
