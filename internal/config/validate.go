// CUE schema validation code
package config

import (
	_ "embed"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"
	"github.com/rotisserie/eris"
)

//go:embed schemas/pipeline.cue
var defaultSchema []byte

// ValidateWithCue validates a YAML configuration file against the #Pipeline
// definition of a CUE schema file. An empty cueFile selects the built-in
// schema.
func ValidateWithCue(configFile, cueFile string) error {
	yamlBytes, err := os.ReadFile(configFile)
	if err != nil {
		return eris.Wrap(err, "config: cannot read YAML config")
	}
	schemaBytes := defaultSchema
	if cueFile != "" {
		if schemaBytes, err = os.ReadFile(cueFile); err != nil {
			return eris.Wrap(err, "config: cannot read CUE schema")
		}
	}
	return validate(configFile, yamlBytes, schemaBytes)
}

func validate(name string, yamlBytes, schemaBytes []byte) error {
	ctx := cuecontext.New()

	file, err := yaml.Extract(name, yamlBytes)
	if err != nil {
		return eris.Wrap(err, "config: cannot parse YAML config")
	}
	configVal := ctx.BuildFile(file)

	schemaVal := ctx.CompileBytes(schemaBytes)
	if schemaVal.Err() != nil {
		return eris.Wrap(schemaVal.Err(), "config: cannot compile CUE schema")
	}
	def := schemaVal.LookupPath(cue.ParsePath("#Pipeline"))
	if !def.Exists() {
		return eris.New("config: schema has no #Pipeline definition")
	}

	final := def.Unify(configVal)
	if final.Err() != nil {
		return eris.Wrap(final.Err(), "config: schema unify failed")
	}
	if err := final.Validate(); err != nil {
		return eris.Wrap(err, "config: schema validation failed")
	}
	return nil
}
