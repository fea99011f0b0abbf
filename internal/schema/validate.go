// Package schema provides JSON schema validation for testyl configuration files.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	schemafs "github.com/AndreyAkinshin/testyl/schema"
)

var (
	profilesSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
)

// compileSchemas compiles all embedded schemas once.
func compileSchemas() error {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()

		profilesData, err := schemafs.FS.ReadFile("profiles.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("read profiles schema: %w", err)
			return
		}

		profilesDoc, err := jsonschema.UnmarshalJSON(bytes.NewReader(profilesData))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal profiles schema: %w", err)
			return
		}

		if err := compiler.AddResource("profiles.schema.json", profilesDoc); err != nil {
			compileErr = fmt.Errorf("add profiles schema resource: %w", err)
			return
		}

		profilesSchema, err = compiler.Compile("profiles.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile profiles schema: %w", err)
			return
		}
	})

	return compileErr
}

// ValidateProfiles validates JSON data against the profiles schema.
func ValidateProfiles(data []byte) error {
	if err := compileSchemas(); err != nil {
		return err
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := profilesSchema.Validate(v); err != nil {
		return fmt.Errorf("profile config validation failed: %w", err)
	}

	return nil
}
