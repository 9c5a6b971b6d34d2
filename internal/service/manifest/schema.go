package manifest

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaID = "https://ninja-release.local/schemas/latest.json"

//go:embed schema.json
var schemaJSON []byte

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, err
	}

	c := jsonschema.NewCompiler()
	c.AssertFormat()

	if err = c.AddResource(schemaID, doc); err != nil {
		return nil, err
	}

	return c.Compile(schemaID)
})

// validateDocument checks serialized manifest JSON against the embedded schema.
func validateDocument(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile manifest schema: %w", err)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return err
	}

	if err = schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrManifest, err)
	}

	return nil
}
