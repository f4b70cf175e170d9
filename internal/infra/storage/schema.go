package storage

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed datafile.schema.json
var dataFileSchema []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func currentSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("datafile.schema.json", bytes.NewReader(dataFileSchema)); err != nil {
			schemaErr = fmt.Errorf("failed to load data file schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("datafile.schema.json")
	})
	return compiledSchema, schemaErr
}

// validateEncoded checks an encoded current-version document against the schema.
func validateEncoded(encoded []byte) error {
	schema, err := currentSchema()
	if err != nil {
		return err
	}
	var doc interface{}
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return err
	}
	return schema.Validate(doc)
}
