// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batchfile reads batch requests and writes batch responses as
// JSON or YAML files. Requests are validated against an embedded JSON
// Schema before decoding.
package batchfile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-extractor/pkg/types"
)

// Format is a file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

//go:embed schema/batch_request.json
var requestSchemaJSON []byte

var (
	requestSchemaOnce sync.Once
	requestSchema     *jsonschema.Schema
	requestSchemaErr  error
)

// FormatFromPath picks YAML for .yaml and .yml files and JSON otherwise.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ParseFormat validates a user-supplied format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (want json or yaml)", name)
	}
}

// ReadRequest loads, validates, and decodes a batch request file.
func ReadRequest(path string) (*types.BatchRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}
	req, err := DecodeRequest(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return req, nil
}

// DecodeRequest validates data against the request schema and decodes it.
func DecodeRequest(data []byte, format Format) (*types.BatchRequest, error) {
	jsonData, err := toJSON(data, format)
	if err != nil {
		return nil, err
	}
	if err := ValidateRequest(jsonData); err != nil {
		return nil, err
	}

	var req types.BatchRequest
	if err := json.Unmarshal(jsonData, &req); err != nil {
		return nil, fmt.Errorf("decoding batch request: %w", err)
	}
	return &req, nil
}

// ValidateRequest checks JSON data against the embedded request schema.
func ValidateRequest(jsonData []byte) error {
	schema, err := compiledRequestSchema()
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("parsing batch request: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("batch request does not match schema: %w", err)
	}
	return nil
}

func compiledRequestSchema() (*jsonschema.Schema, error) {
	requestSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("batch_request.json", bytes.NewReader(requestSchemaJSON)); err != nil {
			requestSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		requestSchema, requestSchemaErr = compiler.Compile("batch_request.json")
		if requestSchemaErr != nil {
			requestSchemaErr = fmt.Errorf("compile schema: %w", requestSchemaErr)
		}
	})
	return requestSchema, requestSchemaErr
}

// toJSON re-encodes YAML input as JSON so both formats share one
// validation and decoding path.
func toJSON(data []byte, format Format) ([]byte, error) {
	if format != FormatYAML {
		return data, nil
	}
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if v == nil {
		v = map[string]any{}
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("converting YAML to JSON: %w", err)
	}
	return out, nil
}

// WriteResponse writes resp to path in the format its extension implies.
func WriteResponse(path string, resp types.BatchResponse) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := EncodeResponse(f, resp, FormatFromPath(path)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EncodeResponse writes resp to w.
func EncodeResponse(w io.Writer, resp types.BatchResponse, format Format) error {
	if format == FormatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("encoding YAML response: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("encoding JSON response: %w", err)
	}
	return nil
}

// ReadResponse loads a batch response previously written by WriteResponse.
func ReadResponse(path string) (*types.BatchResponse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading results file: %w", err)
	}
	var resp types.BatchResponse
	if FormatFromPath(path) == FormatYAML {
		err = yaml.Unmarshal(data, &resp)
	} else {
		err = json.Unmarshal(data, &resp)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing results file %s: %w", path, err)
	}
	return &resp, nil
}
