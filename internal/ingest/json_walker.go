package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ohler55/ojg/jp"

	"github.com/agentic-research/fmsx/api"
)

const (
	// DefaultAnnotationsPath selects annotation definitions in an export.
	DefaultAnnotationsPath = "$.annotations[*]"
	// DefaultFilesPath selects file records in an export.
	DefaultFilesPath = "$.files[*]"
)

// Export is the content of a JSON export: annotation definitions plus file records.
type Export struct {
	Annotations []api.AnnotationResponse
	Files       []api.FileRecord
}

// Select evaluates a JSONPath selector against root.
func Select(root any, selector string) ([]any, error) {
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}
	return x.Get(root), nil
}

// ReadExport loads a JSON export from path. annotationsPath and filesPath
// are JSONPath selectors locating the two collections; empty means default.
func ReadExport(path, annotationsPath, filesPath string) (*Export, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export %s: %w", path, err)
	}
	var root any
	if err := json.Unmarshal(content, &root); err != nil {
		return nil, fmt.Errorf("parse export %s: %w", path, err)
	}
	return DecodeExport(root, annotationsPath, filesPath)
}

// DecodeExport extracts an Export from an already parsed document.
func DecodeExport(root any, annotationsPath, filesPath string) (*Export, error) {
	if annotationsPath == "" {
		annotationsPath = DefaultAnnotationsPath
	}
	if filesPath == "" {
		filesPath = DefaultFilesPath
	}

	rawAnns, err := Select(root, annotationsPath)
	if err != nil {
		return nil, err
	}
	rawFiles, err := Select(root, filesPath)
	if err != nil {
		return nil, err
	}

	exp := &Export{}
	for i, raw := range rawAnns {
		// round-trip through JSON to reuse the wire struct tags
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		var a api.AnnotationResponse
		if err := json.Unmarshal(b, &a); err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
		exp.Annotations = append(exp.Annotations, a)
	}
	for i, raw := range rawFiles {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("file %d: expected object, got %T", i, raw)
		}
		exp.Files = append(exp.Files, api.FileRecord(m))
	}
	return exp, nil
}
