// Package scenario converts wire scenarios into scoring schedules and priced
// sessions back into reports.
package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/christofluyten/rinlog/internal/model"
)

// Load decodes a scenario document. JSON documents (leading '{') are decoded
// strictly with encoding/json, everything else as YAML.
func Load(r io.Reader) (model.Scenario, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.Scenario{}, fmt.Errorf("scenario: read: %w", err)
	}
	var sc model.Scenario
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&sc); err != nil {
			return model.Scenario{}, fmt.Errorf("scenario: decode json: %w", err)
		}
		return sc, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil && err != io.EOF {
		return model.Scenario{}, fmt.Errorf("scenario: decode yaml: %w", err)
	}
	return sc, nil
}

// LoadFile reads and validates a scenario file.
func LoadFile(path string) (model.Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Scenario{}, fmt.Errorf("scenario: %w", err)
	}
	defer f.Close()
	sc, err := Load(f)
	if err != nil {
		return model.Scenario{}, err
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := Validate(&sc); err != nil {
		return model.Scenario{}, err
	}
	return sc, nil
}

// Write encodes sc as indented JSON or as YAML.
func Write(w io.Writer, sc model.Scenario, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sc)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(sc); err != nil {
		return fmt.Errorf("scenario: encode: %w", err)
	}
	return enc.Close()
}
