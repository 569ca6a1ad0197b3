package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// GetPath retrieves a value from the configuration using a dot-notation path.
func (c *Config) GetPath(path string) (any, error) {
	// Convert to map for generic traversal
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return getValue(m, path)
}

func getValue(m map[string]any, path string) (any, error) {
	parts := strings.Split(path, ".")
	var current any = m

	for _, part := range parts {
		if part == "" {
			continue
		}

		m, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("path %q breaks at %q (not a map)", path, part)
		}

		val, exists := m[part]
		if !exists {
			return nil, fmt.Errorf("path %q: key %q not found", path, part)
		}
		current = val
	}

	return current, nil
}

func findNode(node *yaml.Node, path string, create bool) (*yaml.Node, error) {
	parts := strings.Split(path, ".")
	current := node

	for _, part := range parts {
		if current.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("not a mapping node")
		}

		found := false
		for i := 0; i < len(current.Content); i += 2 {
			keyNode := current.Content[i]
			if keyNode.Value == part {
				current = current.Content[i+1]
				found = true
				break
			}
		}

		if !found {
			if create {
				// Add new key-value pair to mapping
				keyNode := &yaml.Node{
					Kind:  yaml.ScalarNode,
					Tag:   "!!str",
					Value: part,
				}
				valueNode := &yaml.Node{
					Kind: yaml.MappingNode, // Default to mapping if we have more parts
					Tag:  "!!map",
				}
				// If this is the last part, it will be overwritten by the value anyway
				current.Content = append(current.Content, keyNode, valueNode)
				current = valueNode
			} else {
				return nil, fmt.Errorf("key %q not found", part)
			}
		}
	}

	return current, nil
}

// SetPath modifies a configuration value at the specified path.
// When persist is true the change is written back to the source file,
// re-validated, and rolled back if the result no longer loads.
func (c *Config) SetPath(path, value string, persist bool) error {
	if c.Source == nil || c.Source.Kind != yaml.DocumentNode || len(c.Source.Content) == 0 {
		return fmt.Errorf("no valid configuration source found")
	}

	target, err := findNode(c.Source.Content[0], path, true)
	if err != nil {
		return fmt.Errorf("failed to navigate/create path %q: %w", path, err)
	}

	target.Kind = yaml.ScalarNode
	target.Value = value
	target.Tag = guessTag(value)
	target.Content = nil

	if !persist {
		return nil
	}

	candidate, err := yaml.Marshal(c.Source)
	if err != nil {
		return err
	}

	return c.persistWithValidation(candidate)
}

func guessTag(v string) string {
	if v == "true" || v == "false" {
		return "!!bool"
	}
	// Check for integer
	isDigit := true
	for i, c := range v {
		if i == 0 && c == '-' {
			continue
		}
		if c < '0' || c > '9' {
			isDigit = false
			break
		}
	}
	if isDigit && v != "" && v != "-" {
		return "!!int"
	}
	return "!!str"
}

func (c *Config) persistWithValidation(candidate []byte) error {
	targetFile := c.SourcePath
	if targetFile == "" {
		return fmt.Errorf("no valid configuration source found")
	}

	original, err := os.ReadFile(targetFile)
	if err != nil {
		return fmt.Errorf("failed to read original config file: %w", err)
	}

	mode := os.FileMode(0644)
	if info, statErr := os.Stat(targetFile); statErr == nil {
		mode = info.Mode().Perm()
	}

	if err := os.WriteFile(targetFile, candidate, mode); err != nil {
		return fmt.Errorf("failed to persist config change: %w", err)
	}
	relockIfLocked(targetFile)

	if _, err := Load(targetFile); err != nil {
		restoreErr := os.WriteFile(targetFile, original, mode)
		if restoreErr != nil {
			return fmt.Errorf("validation failed (%v) and rollback failed (%v)", err, restoreErr)
		}
		relockIfLocked(targetFile)
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// relockIfLocked refreshes the .checksums entry after a tool-driven write so
// a locked config does not fail verification against its own edit.
func relockIfLocked(path string) {
	dir := filepath.Dir(path)
	if _, err := LoadChecksums(dir); err != nil {
		return
	}
	_ = GenerateChecksums(dir, []string{filepath.Base(path)})
}
