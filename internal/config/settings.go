package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"alarm-relay/internal/common/errors"
	"alarm-relay/internal/common/logging"
)

// Settings is the read-only view of the adapter settings file, a mapping of
// section name to string key/value pairs. It is safe for concurrent use
// because it never changes after construction.
type Settings struct {
	sections map[string]map[string]string
	logger   logging.Logger
}

// LoadSettings parses the YAML settings file at path. Values keep the
// literal text the operator wrote, so 0123456 stays a seven digit RIC rather
// than an octal number; sequences are joined with commas.
func LoadSettings(path string, logger logging.Logger) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FatalInitError("failed to read settings file "+path, err)
	}
	return ParseSettings(data, logger)
}

// ParseSettings parses YAML settings from memory
func ParseSettings(data []byte, logger logging.Logger) (*Settings, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.FatalInitError("invalid settings file", err)
	}

	sections := make(map[string]map[string]string)
	if len(doc.Content) == 0 {
		return &Settings{sections: sections, logger: orGlobal(logger)}, nil
	}

	root := resolveAlias(doc.Content[0])
	if isNull(root) {
		return &Settings{sections: sections, logger: orGlobal(logger)}, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, errors.FatalInitError("invalid settings file", fmt.Errorf("top level must be a mapping of sections"))
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		body := resolveAlias(root.Content[i+1])

		section := make(map[string]string)
		sections[name] = section
		if isNull(body) {
			continue
		}
		if body.Kind != yaml.MappingNode {
			return nil, errors.FatalInitError(fmt.Sprintf("invalid section %s", name), fmt.Errorf("section must be a mapping"))
		}

		for j := 0; j+1 < len(body.Content); j += 2 {
			key := body.Content[j].Value
			value := resolveAlias(body.Content[j+1])
			if isNull(value) {
				continue
			}
			text, err := nodeText(value)
			if err != nil {
				return nil, errors.FatalInitError(fmt.Sprintf("invalid value for %s.%s", name, key), err)
			}
			section[key] = text
		}
	}
	return &Settings{sections: sections, logger: orGlobal(logger)}, nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

// nodeText returns a scalar's source text, or a sequence of scalars joined
// with commas
func nodeText(n *yaml.Node) (string, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return n.Value, nil
	case yaml.SequenceNode:
		items := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			item = resolveAlias(item)
			if item.Kind != yaml.ScalarNode {
				return "", fmt.Errorf("sequence items must be scalars")
			}
			if isNull(item) {
				continue
			}
			items = append(items, item.Value)
		}
		return strings.Join(items, ","), nil
	default:
		return "", fmt.Errorf("unsupported value, expected a scalar or a list")
	}
}

// NewSettings builds Settings from an in-memory mapping; the input is copied
func NewSettings(sections map[string]map[string]string, logger logging.Logger) *Settings {
	copied := make(map[string]map[string]string, len(sections))
	for name, values := range sections {
		section := make(map[string]string, len(values))
		for k, v := range values {
			section[k] = v
		}
		copied[name] = section
	}
	return &Settings{sections: copied, logger: orGlobal(logger)}
}

func orGlobal(logger logging.Logger) logging.Logger {
	if logger == nil {
		return logging.GetGlobalLogger()
	}
	return logger
}

// CheckConfig reports whether section exists. A missing section is logged as
// a warning; a present one has its keys dumped at debug level with secrets
// masked.
func (s *Settings) CheckConfig(section string) bool {
	values, ok := s.sections[section]
	if !ok {
		s.logger.Warn("No configuration section found", logging.String("section", section))
		return false
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.logger.Debug("Configuration value",
			logging.String("section", section),
			logging.String("key", k),
			logging.String("value", maskSecret(k, values[k])),
		)
	}
	return true
}

// Get returns section.key or a ConfigMissing error when it is absent
func (s *Settings) Get(section, key string) (string, error) {
	if v, ok := s.lookup(section, key); ok {
		return v, nil
	}
	return "", errors.ConfigMissingError(section, key)
}

// GetOptional returns section.key, or "" when it is absent
func (s *Settings) GetOptional(section, key string) string {
	v, _ := s.lookup(section, key)
	return v
}

// GetDefault returns section.key, or fallback when it is absent or empty
func (s *Settings) GetDefault(section, key, fallback string) string {
	if v, ok := s.lookup(section, key); ok && v != "" {
		return v
	}
	return fallback
}

// Has reports whether section.key is defined
func (s *Settings) Has(section, key string) bool {
	_, ok := s.lookup(section, key)
	return ok
}

// Sections returns the section names, sorted
func (s *Settings) Sections() []string {
	names := make([]string, 0, len(s.sections))
	for name := range s.sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Settings) lookup(section, key string) (string, bool) {
	values, ok := s.sections[section]
	if !ok {
		return "", false
	}
	v, ok := values[key]
	return v, ok
}

var secretMarkers = []string{"password", "accesskey", "secret", "token"}

func maskSecret(key, value string) string {
	lower := strings.ToLower(key)
	for _, marker := range secretMarkers {
		if strings.Contains(lower, marker) {
			if value == "" {
				return ""
			}
			return "********"
		}
	}
	return value
}
