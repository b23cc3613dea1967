package trust

import (
	"fmt"
	"os"

	"github.com/productlens/backend/internal/domain"
	"gopkg.in/yaml.v3"
)

// fileFormat is the on-disk YAML layout of a trust table
type fileFormat struct {
	Rules []struct {
		Pattern string `yaml:"pattern"`
		Class   string `yaml:"class"`
	} `yaml:"rules"`
	Blacklist   []string `yaml:"blacklist"`
	NonCommerce []string `yaml:"non_commerce"`
}

// LoadFile reads a trust table from a YAML file
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trust table: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML trust table. Unknown class names are rejected so a
// typo cannot silently demote a host to "other".
func Parse(data []byte) (*Table, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode trust table: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("trust table has no rules")
	}

	rules := make([]Rule, 0, len(f.Rules))
	for i, r := range f.Rules {
		if r.Pattern == "" {
			return nil, fmt.Errorf("rule %d: empty pattern", i)
		}
		class, ok := domain.ParseTrustClass(r.Class)
		if !ok {
			return nil, fmt.Errorf("rule %d (%s): unknown class %q", i, r.Pattern, r.Class)
		}
		rules = append(rules, Rule{Pattern: r.Pattern, Class: class})
	}

	return NewTable(rules, f.Blacklist, f.NonCommerce), nil
}
