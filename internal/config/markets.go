package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"cotcli/internal/cot"
	apperrors "cotcli/internal/errors"
)

// ContractCode is a CFTC contract market code. YAML may carry it as a number
// or a string; either way it is normalized by CleanContractCode.
type ContractCode string

// UnmarshalYAML accepts any scalar.
func (c *ContractCode) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	if raw == nil {
		*c = ""
		return nil
	}
	*c = ContractCode(CleanContractCode(fmt.Sprint(raw)))
	return nil
}

// Market is one entry of markets.yaml.
type Market struct {
	Key          string       `yaml:"market_key" validate:"required,max=64"`
	LegacyKey    string       `yaml:"key"`
	ContractCode ContractCode `yaml:"contract_code" validate:"required"`
	Category     string       `yaml:"category" validate:"max=64"`
	DisplayName  string       `yaml:"display_name" validate:"max=128"`
}

// Markets is the parsed market configuration.
type Markets struct {
	Markets []Market `yaml:"markets" validate:"required,min=1,dive"`
}

// CleanContractCode trims the code, drops a trailing ".0" left by numeric
// spreadsheets and left-pads all-digit codes to six digits.
func CleanContractCode(code string) string {
	code = strings.TrimSpace(code)
	code = strings.TrimSuffix(code, ".0")
	if code == "" {
		return ""
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return code
		}
	}
	if len(code) < 6 {
		code = strings.Repeat("0", 6-len(code)) + code
	}
	return code
}

var validate = validator.New()

// LoadMarkets reads and validates a markets.yaml file.
func LoadMarkets(path string) (*Markets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigError(fmt.Sprintf("read markets file %s", path), err)
	}
	return ParseMarkets(data)
}

// ParseMarkets decodes markets YAML. Entries may name the market with
// either market_key or key; market keys must be unique.
func ParseMarkets(data []byte) (*Markets, error) {
	var m Markets
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, apperrors.NewConfigError("parse markets yaml", err)
	}
	seen := make(map[string]bool, len(m.Markets))
	for i := range m.Markets {
		mk := &m.Markets[i]
		if mk.Key == "" {
			mk.Key = mk.LegacyKey
		}
		mk.Key = strings.TrimSpace(mk.Key)
		if seen[mk.Key] && mk.Key != "" {
			return nil, apperrors.NewConfigError(fmt.Sprintf("market %q is configured twice", mk.Key), nil)
		}
		seen[mk.Key] = true
	}
	if err := validate.Struct(&m); err != nil {
		return nil, apperrors.NewConfigError("invalid markets configuration", err)
	}
	return &m, nil
}

// Catalog indexes the markets by key.
func (m *Markets) Catalog() cot.Catalog {
	c := make(cot.Catalog, len(m.Markets))
	for _, mk := range m.Markets {
		name := mk.DisplayName
		if name == "" {
			name = mk.Key
		}
		c[mk.Key] = cot.MarketMeta{
			Key:          mk.Key,
			ContractCode: string(mk.ContractCode),
			Category:     mk.Category,
			DisplayName:  name,
		}
	}
	return c
}
