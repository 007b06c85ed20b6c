package gpcc

import (
	"os"

	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5"
	"go.uber.org/multierr"
)

// Config describes a coded sequence: its geometry and attribute
// parameter sets and the headers of a representative slice.
type Config struct {
	Geometry        GeometryParams       `json:"geometry"`
	GeometryHeader  GeometryBrickHeader  `json:"geometryHeader"`
	Attributes      []AttributeSet       `json:"attributes"`
	AttributeHeader AttributeBrickHeader `json:"attributeHeader"`
}

// Validate reports every violation found in the configuration.
func (c *Config) Validate() error {
	err := multierr.Combine(c.Geometry.Validate(), c.GeometryHeader.Validate(), c.AttributeHeader.Validate())
	for i := range c.Attributes {
		a := &c.Attributes[i]
		if aerr := multierr.Combine(a.Desc.Validate(), a.Params.Validate()); aerr != nil {
			err = multierr.Append(err, errors.Wrapf(aerr, "attribute %d", i))
		}
	}
	return err
}

// ParseConfig decodes a JSON5 configuration document.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := json5.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "cannot parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig reads and validates the JSON5 configuration at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config %q", path)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %q", path)
	}
	return cfg, nil
}
