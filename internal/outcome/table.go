package outcome

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type tableFile struct {
	Outcomes []Outcome `yaml:"outcomes"`
}

// LoadTable reads an outcome table from a YAML file of the form
//
//	outcomes:
//	  - {label: heads, probability: 0.5, payout: 2}
//	  - {label: tails, probability: 0.5, payout: 2}
func LoadTable(path string) (*Distribution, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading outcome table: %w", err)
	}
	var tf tableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing outcome table %s: %w", path, err)
	}
	d, err := NewDistribution(tf.Outcomes)
	if err != nil {
		return nil, fmt.Errorf("outcome table %s: %w", path, err)
	}
	return d, nil
}
