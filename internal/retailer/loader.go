package retailer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/notwins/backend/internal/domain"
)

type profilesFile struct {
	Retailers []domain.RetailerProfile `yaml:"retailers"`
}

// LoadProfiles reads retailer profile overrides from a YAML file.
func LoadProfiles(path string) ([]domain.RetailerProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read retailer profiles: %w", err)
	}
	return ParseProfiles(data)
}

// ParseProfiles decodes a YAML document of the form `retailers: [...]`.
func ParseProfiles(data []byte) ([]domain.RetailerProfile, error) {
	var file profilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse retailer profiles: %w", err)
	}
	for _, p := range file.Retailers {
		if err := validateProfile(p); err != nil {
			return nil, err
		}
	}
	return file.Retailers, nil
}
