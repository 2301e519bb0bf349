package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// TOMLProvider implements ConfigProvider for TOML configuration files
type TOMLProvider struct {
	filename string
	config   *ConfigData
}

// NewTOMLProvider creates a new TOML configuration provider
func NewTOMLProvider(filename string) *TOMLProvider {
	return &TOMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from a TOML file
func (t *TOMLProvider) LoadConfig() (*ConfigData, error) {
	if t.config != nil {
		return t.config, nil
	}

	config := &ConfigData{}
	md, err := toml.DecodeFile(t.filename, config)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown configuration keys: %v", undecoded)
	}

	t.config = config
	return config, nil
}

// GetSites returns site configurations
func (t *TOMLProvider) GetSites() ([]SiteData, error) {
	config, err := t.LoadConfig()
	if err != nil {
		return nil, err
	}
	return config.Sites, nil
}

// IsReadOnly returns true since TOML files are read-only
func (t *TOMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for TOML provider
func (t *TOMLProvider) Close() error {
	return nil
}
