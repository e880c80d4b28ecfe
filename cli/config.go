package cli

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mekanics/beanport/importer"
	"github.com/mekanics/beanport/importer/firefly"
	"github.com/mekanics/beanport/importer/ibkr"
	"github.com/mekanics/beanport/importer/revolut"
	"github.com/mekanics/beanport/importer/viac"
	"github.com/mekanics/beanport/importer/viseca"
	"github.com/mekanics/beanport/importer/yuh"
)

// Config is the yaml configuration file. Each importer section is a list so
// one institution can appear several times (one Revolut importer per
// currency, for instance).
type Config struct {
	// DedupDB is the path of the persistent dedup key store. Empty
	// disables persistence; every run then starts with an empty key set.
	DedupDB string `yaml:"dedup_db"`

	Importers struct {
		IBKR    []ibkr.Config    `yaml:"ibkr"`
		Revolut []revolut.Config `yaml:"revolut"`
		Viac    []viac.Config    `yaml:"viac"`
		Viseca  []viseca.Config  `yaml:"viseca"`
		Yuh     []yuh.Config     `yaml:"yuh"`
		Firefly []firefly.Config `yaml:"firefly"`
	} `yaml:"importers"`

	Prices struct {
		IBKR struct {
			// CredentialsFile holds the Flex Web Service token and
			// query id. IBKR_TOKEN and IBKR_QUERY_ID in the
			// environment take precedence.
			CredentialsFile string `yaml:"credentials_file"`
		} `yaml:"ibkr"`
	} `yaml:"prices"`
}

// LoadConfig reads and validates the configuration file and instantiates
// every configured importer. Invalid accounts fail here, before any file is
// read.
func LoadConfig(path string) (*Config, []importer.Importer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read config: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	importers, err := buildImporters(&cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, importers, nil
}

func buildImporters(cfg *Config) ([]importer.Importer, error) {
	var importers []importer.Importer

	for _, c := range cfg.Importers.IBKR {
		imp, err := ibkr.New(c)
		if err != nil {
			return nil, err
		}
		importers = append(importers, imp)
	}
	for _, c := range cfg.Importers.Revolut {
		imp, err := revolut.New(c)
		if err != nil {
			return nil, err
		}
		importers = append(importers, imp)
	}
	for _, c := range cfg.Importers.Viac {
		imp, err := viac.New(c)
		if err != nil {
			return nil, err
		}
		importers = append(importers, imp)
	}
	for _, c := range cfg.Importers.Viseca {
		imp, err := viseca.New(c)
		if err != nil {
			return nil, err
		}
		importers = append(importers, imp)
	}
	for _, c := range cfg.Importers.Yuh {
		imp, err := yuh.New(c)
		if err != nil {
			return nil, err
		}
		importers = append(importers, imp)
	}
	for _, c := range cfg.Importers.Firefly {
		imp, err := firefly.New(c)
		if err != nil {
			return nil, err
		}
		importers = append(importers, imp)
	}
	return importers, nil
}

// identifyImporter returns the first importer claiming the file, or nil.
func identifyImporter(importers []importer.Importer, filename string) importer.Importer {
	for _, imp := range importers {
		if imp.Identify(filename) {
			return imp
		}
	}
	return nil
}
