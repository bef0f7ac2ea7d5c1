package manifest

import "gopkg.in/yaml.v3"

// manifestFile is the YAML structure of a build manifest.
type manifestFile struct {
	Client clientDTO `yaml:"client"`

	// Tools preserves declaration order; custom task rule lookup iterates
	// tools in manifest order.
	Tools yaml.Node `yaml:"tools"`

	Targets map[string][]string `yaml:"targets"`

	Nodes map[string]nodeDTO `yaml:"nodes"`

	Commands map[string]commandDTO `yaml:"commands"`
}

type clientDTO struct {
	Name    string `yaml:"name"`
	Version uint32 `yaml:"version"`
}

type nodeDTO struct{}

// commandDTO carries the fixed attributes plus the tool-specific ones the
// built-in tools understand.
type commandDTO struct {
	Tool        string            `yaml:"tool"`
	Inputs      []string          `yaml:"inputs"`
	Outputs     []string          `yaml:"outputs"`
	Description string            `yaml:"description"`
	Args        yaml.Node         `yaml:"args"`
	Env         map[string]string `yaml:"env"`
	Deps        string            `yaml:"deps"`
}
