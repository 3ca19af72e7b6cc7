package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// ServiceName is the service file every llmc command reads.
const ServiceName = "llmc"

// ErrServiceNotFound is returned by LoadService when the file is missing.
var ErrServiceNotFound = errors.New("config: service not found")

// Serve is the serve section of a context's llmc.yaml. Empty fields fall
// back to the flag defaults.
type Serve struct {
	Addr           string `yaml:"addr,omitempty"`
	ModelA         string `yaml:"model_a,omitempty"`
	ModelB         string `yaml:"model_b,omitempty"`
	System         string `yaml:"system,omitempty"`
	Opener         string `yaml:"opener,omitempty"`
	Pacing         string `yaml:"pacing,omitempty"`
	AutostartDelay string `yaml:"autostart_delay,omitempty"`
	NoPull         bool   `yaml:"no_pull,omitempty"`
	Transport      string `yaml:"transport,omitempty"`
	OllamaURL      string `yaml:"ollama_url,omitempty"`
	Archive        string `yaml:"archive,omitempty"`
	ArchiveDir     string `yaml:"archive_dir,omitempty"`
}

// ServicePath returns the YAML file path for a service within a context.
func (c *Config) ServicePath(context, service string) string {
	return filepath.Join(c.ContextDir(context), service+".yaml")
}

// LoadService loads "{contextDir}/{service}.yaml" into a T.
func LoadService[T any](contextDir, service string) (*T, error) {
	path := filepath.Join(contextDir, service+".yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q (expected: %s)", ErrServiceNotFound, service, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var v T
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &v, nil
}

// SaveService writes v to "{contextDir}/{service}.yaml".
func SaveService[T any](contextDir, service string, v *T) error {
	if err := os.MkdirAll(contextDir, 0755); err != nil {
		return fmt.Errorf("create context dir: %w", err)
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s config: %w", service, err)
	}

	path := filepath.Join(contextDir, service+".yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LoadServe loads the serve settings of a context directory. A missing
// file, or an empty contextDir, yields zero settings.
func LoadServe(contextDir string) (*Serve, error) {
	if contextDir == "" {
		return &Serve{}, nil
	}
	s, err := LoadService[Serve](contextDir, ServiceName)
	if errors.Is(err, ErrServiceNotFound) {
		return &Serve{}, nil
	}
	return s, err
}

// ListServices returns the service names configured in a context directory.
func ListServices(contextDir string) ([]string, error) {
	entries, err := os.ReadDir(contextDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list services: %w", err)
	}

	var services []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if ext == ".yaml" || ext == ".yml" {
			services = append(services, name[:len(name)-len(ext)])
		}
	}
	return services, nil
}
