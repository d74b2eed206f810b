package catalog

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"athena/interview/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed sets/*.yaml
var setsFS embed.FS

var ErrVersionNotFound = errors.New("prompt version not found")

// Catalog resolves a prompt version to its ordered prompts.
type Catalog interface {
	Resolve(ctx context.Context, versionID string) ([]models.Prompt, error)
}

// PromptSet is the immutable question list published under one version id.
type PromptSet struct {
	Version string          `yaml:"version" bson:"_id"`
	Prompts []models.Prompt `yaml:"prompts" bson:"prompts"`
}

// Validate rejects sets that could not be presented or evaluated.
func (s PromptSet) Validate() error {
	if s.Version == "" {
		return errors.New("prompt set has no version")
	}
	if len(s.Prompts) == 0 {
		return fmt.Errorf("prompt set %s is empty", s.Version)
	}
	seen := make(map[string]bool, len(s.Prompts))
	for _, p := range s.Prompts {
		if p.ID == "" || p.Text == "" {
			return fmt.Errorf("prompt set %s: prompt without id or text", s.Version)
		}
		if seen[p.ID] {
			return fmt.Errorf("prompt set %s: duplicate prompt %s", s.Version, p.ID)
		}
		seen[p.ID] = true
		if p.Type != models.PromptBehavioral && p.Type != models.PromptTechnical {
			return fmt.Errorf("prompt set %s: prompt %s has unknown type %q", s.Version, p.ID, p.Type)
		}
	}
	return nil
}

// StaticCatalog serves prompt sets held in memory.
type StaticCatalog struct {
	sets map[string][]models.Prompt
}

func NewStaticCatalog(sets ...PromptSet) (*StaticCatalog, error) {
	c := &StaticCatalog{sets: make(map[string][]models.Prompt, len(sets))}
	for _, s := range sets {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.sets[s.Version]; dup {
			return nil, fmt.Errorf("prompt set %s defined twice", s.Version)
		}
		c.sets[s.Version] = s.Prompts
	}
	return c, nil
}

// LoadEmbedded builds a StaticCatalog from the bundled sets/*.yaml files.
func LoadEmbedded() (*StaticCatalog, error) {
	entries, err := fs.ReadDir(setsFS, "sets")
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt sets: %w", err)
	}
	var sets []PromptSet
	for _, entry := range entries {
		data, err := setsFS.ReadFile(path.Join("sets", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt set %s: %w", entry.Name(), err)
		}
		var set PromptSet
		if err := yaml.Unmarshal(data, &set); err != nil {
			return nil, fmt.Errorf("failed to parse prompt set %s: %w", entry.Name(), err)
		}
		sets = append(sets, set)
	}
	return NewStaticCatalog(sets...)
}

func (c *StaticCatalog) Resolve(_ context.Context, versionID string) ([]models.Prompt, error) {
	prompts, ok := c.sets[versionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, versionID)
	}
	out := make([]models.Prompt, len(prompts))
	copy(out, prompts)
	return out, nil
}

// Versions lists the loaded version ids.
func (c *StaticCatalog) Versions() []string {
	versions := make([]string, 0, len(c.sets))
	for v := range c.sets {
		versions = append(versions, v)
	}
	return versions
}
