package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// embeds all .yaml files in the templates folder into Go program at compile time
//
//go:embed templates/*.yaml
var templateFS embed.FS

var funcs = template.FuncMap{"join": strings.Join}

// PromptManager holds the compiled model instructions, keyed by mode and
// evaluator version.
type PromptManager struct {
	prompts map[string]map[string]*template.Template // mode -> version -> template
}

// loaded prompt template
type PromptTemplate struct {
	BasePrompt string            `yaml:"base_prompt"`
	Versions   map[string]string `yaml:"versions"`
}

// creates a new prompt manager and loads templates
func NewPromptManager() (*PromptManager, error) {
	pm := &PromptManager{
		prompts: make(map[string]map[string]*template.Template),
	}

	if err := pm.loadPrompts(); err != nil {
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}

	return pm, nil
}

// BuildPrompt renders the template for mode at version with data.
func (pm *PromptManager) BuildPrompt(mode, version string, data any) (string, error) {
	modePrompts, exists := pm.prompts[mode]
	if !exists {
		return "", fmt.Errorf("template not found for mode: %s", mode)
	}

	tmpl, exists := modePrompts[version]
	if !exists {
		return "", fmt.Errorf("version '%s' not found for mode '%s'", version, mode)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s/%s: %w", mode, version, err)
	}
	return buf.String(), nil
}

// HasVersion reports whether every mode defines version.
func (pm *PromptManager) HasVersion(version string) bool {
	if len(pm.prompts) == 0 {
		return false
	}
	for _, versions := range pm.prompts {
		if _, ok := versions[version]; !ok {
			return false
		}
	}
	return true
}

// GetTemplates lists "mode/version" keys, sorted.
func (pm *PromptManager) GetTemplates() []string {
	var keys []string
	for mode, versions := range pm.prompts {
		for version := range versions {
			keys = append(keys, mode+"/"+version)
		}
	}
	sort.Strings(keys)
	return keys
}

// loadPrompts loads all YAML prompt files from the embedded filesystem
func (pm *PromptManager) loadPrompts() error {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return fmt.Errorf("failed to read templates directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		data, err := templateFS.ReadFile("templates/" + entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read template file %s: %w", entry.Name(), err)
		}

		var promptTemplate PromptTemplate
		if err := yaml.Unmarshal(data, &promptTemplate); err != nil {
			return fmt.Errorf("failed to parse template file %s: %w", entry.Name(), err)
		}

		name := strings.TrimSuffix(entry.Name(), ".yaml")
		pm.prompts[name] = make(map[string]*template.Template)

		for version, body := range promptTemplate.Versions {
			var fullPrompt strings.Builder
			if promptTemplate.BasePrompt != "" {
				fullPrompt.WriteString(promptTemplate.BasePrompt)
				fullPrompt.WriteString("\n\n")
			}
			fullPrompt.WriteString(body)

			tmpl, err := template.New(name + "/" + version).Funcs(funcs).Option("missingkey=error").Parse(fullPrompt.String())
			if err != nil {
				return fmt.Errorf("failed to compile %s/%s: %w", name, version, err)
			}
			pm.prompts[name][version] = tmpl
		}
	}

	return nil
}
