package runner

// Configuration is one chain file: the page a chain starts on, its parameters and the
// advances to perform.
type Configuration struct {
	Version           string               `yaml:"version"`
	Name              string               `yaml:"name"`
	Description       string               `yaml:"description"`
	Start             string               `yaml:"start"`
	URL               string               `yaml:"url"`
	WaitTitleContains string               `yaml:"wait_title_contains"`
	Params            map[string]any       `yaml:"params"`
	Steps             []ConfigurationStep  `yaml:"steps"`
	Expect            *ConfigurationExpect `yaml:"expect"`
}

// ConfigurationStep is one advance. Params are merged into the chain before the
// action of the current page runs.
type ConfigurationStep struct {
	Description string               `yaml:"description"`
	Params      map[string]any       `yaml:"params"`
	Expect      *ConfigurationExpect `yaml:"expect"`
}

// ConfigurationExpect is checked against the page reached. Empty fields are not
// checked.
type ConfigurationExpect struct {
	Page          string            `yaml:"page"`
	TitleContains string            `yaml:"title_contains"`
	URLContains   string            `yaml:"url_contains"`
	Chain         map[string]string `yaml:"chain"`
}
