package trinity

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

// Config holds the settings an Engine reads while composing.
type Config struct {
	// Path is the directory, within the Engine's filesystem, that
	// template names are resolved against. The markup for template "foo"
	// lives at Path/foo.html.
	Path string `yaml:"path"`

	// Static is the name of the template used as the document shell for
	// every root composition. Its markup must contain a full document.
	Static string `yaml:"static"`

	// PublicPath is the URL prefix that the static template's stylesheet
	// and script are linked from.
	PublicPath string `yaml:"publicPath"`

	// ErrorTemplate is the name of a template whose markup is written by
	// Render when a composition fails. If empty, a plain text message is
	// written instead.
	ErrorTemplate string `yaml:"errorTemplate,omitempty"`

	// Preload is a list of doublestar patterns, relative to Path, of
	// markup files that Warm loads into the cache ahead of time.
	Preload []string `yaml:"preload,omitempty"`
}

// DefaultConfig returns the Config used for any settings left empty.
func DefaultConfig() Config {
	return Config{
		Path:       ".",
		Static:     "static",
		PublicPath: "trinity",
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Path == "" {
		c.Path = def.Path
	}
	c.Path = path.Clean(c.Path)
	if c.Static == "" {
		c.Static = def.Static
	}
	if c.PublicPath == "" {
		c.PublicPath = def.PublicPath
	}
	return c
}

// LoadConfig decodes a YAML Config from r. Unknown keys are an error, and
// empty settings are filled in from DefaultConfig.
func LoadConfig(r io.Reader) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(&cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}
	return cfg.withDefaults(), nil
}

// LoadConfigFile decodes the YAML Config stored at name in fsys.
func LoadConfigFile(fsys fs.FS, name string) (Config, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return Config{}, fmt.Errorf("error opening config %q: %w", name, err)
	}
	defer f.Close()
	cfg, err := LoadConfig(f)
	if err != nil {
		return Config{}, fmt.Errorf("error loading config %q: %w", name, err)
	}
	return cfg, nil
}
