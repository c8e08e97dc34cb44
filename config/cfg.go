// Package config holds the engine configuration and the logger setup.
package config

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/text/language"
	yaml "gopkg.in/yaml.v3"
)

type (
	PageConfig struct {
		WidthPt  float64 `yaml:"width_pt"`
		HeightPt float64 `yaml:"height_pt"`
		MarginPt float64 `yaml:"margin_pt"`
	}

	DocumentConfig struct {
		// Language is the default document language as a BCP-47 tag.
		Language string     `yaml:"language"`
		Page     PageConfig `yaml:"page"`
		// ReadingAid turns the dyslexia-friendly rendering hint on for new
		// documents.
		ReadingAid bool `yaml:"reading_aid"`
	}

	ExportConfig struct {
		// FixZip rewrites odt output without data descriptors.
		FixZip bool `yaml:"fix_zip"`
		// TextEncoding is the IANA character set for plain text export,
		// empty for UTF-8.
		TextEncoding          string `yaml:"text_encoding"`
		FileNameTransliterate bool   `yaml:"file_name_transliterate"`
		Overwrite             bool   `yaml:"overwrite"`
	}

	SpeechConfig struct {
		// DictationLanguage is the language the dictation collaborator is
		// asked to recognize.
		DictationLanguage string `yaml:"dictation_language"`
		// ReadbackLanguage overrides the document language for readback
		// when set.
		ReadbackLanguage string `yaml:"readback_language"`
	}

	LoggerConfig struct {
		Level       string `yaml:"level"`
		Destination string `yaml:"destination,omitempty"`
		Mode        string `yaml:"mode,omitempty"`
	}

	LoggingConfig struct {
		FileLogger    LoggerConfig `yaml:"file"`
		ConsoleLogger LoggerConfig `yaml:"console"`
	}

	Config struct {
		Version  int            `yaml:"version"`
		Document DocumentConfig `yaml:"document"`
		Export   ExportConfig   `yaml:"export"`
		Speech   SpeechConfig   `yaml:"speech"`
		Logging  LoggingConfig  `yaml:"logging"`
	}
)

// Default returns the configuration used when no file is given: A4 page
// with one inch margins, French dictation, console logging at normal level.
func Default() *Config {
	return &Config{
		Version: 1,
		Document: DocumentConfig{
			Language: "fr-FR",
			Page:     PageConfig{WidthPt: 595.28, HeightPt: 841.89, MarginPt: 72},
		},
		Export: ExportConfig{
			FixZip: true,
		},
		Speech: SpeechConfig{
			DictationLanguage: "fr-FR",
		},
		Logging: LoggingConfig{
			ConsoleLogger: LoggerConfig{Level: "normal"},
			FileLogger:    LoggerConfig{Level: "none", Mode: "append"},
		},
	}
}

// Load reads the configuration file at path on top of the defaults. Unknown
// fields are rejected so typos do not silently disable options. An empty
// path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if len(path) == 0 {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Dump serializes the configuration back to YAML, the dumpconfig command
// uses it to show the active values.
func Dump(c *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Config) validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported configuration version %d", c.Version)
	}
	switch c.Logging.ConsoleLogger.Level {
	case "", "none", "normal", "debug":
	default:
		return fmt.Errorf("unknown console log level %q", c.Logging.ConsoleLogger.Level)
	}
	switch c.Logging.FileLogger.Level {
	case "", "none", "normal", "debug":
	default:
		return fmt.Errorf("unknown file log level %q", c.Logging.FileLogger.Level)
	}
	if lvl := c.Logging.FileLogger.Level; (lvl == "normal" || lvl == "debug") && c.Logging.FileLogger.Destination == "" {
		return fmt.Errorf("file logging requested without destination")
	}
	if p := c.Document.Page; p.WidthPt <= 0 || p.HeightPt <= 0 || p.MarginPt < 0 || p.MarginPt*2 >= p.WidthPt {
		return fmt.Errorf("invalid page geometry %+v", p)
	}
	for _, tag := range []string{c.Document.Language, c.Speech.DictationLanguage, c.Speech.ReadbackLanguage} {
		if tag == "" {
			continue
		}
		if _, err := language.Parse(tag); err != nil {
			return fmt.Errorf("malformed language tag %q: %w", tag, err)
		}
	}
	return nil
}
