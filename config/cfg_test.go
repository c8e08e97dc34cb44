package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Version != 1 {
		t.Fatalf("default version %d", cfg.Version)
	}
	if cfg.Document.Page.WidthPt != 595.28 {
		t.Fatalf("default page width %v", cfg.Document.Page.WidthPt)
	}
	if cfg.Speech.DictationLanguage != "fr-FR" {
		t.Fatalf("default dictation language %q", cfg.Speech.DictationLanguage)
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
version: 1
document:
  language: en-US
  reading_aid: true
export:
  text_encoding: windows-1252
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Document.Language != "en-US" {
		t.Fatalf("language not overridden: %q", cfg.Document.Language)
	}
	if !cfg.Document.ReadingAid {
		t.Fatal("reading aid not set")
	}
	if cfg.Export.TextEncoding != "windows-1252" {
		t.Fatalf("text encoding not set: %q", cfg.Export.TextEncoding)
	}
	// untouched values keep their defaults
	if cfg.Document.Page.HeightPt != 841.89 {
		t.Fatalf("page default lost: %v", cfg.Document.Page.HeightPt)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, `
version: 1
document:
  langauge: en-US
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for misspelled field")
	}
}

func TestLoadRejectsBadVersion(t *testing.T) {
	path := writeConfig(t, "version: 2\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unsupported version")
	}
}

func TestLoadRejectsFileLogWithoutDestination(t *testing.T) {
	path := writeConfig(t, `
version: 1
logging:
  file:
    level: debug
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for file logging without destination")
	}
}

func TestLoadRejectsMalformedLanguageTag(t *testing.T) {
	path := writeConfig(t, `
version: 1
speech:
  dictation_language: not a tag
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed language tag")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCleanFileName(t *testing.T) {
	if got := CleanFileName("a" + string(os.PathSeparator) + "b"); strings.ContainsRune(got, os.PathSeparator) {
		t.Fatalf("separator kept: %q", got)
	}
	if got := CleanFileName(""); got != "_bad_file_name_" {
		t.Fatalf("empty name: %q", got)
	}
}
