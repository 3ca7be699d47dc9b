package runner

import (
	"errors"
	"testing"
)

func TestLanguage_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		lang     Language
		expected bool
	}{
		{"python is valid", LanguagePython, true},
		{"javascript is valid", LanguageJavaScript, true},
		{"go is valid", LanguageGo, true},
		{"empty is invalid", Language(""), false},
		{"unknown is invalid", Language("cobol"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.lang.IsValid()
			if got != tc.expected {
				t.Errorf("Language(%q).IsValid() = %v; want %v", tc.lang, got, tc.expected)
			}
		})
	}
}

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  Language
		expectErr bool
	}{
		{"parse python", "python", LanguagePython, false},
		{"parse python3 alias", "Python3", LanguagePython, false},
		{"parse js alias", " js ", LanguageJavaScript, false},
		{"parse golang alias", "golang", LanguageGo, false},
		{"parse invalid", "cobol", "", true},
		{"parse empty", "", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseLanguage(tc.input)
			if tc.expectErr {
				if !errors.Is(err, ErrUnsupportedLanguage) {
					t.Errorf("ParseLanguage(%q) error = %v; want ErrUnsupportedLanguage", tc.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLanguage(%q) unexpected error: %v", tc.input, err)
			}
			if got != tc.expected {
				t.Errorf("ParseLanguage(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestDefaultLanguageConfigs(t *testing.T) {
	configs := DefaultLanguageConfigs()
	for _, lang := range []Language{LanguagePython, LanguageJavaScript, LanguageGo} {
		cfg, ok := configs[lang]
		if !ok {
			t.Errorf("missing config for %s", lang)
			continue
		}
		if cfg.DockerImage == "" || cfg.FileName == "" || len(cfg.RunCommand) == 0 {
			t.Errorf("incomplete config for %s: %+v", lang, cfg)
		}
	}
}
