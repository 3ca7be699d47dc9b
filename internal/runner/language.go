package runner

import (
	"fmt"
	"strings"
)

// Language represents a supported programming language
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageGo         Language = "go"
)

// IsValid checks if the language is supported
func (l Language) IsValid() bool {
	switch l {
	case LanguagePython, LanguageJavaScript, LanguageGo:
		return true
	default:
		return false
	}
}

// String returns the language as a string
func (l Language) String() string {
	return string(l)
}

// ParseLanguage converts a string to a Language. Common aliases are accepted.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "python", "python3", "py":
		return LanguagePython, nil
	case "javascript", "js", "node":
		return LanguageJavaScript, nil
	case "go", "golang":
		return LanguageGo, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedLanguage, s)
}

// LanguageConfig describes how to run a single source file
type LanguageConfig struct {
	DockerImage string
	FileName    string
	// RunCommand runs FileName from the working directory
	RunCommand []string
}

// DefaultLanguageConfigs returns default configurations for all supported languages
func DefaultLanguageConfigs() map[Language]LanguageConfig {
	return map[Language]LanguageConfig{
		LanguagePython: {
			DockerImage: "python:3.12-alpine",
			FileName:    "main.py",
			RunCommand:  []string{"python3", "-u", "main.py"},
		},
		LanguageJavaScript: {
			DockerImage: "node:22-alpine",
			FileName:    "main.js",
			RunCommand:  []string{"node", "main.js"},
		},
		LanguageGo: {
			DockerImage: "golang:1.23-alpine",
			FileName:    "main.go",
			RunCommand:  []string{"go", "run", "main.go"},
		},
	}
}
