package exercise

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/pencil/internal/domain"
	"github.com/felixgeelhaar/pencil/internal/rules"
	"gopkg.in/yaml.v3"
)

// PackFile represents the YAML structure for an exercise pack
type PackFile struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Description string   `yaml:"description"`
	Language    string   `yaml:"language"`
	Exercises   []string `yaml:"exercises"`
}

// ExerciseFile represents the YAML structure for a code-editor exercise
type ExerciseFile struct {
	ID                string   `yaml:"id"`
	Title             string   `yaml:"title"`
	Prompt            string   `yaml:"prompt"`
	Language          string   `yaml:"language"`
	Difficulty        string   `yaml:"difficulty"`
	Tags              []string `yaml:"tags"`
	CustomizationArgs struct {
		InitialCode string `yaml:"initial_code"`
	} `yaml:"customization_args"`
	AnswerGroups []struct {
		Rules []struct {
			Type   string            `yaml:"type"`
			Inputs map[string]string `yaml:"inputs"`
		} `yaml:"rules"`
		Outcome OutcomeFile `yaml:"outcome"`
	} `yaml:"answer_groups"`
	DefaultOutcome OutcomeFile `yaml:"default_outcome"`
}

// OutcomeFile is the YAML form of an outcome
type OutcomeFile struct {
	Feedback string `yaml:"feedback"`
	Correct  bool   `yaml:"correct"`
}

// Loader handles loading exercises from YAML files
type Loader struct {
	basePath  string
	evaluator *rules.Evaluator
}

// NewLoader creates a new exercise loader
func NewLoader(basePath string) *Loader {
	return &Loader{
		basePath:  basePath,
		evaluator: rules.NewEvaluator(),
	}
}

// LoadPack loads an exercise pack from a directory
func (l *Loader) LoadPack(packID string) (*domain.ExercisePack, error) {
	packPath := filepath.Join(l.basePath, packID, "pack.yaml")

	data, err := os.ReadFile(packPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrExercisePackNotFound, packID)
		}
		return nil, fmt.Errorf("read pack file: %w", err)
	}

	var packFile PackFile
	if err := yaml.Unmarshal(data, &packFile); err != nil {
		return nil, fmt.Errorf("parse pack file: %w", err)
	}

	pack := &domain.ExercisePack{
		ID:          packFile.ID,
		Name:        packFile.Name,
		Version:     packFile.Version,
		Description: packFile.Description,
		Language:    packFile.Language,
		ExerciseIDs: make([]string, len(packFile.Exercises)),
	}
	if pack.ID == "" {
		pack.ID = packID
	}

	for i, ex := range packFile.Exercises {
		pack.ExerciseIDs[i] = fmt.Sprintf("%s/%s", packID, ex)
	}

	return pack, nil
}

// LoadExercise loads a single exercise of a pack
func (l *Loader) LoadExercise(packID, slug string) (*domain.Exercise, error) {
	// Build path: basePath/packID/category/exercise.yaml
	parts := strings.Split(slug, "/")
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: invalid exercise slug %s", domain.ErrInvalidInput, slug)
	}

	exercisePath := filepath.Join(l.basePath, packID, slug+".yaml")
	ex, err := l.LoadFile(exercisePath)
	if err != nil {
		return nil, err
	}

	ex.ID = fmt.Sprintf("%s/%s", packID, slug)
	ex.PackID = packID
	if ex.Language == "" {
		if pack, err := l.LoadPack(packID); err == nil {
			ex.Language = pack.Language
		}
	}
	return ex, nil
}

// LoadFile loads a standalone exercise file
func (l *Loader) LoadFile(path string) (*domain.Exercise, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrExerciseNotFound, path)
		}
		return nil, fmt.Errorf("read exercise file: %w", err)
	}

	var exFile ExerciseFile
	if err := yaml.Unmarshal(data, &exFile); err != nil {
		return nil, fmt.Errorf("parse exercise file: %w", err)
	}

	exercise := &domain.Exercise{
		ID:          exFile.ID,
		Title:       exFile.Title,
		Prompt:      exFile.Prompt,
		Language:    exFile.Language,
		Difficulty:  domain.Difficulty(exFile.Difficulty),
		InitialCode: exFile.CustomizationArgs.InitialCode,
		Tags:        exFile.Tags,
		DefaultOutcome: domain.Outcome{
			Feedback: exFile.DefaultOutcome.Feedback,
			Correct:  exFile.DefaultOutcome.Correct,
		},
	}
	if exercise.ID == "" {
		exercise.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	exercise.AnswerGroups = make([]domain.AnswerGroup, len(exFile.AnswerGroups))
	for i, g := range exFile.AnswerGroups {
		group := domain.AnswerGroup{
			Outcome: domain.Outcome{Feedback: g.Outcome.Feedback, Correct: g.Outcome.Correct},
			Rules:   make([]domain.RuleSpec, len(g.Rules)),
		}
		for j, r := range g.Rules {
			if !l.evaluator.Supports(r.Type) {
				return nil, fmt.Errorf("%w: answer group %d: %v: %s",
					domain.ErrInvalidExercise, i, rules.ErrUnknownRule, r.Type)
			}
			group.Rules[j] = domain.RuleSpec{Type: r.Type, Inputs: r.Inputs}
		}
		exercise.AnswerGroups[i] = group
	}

	return exercise, nil
}

// LoadAllPacks loads all exercise packs from the base directory
func (l *Loader) LoadAllPacks() ([]*domain.ExercisePack, error) {
	entries, err := os.ReadDir(l.basePath)
	if err != nil {
		return nil, fmt.Errorf("read exercises directory: %w", err)
	}

	var packs []*domain.ExercisePack
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		packPath := filepath.Join(l.basePath, entry.Name(), "pack.yaml")
		if _, err := os.Stat(packPath); os.IsNotExist(err) {
			continue
		}

		pack, err := l.LoadPack(entry.Name())
		if err != nil {
			return nil, fmt.Errorf("load pack %s: %w", entry.Name(), err)
		}
		packs = append(packs, pack)
	}

	return packs, nil
}
