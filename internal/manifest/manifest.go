package manifest

import (
	"fmt"

	"github.com/shaiso/Relay/internal/domain"
	"gopkg.in/yaml.v3"
)

// File — один объявленный файл коллекции.
type File struct {
	// Path — относительный путь файла.
	Path string `yaml:"path" json:"path"`

	// Type — тип файла: test или resource.
	Type string `yaml:"type" json:"type"`

	// Content — содержимое файла.
	Content string `yaml:"content" json:"content"`
}

// FileCollection — коллекция файлов, объявленная при создании job.
type FileCollection struct {
	// Files — файлы в порядке объявления. Порядок значим:
	// он определяет порядок компиляции и выполнения tests.
	Files []File `yaml:"files" json:"files"`
}

// Parse парсит сериализованную YAML-коллекцию.
func Parse(raw string) (*FileCollection, error) {
	var collection FileCollection
	if err := yaml.Unmarshal([]byte(raw), &collection); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	return &collection, nil
}

// Validate выполняет полную валидацию коллекции.
//
// Проверяет:
//   - Наличие файлов
//   - Непустые пути
//   - Известные типы (test | resource)
//   - Уникальность путей
//   - Наличие хотя бы одного test-файла
func Validate(collection *FileCollection) error {
	if collection == nil || len(collection.Files) == 0 {
		return ErrEmptyCollection
	}

	seen := make(map[string]bool, len(collection.Files))
	hasTest := false

	for i := range collection.Files {
		file := &collection.Files[i]

		if file.Path == "" {
			return NewValidationError("", "path", "file has empty path", ErrEmptyPath)
		}

		if !domain.SourceType(file.Type).IsValid() {
			return NewValidationError(file.Path, "type",
				fmt.Sprintf("unknown file type: %q", file.Type), ErrInvalidType)
		}

		if seen[file.Path] {
			return NewValidationError(file.Path, "path",
				"path declared twice", ErrDuplicatePath)
		}
		seen[file.Path] = true

		if file.Type == string(domain.SourceTypeTest) {
			hasTest = true
		}
	}

	if !hasTest {
		return ErrNoTests
	}

	return nil
}

// TestPaths возвращает пути test-файлов в порядке объявления.
func (c *FileCollection) TestPaths() []string {
	paths := make([]string, 0, len(c.Files))
	for i := range c.Files {
		if c.Files[i].Type == string(domain.SourceTypeTest) {
			paths = append(paths, c.Files[i].Path)
		}
	}
	return paths
}

// CompiledTest — одна запись выходного манифеста компилятора.
// По каждой записи создаётся domain.Test.
type CompiledTest struct {
	// Source — путь исходного YAML-файла.
	Source string `json:"source"`

	// Target — путь скомпилированного артефакта.
	Target string `json:"target"`

	// Browser — браузер из конфигурации test.
	Browser string `json:"browser"`

	// URL — начальный адрес test.
	URL string `json:"url"`

	// StepCount — количество шагов.
	StepCount int `json:"step_count"`

	// StepNames — имена шагов в порядке выполнения.
	StepNames []string `json:"step_names,omitempty"`
}

// CompilationOutput — структурированный вывод компилятора об ошибке.
type CompilationOutput struct {
	// Source — путь файла, на котором компиляция упала.
	Source string `json:"source"`

	// Errors — сообщения компилятора.
	Errors []string `json:"errors"`
}
