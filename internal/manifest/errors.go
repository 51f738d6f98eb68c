package manifest

import (
	"errors"
	"fmt"
)

// Ошибки парсинга и валидации коллекции файлов.
var (
	// ErrUnparseable — коллекция не является валидным YAML.
	ErrUnparseable = errors.New("source collection is not parseable")

	// ErrEmptyCollection — коллекция не содержит файлов.
	ErrEmptyCollection = errors.New("source collection has no files")

	// ErrEmptyPath — файл без пути.
	ErrEmptyPath = errors.New("file has empty path")

	// ErrInvalidType — неизвестный тип файла.
	ErrInvalidType = errors.New("file has invalid type")

	// ErrDuplicatePath — путь объявлен более одного раза.
	ErrDuplicatePath = errors.New("file path declared twice")

	// ErrNoTests — коллекция не содержит ни одного test-файла.
	ErrNoTests = errors.New("source collection has no test files")
)

// ValidationError — ошибка валидации одного файла коллекции.
type ValidationError struct {
	// Path — путь файла (пустой, если путь и есть проблема).
	Path string

	// Field — поле, не прошедшее валидацию.
	Field string

	// Message — описание проблемы.
	Message string

	// Err — базовая sentinel-ошибка для errors.Is.
	Err error
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Path, e.Field, e.Message)
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт ValidationError.
func NewValidationError(path, field, message string, err error) *ValidationError {
	return &ValidationError{
		Path:    path,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
