package domain

import (
	"time"

	"github.com/google/uuid"
)

// SourceType — тип source-файла.
type SourceType string

const (
	// SourceTypeTest — YAML-тест, компилируется в исполняемый артефакт.
	SourceTypeTest SourceType = "test"

	// SourceTypeResource — вспомогательный файл (fixtures, данные).
	SourceTypeResource SourceType = "resource"
)

// IsValid проверяет, что тип известен.
func (t SourceType) IsValid() bool {
	return t == SourceTypeTest || t == SourceTypeResource
}

// Source — один объявленный файл из манифеста job.
//
// Sources создаются при создании job из распарсенной коллекции файлов
// и после этого не изменяются.
type Source struct {
	// ID — уникальный идентификатор source.
	ID uuid.UUID `json:"id"`

	// Type — тип файла: test или resource.
	Type SourceType `json:"type"`

	// Path — относительный путь, как объявлен в манифесте.
	Path string `json:"path"`

	// Content — содержимое файла, передаётся компилятору как есть.
	Content string `json:"content,omitempty"`

	// CreatedAt — время создания source.
	CreatedAt time.Time `json:"created_at"`
}

// TestConfiguration — дедуплицированная пара (browser, url).
//
// Несколько tests с одинаковой конфигурацией ссылаются на одну запись:
// поиск идёт через look-up-or-create по уникальной паре (browser, url).
type TestConfiguration struct {
	// ID — уникальный идентификатор конфигурации.
	ID uuid.UUID `json:"id"`

	// Browser — браузер, в котором выполняется test.
	Browser string `json:"browser"`

	// URL — начальный адрес test.
	URL string `json:"url"`
}
