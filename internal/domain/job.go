package domain

import (
	"time"
)

// Job — единица работы worker'а.
//
// Worker обрабатывает ровно один job за раз: в БД существует максимум
// одна запись (фиксированный первичный ключ, см. repo.JobRepo).
// Job создаётся запросом POST /job и удаляется только внешним
// test/reset инструментарием.
type Job struct {
	// Label — человекочитаемая метка job. Входит в reference каждого
	// WorkerEvent и в тело каждой доставки.
	Label string `json:"label"`

	// EventDeliveryURL — внешний endpoint, на который доставляются
	// worker events (POST JSON).
	EventDeliveryURL string `json:"event_delivery_url"`

	// MaximumDurationInSeconds — максимальная длительность выполнения.
	// Отсчёт начинается с StartedAt.
	MaximumDurationInSeconds int `json:"maximum_duration_in_seconds"`

	// StartedAt — время первого запуска test.
	// Nil, пока ни один test не начал выполняться. Устанавливается один раз.
	StartedAt *time.Time `json:"start_date_time,omitempty"`

	// TestPaths — пути test-файлов в порядке объявления в манифесте.
	TestPaths []string `json:"test_paths"`

	// CreatedAt — время создания job.
	CreatedAt time.Time `json:"created_at"`
}

// HasStarted возвращает true, если хотя бы один test начал выполняться.
func (j *Job) HasStarted() bool {
	return j.StartedAt != nil
}

// HasReachedMaximumDuration возвращает true, если с момента StartedAt
// прошло не меньше MaximumDurationInSeconds.
// Пока StartedAt не установлен, всегда false.
func (j *Job) HasReachedMaximumDuration(now time.Time) bool {
	if j.StartedAt == nil {
		return false
	}
	maximum := time.Duration(j.MaximumDurationInSeconds) * time.Second
	return now.Sub(*j.StartedAt) >= maximum
}

// MarkStarted устанавливает StartedAt, если он ещё не установлен.
// Повторный вызов — no-op: установка "сейчас" дважды семантически
// не отличается, гонка между handler'ами допустима.
func (j *Job) MarkStarted(now time.Time) {
	if j.StartedAt != nil {
		return
	}
	j.StartedAt = &now
}
