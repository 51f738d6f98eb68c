package state

import (
	"context"
	"fmt"

	"github.com/shaiso/Relay/internal/domain"
	"github.com/shaiso/Relay/internal/repo"
)

// Aggregator собирает счётчики из репозиториев и выводит агрегатные статусы.
type Aggregator struct {
	jobs    *repo.JobRepo
	sources *repo.SourceRepo
	tests   *repo.TestRepo
	events  *repo.EventRepo
}

// NewAggregator создаёт новый Aggregator.
func NewAggregator(jobs *repo.JobRepo, sources *repo.SourceRepo, tests *repo.TestRepo, events *repo.EventRepo) *Aggregator {
	return &Aggregator{
		jobs:    jobs,
		sources: sources,
		tests:   tests,
		events:  events,
	}
}

// Counts собирает счётчики всех сущностей.
func (a *Aggregator) Counts(ctx context.Context) (Counts, error) {
	var c Counts

	exists, err := a.jobs.Exists(ctx)
	if err != nil {
		return c, fmt.Errorf("check job existence: %w", err)
	}
	c.JobExists = exists

	if !exists {
		return c, nil
	}

	if c.Sources, err = a.sources.Count(ctx); err != nil {
		return c, err
	}

	// Исходы компиляции восстанавливаются из worker events:
	// по одному compilation_passed/failed на source
	if c.SourcesPassed, err = a.events.CountByTypes(ctx, domain.EventTypeCompilationPassed); err != nil {
		return c, err
	}
	if c.SourcesFailed, err = a.events.CountByTypes(ctx, domain.EventTypeCompilationFailed); err != nil {
		return c, err
	}

	timedOut, err := a.events.CountByTypes(ctx, domain.EventTypeJobTimedOut)
	if err != nil {
		return c, err
	}
	c.TimedOut = timedOut > 0

	if c.TestsTotal, _, c.TestsUnfinished, c.TestsFailed, err = a.tests.Counts(ctx); err != nil {
		return c, err
	}

	if c.EventsTotal, c.EventsUnfinished, c.EventsFailed, err = a.events.Counts(ctx); err != nil {
		return c, err
	}

	return c, nil
}

// Snapshot возвращает срез всех агрегатных статусов.
func (a *Aggregator) Snapshot(ctx context.Context) (Snapshot, error) {
	counts, err := a.Counts(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return ComputeSnapshot(counts), nil
}

// ApplicationState возвращает только общий статус приложения.
func (a *Aggregator) ApplicationState(ctx context.Context) (domain.ApplicationState, error) {
	counts, err := a.Counts(ctx)
	if err != nil {
		return "", err
	}
	return ComputeApplicationState(counts), nil
}

// JobEnded сообщает, достиг ли job конечного состояния.
// Если job не существует — false (awaiting-job не конечное).
func (a *Aggregator) JobEnded(ctx context.Context) (bool, error) {
	appState, err := a.ApplicationState(ctx)
	if err != nil {
		return false, err
	}
	return appState.IsEndState(), nil
}
