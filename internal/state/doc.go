// Package state вычисляет агрегатные статусы обработки job'а.
//
// Статусы не хранятся как отдельные поля — они выводятся из счётчиков
// сущностей (sources, tests, worker events) при каждом запросе.
// Один источник истины ценой одного запроса на проверку.
package state
