// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - job.ready      — job принят и готов к обработке
//   - source.compile — source ожидает компиляции
//   - test.execute   — test готов к выполнению
//   - event.deliver  — worker event ожидает доставки
//
// Exchanges:
//   - relay.jobs     — жизненный цикл job
//   - relay.tests    — компиляция и выполнение tests
//   - relay.events   — доставка worker events
//   - relay.dlq      — dead letter queue
//
// Сообщения несут только идентификаторы: handler перечитывает актуальное
// состояние из БД, поэтому повторная доставка сообщения безопасна.
package mq
