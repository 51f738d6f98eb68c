// Package delivery отвечает за надёжную доставку worker events
// на внешний endpoint job'а.
//
// Конвейер:
//
//	domain event → Factory (persisted WorkerEvent, дедупликация по reference)
//	             → Dispatcher (queued + сообщение events.deliver)
//	             → Deliverer (HTTP POST) под управлением RetryStrategy
//
// Reference вычисляется детерминированно из label job'а и компонентов
// события, поэтому повторная эмиссия логически того же события не
// создаёт вторую запись доставки.
package delivery
