// Package api реализует HTTP интерфейс worker'а.
//
// Контракт зафиксирован внешними потребителями:
//   - POST /job — принять job (ровно один за жизненный цикл worker'а);
//     ошибки валидации — 400 с {"error_state": "<code>"}
//   - GET /job — job со статусами стадий и списком tests; 400 с {}, если job нет
//   - GET /application_state — агрегатные статусы
//   - GET /event/{id} — worker event; 404, если не найден
//   - DELETE /job — полный сброс состояния worker'а
package api
