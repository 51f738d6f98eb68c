// Package worker содержит message handlers конвейера обработки job'а.
//
// Worker — однозадачный компонент: он ведёт единственный job от приёма
// до завершения:
//   - jobs.ready      — старт: рассылает задачи компиляции sources
//   - sources.compile — компиляция одного source внешним compiler'ом
//   - tests.execute   — выполнение одного test внешним executor'ом,
//     строго по возрастанию position (следующий test ставится в очередь
//     только после записи исхода предыдущего)
//   - events.deliver  — доставка одного worker event с retry/backoff
//
// Каждый handler идемпотентен: повторная доставка сообщения с тем же
// входом — no-op. Помимо очереди есть polling fallback, подхватывающий
// потерянные сообщения, и монитор таймаута job'а.
package worker
