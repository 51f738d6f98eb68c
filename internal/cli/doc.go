// Package cli реализует инструмент командной строки Relay.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Relay API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
// CLI используется для отправки job, просмотра его состояния
// и отдельных worker events.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Relay API. Инкапсулирует все HTTP-запросы,
// контракт ошибок (error_state в теле 400) и обработку
// отсутствующего job.
//
//	client := cli.NewClient("http://localhost:8080")
//	job, err := client.GetJob()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: relay job show --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - job: submit, show, delete
//   - state: текущий ApplicationState со стадиями конвейера
//   - event: show
//
// Каждая группа создаётся через фабричную функцию (NewJobCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
