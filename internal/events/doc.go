// Package events определяет доменные события worker'а и шину подписки.
//
// Доменное событие — это внутрипроцессное уведомление "что-то произошло"
// (job стартовал, source скомпилирован, test прошёл). События потребляются
// подписчиками шины: delivery-конвейер превращает их в долговечные
// WorkerEvents и ставит в очередь на доставку.
//
// Шина — явный статически типизированный реестр: закрытое множество
// вариантов событий плюс отображение тип → упорядоченный список
// обработчиков. Порядок задаётся числовым приоритетом подписки, меньший
// приоритет вызывается раньше.
package events
