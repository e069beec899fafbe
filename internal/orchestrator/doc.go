// Package orchestrator управляет выездами и всем, что происходит во время них.
//
// Orchestrator отвечает за:
//   - Жизненный цикл run: create, update, start, complete, cancel
//   - Секвенсор остановок: advance, retreat
//   - Журнал статусов запросов и проекцию статуса
//   - Состав команды и вычисляемого лидера
//   - Записи о доставке и встречах с friends
//   - Ленту изменений для polling-синхронизации устройств
//
// Чистые вычисления (порядок остановок, лидер, контекст исполнения)
// живут в engine; здесь только транзакции, ошибки, логи и события.
package orchestrator
