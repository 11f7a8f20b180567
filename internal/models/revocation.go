package models

import "time"

// RevocationJob фиксирует ход отзыва доступа у пользователя.
// Отзыв состоит из трёх независимых шагов по внешним системам,
// каждый шаг отмечается отдельно, чтобы свип мог дожать неудавшиеся.
type RevocationJob struct {
	ID             int       // Идентификатор записи
	UserUID        string    // Идентификатор пользователя, уникален
	ClientRemoved  bool      // Клиент удалён с панели xray
	AccountRemoved bool      // Запись VPN-аккаунта удалена
	AccountBlocked bool      // Аккаунт помечен заблокированным
	Attempts       int       // Сколько раз шаги уже выполнялись
	CreatedAt      time.Time // Когда отзыв начат
	UpdatedAt      time.Time // Последняя попытка
}

// Complete сообщает, выполнены ли все шаги отзыва.
func (j *RevocationJob) Complete() bool {
	return j.ClientRemoved && j.AccountRemoved && j.AccountBlocked
}
