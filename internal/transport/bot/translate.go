package bot

import (
	"errors"

	derrors "github.com/postplanner/post-planner-bot/internal/errors"
)

// userMessage переводит ошибку сервиса в человеческий ответ.
// Внутренности наружу не показываем.
func userMessage(err error) string {
	switch {
	case errors.Is(err, derrors.ErrValidation):
		return "Пост пустой: нужен текст или вложение."
	case errors.Is(err, derrors.ErrQuotaExceeded):
		return "Лимит постов на сегодня исчерпан. Новые посты — завтра или на тарифе повыше: /tariffs"
	case errors.Is(err, derrors.ErrChannelQuotaExceeded):
		return "Лимит каналов тарифа исчерпан. Посмотрите /tariffs."
	case errors.Is(err, derrors.ErrChannelNotOwned):
		return "Это не ваш канал. Список ваших: /channels"
	case errors.Is(err, derrors.ErrNotFound):
		return "Не нашёл. Проверьте номер и попробуйте снова."
	case errors.Is(err, derrors.ErrNoActiveSubscription):
		return "Нужна активная подписка: /tariffs"
	case errors.Is(err, derrors.ErrGateway):
		return "Telegram сейчас не отвечает, попробуйте позже."
	}
	return "Внутренняя ошибка сервиса, попробуйте позже"
}
