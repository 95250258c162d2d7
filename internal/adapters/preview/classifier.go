package preview

import "regexp"

// serviceMessagePatterns перечисляет тексты служебных сообщений Telegram.
// Совпадение с любым из них полностью исключает пост из ленты,
// независимо от прикреплённого медиа.
var serviceMessagePatterns = []*regexp.Regexp{
	// Создание и миграция каналов и чатов
	regexp.MustCompile(`(?i)^(Channel|Chat|Group) (was )?created$`),
	regexp.MustCompile(`(?i)^(Channel|Chat|Group) (name|title) was changed to`),
	regexp.MustCompile(`(?i)^(Channel|Chat|Group) photo (updated|changed|was deleted)`),

	// Вход и выход участников
	regexp.MustCompile(`(?i)joined the (channel|group|chat)`),
	regexp.MustCompile(`(?i)left the (channel|group|chat)`),
	regexp.MustCompile(`(?i)joined via invite link`),
	regexp.MustCompile(`(?i)joined by request`),
	regexp.MustCompile(`(?i)joined Telegram`),

	// Закрепы и очистка истории
	regexp.MustCompile(`(?i)^(Message|Post) was pinned`),
	regexp.MustCompile(`(?i)^History was cleared`),

	// Звонки и видеочаты
	regexp.MustCompile(`(?i)(Voice|Video) chat (started|ended|scheduled)`),
	regexp.MustCompile(`(?i)invited to (voice|video) chat`),
	regexp.MustCompile(`(?i)^Phone call`),
	regexp.MustCompile(`(?i)^Call duration:`),

	// Розыгрыши и бусты
	regexp.MustCompile(`(?i)^Giveaway (started|ended|launched)`),
	regexp.MustCompile(`(?i)(Channel|Group) was boosted`),
	regexp.MustCompile(`(?i)^Boost applied`),

	// Темы форумов
	regexp.MustCompile(`(?i)^Topic created:`),
	regexp.MustCompile(`(?i)^Topic (renamed|edited)`),

	// Платежи и игры
	regexp.MustCompile(`(?i)^Payment (of|sent)`),
	regexp.MustCompile(`(?i)^Game score:`),

	// Изменения настроек
	regexp.MustCompile(`(?i)^Auto-delete timer set to`),
	regexp.MustCompile(`(?i)^Chat theme changed to`),
	regexp.MustCompile(`(?i)^Wallpaper changed`),

	// Скриншоты и безопасность
	regexp.MustCompile(`(?i)^Screenshot was taken`),
	regexp.MustCompile(`(?i)^Secure values`),

	// Геолокация
	regexp.MustCompile(`(?i)is within \d+ meters`),

	// Подарки и премиум
	regexp.MustCompile(`(?i)^Premium (gift|subscription)`),
	regexp.MustCompile(`(?i)^Gift code`),

	// Профиль
	regexp.MustCompile(`(?i)^Profile photo suggested`),

	// Миграция в супергруппу
	regexp.MustCompile(`(?i)upgraded to (supergroup|channel)`),
	regexp.MustCompile(`(?i)migrated (from|to)`),

	// Боты и web view
	regexp.MustCompile(`(?i)^Bot was allowed`),
	regexp.MustCompile(`(?i)^Web view data`),

	// Общие служебные уведомления
	regexp.MustCompile(`(?i)^Service notification`),
	regexp.MustCompile(`(?i)^System message`),
}

// IsServiceMessage распознаёт служебное сообщение по декодированному тексту.
func IsServiceMessage(text string) bool {
	for _, pattern := range serviceMessagePatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}
