package feed

import (
	"strconv"

	"tg-preview-feed/internal/domain"
)

// NextCursor вычисляет курсор следующей страницы: минимальный числовой
// идентификатор поста на текущей. Нечисловые идентификаторы в расчёте
// не участвуют. nil означает, что истории дальше нет.
func NextCursor(posts []domain.Post) *string {
	var (
		minID int64
		found bool
	)
	for _, post := range posts {
		id, err := strconv.ParseInt(post.ID, 10, 64)
		if err != nil {
			continue
		}
		if !found || id < minID {
			minID = id
			found = true
		}
	}
	if !found {
		return nil
	}
	cursor := strconv.FormatInt(minID, 10)
	return &cursor
}

// HasMore сообщает, есть ли смысл запрашивать следующую страницу.
// Пустая страница по устаревшему курсору завершает пагинацию.
func HasMore(posts []domain.Post) bool {
	return len(posts) > 0
}
