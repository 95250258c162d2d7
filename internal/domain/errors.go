package domain

import "errors"

// ErrUpstreamUnavailable возвращается, когда страница канала недоступна.
var ErrUpstreamUnavailable = errors.New("страница канала недоступна")

// ErrCacheMiss возвращается кэшем при отсутствии ключа.
var ErrCacheMiss = errors.New("ключ не найден в кэше")

// ErrChannelRequired возвращается, если в запросе не указан канал.
var ErrChannelRequired = errors.New("не указан канал")
