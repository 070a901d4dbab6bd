package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "reqtrack"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanRequestEvents — жизненный цикл заявок: created, status_changed, deleted.
	RedisChanRequestEvents = RedisNamespace + ":requests:events"
)
