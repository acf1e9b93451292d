// limiter реализует Admission Controller: скользящее окно запросов на клиента.
//
// Особенности:
//   - устаревшие метки удаляются лениво при каждой проверке, фоновой уборки нет;
//   - отклонённая попытка не записывается в окно;
//   - окна неактивных клиентов не удаляются из карты (размер каждого окна
//     ограничен maxRequests).
package limiter

import (
	"sync"
	"time"
)

// Limiter — скользящее окно на ключ clientID.
// Мьютекс карты защищает только поиск/создание окна, мутация окна
// сериализуется собственным мьютексом окна.
type Limiter struct {
	mu          sync.RWMutex
	windows     map[string]*window
	maxRequests int
	windowSize  time.Duration
}

type window struct {
	mu       sync.Mutex
	requests []time.Time
}

// New создаёт лимитер: не более maxRequests за windowSize на клиента.
func New(maxRequests int, windowSize time.Duration) *Limiter {
	return &Limiter{
		windows:     make(map[string]*window),
		maxRequests: maxRequests,
		windowSize:  windowSize,
	}
}

// Allow принимает или отклоняет запрос clientID в момент now.
// В окне остаются метки из [now-windowSize, now].
func (l *Limiter) Allow(clientID string, now time.Time) bool {
	w := l.window(clientID)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.purge(now.Add(-l.windowSize))

	if len(w.requests) >= l.maxRequests {
		return false
	}

	w.requests = append(w.requests, now)

	return true
}

// RetryAfter — через сколько освободится место в окне clientID (0, если уже есть).
func (l *Limiter) RetryAfter(clientID string, now time.Time) time.Duration {
	l.mu.RLock()
	w, ok := l.windows[clientID]
	l.mu.RUnlock()

	if !ok {
		return 0
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.purge(now.Add(-l.windowSize))

	if len(w.requests) < l.maxRequests {
		return 0
	}

	// Место освободится, когда самая старая метка выйдет за окно.
	return w.requests[0].Add(l.windowSize).Sub(now) + time.Nanosecond
}

// Clients — число отслеживаемых окон.
func (l *Limiter) Clients() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.windows)
}

func (l *Limiter) window(clientID string) *window {
	l.mu.RLock()
	w, ok := l.windows[clientID]
	l.mu.RUnlock()

	if ok {
		return w
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if w, ok = l.windows[clientID]; !ok {
		w = &window{requests: make([]time.Time, 0, l.maxRequests)}
		l.windows[clientID] = w
	}

	return w
}

// purge удаляет метки строго раньше start. Метки упорядочены по возрастанию.
func (w *window) purge(start time.Time) {
	i := 0
	for i < len(w.requests) && w.requests[i].Before(start) {
		i++
	}

	if i > 0 {
		w.requests = append(w.requests[:0], w.requests[i:]...)
	}
}
