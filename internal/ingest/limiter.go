package ingest

import "sync"

// StudentLimiter не даёт двум пересчётам одного ученика идти одновременно в этом процессе.
// Запись ученика живёт, пока её кто-то держит или ждёт.
type StudentLimiter struct {
	mu   sync.Mutex
	byID map[string]*studentLock
}

type studentLock struct {
	mu   sync.Mutex
	refs int
}

func NewStudentLimiter() *StudentLimiter {
	return &StudentLimiter{byID: make(map[string]*studentLock)}
}

func (l *StudentLimiter) lock(studentID string) func() {
	l.mu.Lock()
	sl, ok := l.byID[studentID]
	if !ok {
		sl = &studentLock{}
		l.byID[studentID] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()
		l.mu.Lock()
		if sl.refs--; sl.refs == 0 {
			delete(l.byID, studentID)
		}
		l.mu.Unlock()
	}
}

// size — число учеников, по которым сейчас есть записи.
func (l *StudentLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byID)
}
