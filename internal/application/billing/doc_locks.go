package billing

import "sync"

// docLocks impide que dos operaciones del ciclo de vida avancen a la vez sobre el mismo
// documento dentro del proceso. No espera: el segundo llamador recibe ErrDocumentBusy.
type docLocks struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func newDocLocks() *docLocks {
	return &docLocks{busy: make(map[string]struct{})}
}

func (l *docLocks) tryLock(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.busy[id]; ok {
		return false
	}
	l.busy[id] = struct{}{}
	return true
}

func (l *docLocks) unlock(id string) {
	l.mu.Lock()
	delete(l.busy, id)
	l.mu.Unlock()
}
