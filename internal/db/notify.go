package db

// Subscribe returns a channel that receives a value after each
// committed change to the focus session set, and a function that
// cancels the subscription. Notifications coalesce: a slow reader
// sees at most one pending signal.
func (db *DB) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	db.subMu.Lock()
	id := db.next
	db.next++
	db.subs[id] = ch
	db.subMu.Unlock()

	cancel := func() {
		db.subMu.Lock()
		defer db.subMu.Unlock()
		if _, ok := db.subs[id]; ok {
			delete(db.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// notifySessionsChanged signals every subscriber without blocking.
func (db *DB) notifySessionsChanged() {
	db.subMu.Lock()
	defer db.subMu.Unlock()
	for _, ch := range db.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
