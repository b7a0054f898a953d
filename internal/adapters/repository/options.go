package repository

// StoreOption applies a configuration option to the HistoryStore.
type StoreOption func(*HistoryStore)

// WithCapacity bounds how many records are retained.
func WithCapacity(capacity int) StoreOption {
	return func(s *HistoryStore) {
		if capacity > 0 {
			s.capacity = capacity
		}
	}
}
