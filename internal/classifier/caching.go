package classifier

import (
	"spendsense/internal/cache"
)

// CachingModel memoizes predictions by feature string. Models are
// deterministic, so a hit is always the answer the model would give.
type CachingModel struct {
	next  Model
	cache cache.Cache[string]
}

var _ Model = (*CachingModel)(nil)

// NewCachingModel decorates next with c.
func NewCachingModel(next Model, c cache.Cache[string]) *CachingModel {
	return &CachingModel{next: next, cache: c}
}

// Predict implements Model. Errors are not cached.
func (m *CachingModel) Predict(features string) (string, error) {
	if category, ok := m.cache.Get(features); ok {
		return category, nil
	}
	category, err := m.next.Predict(features)
	if err != nil {
		return "", err
	}
	m.cache.Set(features, category)
	return category, nil
}
