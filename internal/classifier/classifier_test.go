package classifier

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jbrukh/bayesian"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"spendsense/internal/cache"
	"spendsense/internal/core"
)

type mockModel struct {
	mock.Mock
}

func (m *mockModel) Predict(features string) (string, error) {
	args := m.Called(features)
	return args.String(0), args.Error(1)
}

// trainedFixture builds a tiny two-class model. Only test fixtures are
// trained; the service always loads a serialized model.
func trainedFixture(t *testing.T) *bayesian.Classifier {
	t.Helper()
	cl := bayesian.NewClassifier("Food", "Transport")
	cl.Learn([]string{"pizza", "dinner", "restaurant", "groceries"}, "Food")
	cl.Learn([]string{"lunch", "burger", "cafe", "coffee"}, "Food")
	cl.Learn([]string{"uber", "taxi", "metro", "ticket"}, "Transport")
	cl.Learn([]string{"bus", "fuel", "petrol", "train"}, "Transport")
	return cl
}

func TestFeatureString(t *testing.T) {
	cases := []struct {
		desc   string
		amount string
		want   string
	}{
		{"Pizza night", "250", "Pizza night ₹250.0"},
		{"  Metro card ", "99.5", "Metro card ₹99.5"},
		{"Coffee", "3.25", "Coffee ₹3.25"},
	}
	for _, tc := range cases {
		got := FeatureString(tc.desc, core.MustAmount(tc.amount), DefaultCurrencySymbol)
		assert.Equal(t, tc.want, got)
	}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"uber", "to", "airport", "450"}, Tokenize("Uber to a airport ₹450.0"))
	assert.Empty(t, Tokenize("₹ a b"))
}

func TestGatewayRejectsInvalidInputWithoutCallingModel(t *testing.T) {
	m := &mockModel{}
	g, err := NewGateway(m)
	require.NoError(t, err)

	_, err = g.Classify(context.Background(), "", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, core.ErrEmptyDescription)

	_, err = g.Classify(context.Background(), "taxi", decimal.Zero)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	var verr *core.ValidationError
	assert.True(t, errors.As(err, &verr))
	m.AssertNotCalled(t, "Predict", mock.Anything)
}

func TestGatewayDelegatesFeatureString(t *testing.T) {
	m := &mockModel{}
	m.On("Predict", "Dinner $42.5").Return("Food", nil).Once()

	g, err := NewGateway(m, WithCurrencySymbol("$"))
	require.NoError(t, err)

	got, err := g.Classify(context.Background(), "Dinner", core.MustAmount("42.50"))
	require.NoError(t, err)
	assert.Equal(t, "Food", got)
	m.AssertExpectations(t)
}

func TestGatewayClassifiesLongDescription(t *testing.T) {
	desc := strings.Repeat("चाय ", 21)
	m := &mockModel{}
	m.On("Predict", mock.Anything).Return("Food", nil).Once()

	g, err := NewGateway(m)
	require.NoError(t, err)

	got, err := g.Classify(context.Background(), desc, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, "Food", got)
	m.AssertExpectations(t)
}

func TestGatewayWrapsModelError(t *testing.T) {
	m := &mockModel{}
	boom := errors.New("boom")
	m.On("Predict", mock.Anything).Return("", boom)

	g, err := NewGateway(m)
	require.NoError(t, err)
	_, err = g.Classify(context.Background(), "x1", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, boom)
}

func TestNewGatewayNilModel(t *testing.T) {
	_, err := NewGateway(nil)
	assert.ErrorIs(t, err, ErrClassifierUnavailable)
}

func TestBayesModelRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, trainedFixture(t).WriteTo(&buf))

	m, err := LoadBayesModel(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Food", "Transport"}, m.Categories())

	g, err := NewGateway(m)
	require.NoError(t, err)

	cat, err := g.Classify(context.Background(), "Uber taxi to metro", decimal.NewFromInt(300))
	require.NoError(t, err)
	assert.Equal(t, "Transport", cat)

	cat, err = g.Classify(context.Background(), "pizza dinner", core.MustAmount("12.5"))
	require.NoError(t, err)
	assert.Equal(t, "Food", cat)
}

func TestLoadBayesModelFailures(t *testing.T) {
	_, err := LoadBayesModel(strings.NewReader("not a gob"))
	assert.ErrorIs(t, err, ErrClassifierUnavailable)

	_, err = LoadBayesModelFile(filepath.Join(t.TempDir(), "missing.gob"))
	assert.ErrorIs(t, err, ErrClassifierUnavailable)

	_, err = NewBayesModel(nil)
	assert.ErrorIs(t, err, ErrClassifierUnavailable)
}

func TestCachingModel(t *testing.T) {
	m := &mockModel{}
	m.On("Predict", "bus ₹2.0").Return("Transport", nil).Once()
	m.On("Predict", "bad").Return("", errors.New("nope")).Twice()

	c := NewCachingModel(m, cache.NewLRUCache[string](8, time.Minute))
	for i := 0; i < 3; i++ {
		got, err := c.Predict("bus ₹2.0")
		require.NoError(t, err)
		assert.Equal(t, "Transport", got)
	}
	_, err := c.Predict("bad")
	assert.Error(t, err)
	_, err = c.Predict("bad")
	assert.Error(t, err)
	m.AssertExpectations(t)
}
