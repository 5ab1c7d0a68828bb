// Package classifier turns a free-text expense description into a
// spending category.
//
// The Gateway validates input and builds the feature string; the actual
// vectorizer, classifier and label decoder sit behind the Model interface
// so the concrete model is injected at startup and replaced in tests.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"spendsense/internal/core"
	"spendsense/internal/log"
)

// DefaultCurrencySymbol tags the amount inside the feature string.
const DefaultCurrencySymbol = "₹"

// ErrClassifierUnavailable is fatal at startup: nothing can be recorded
// without a model.
var ErrClassifierUnavailable = errors.New("classifier unavailable")

// Model maps a feature string to a decoded category label.
type Model interface {
	Predict(features string) (string, error)
}

// Gateway is the only entry point from user input to a Model.
type Gateway struct {
	model  Model
	symbol string
	logger *log.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithCurrencySymbol overrides the symbol prefixed to the amount.
func WithCurrencySymbol(symbol string) Option {
	return func(g *Gateway) {
		g.symbol = symbol
	}
}

// WithLogger sets the gateway logger.
func WithLogger(l *log.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l.WithComponent(log.ComponentClassifier)
		}
	}
}

// NewGateway wraps a loaded model. A nil model is ErrClassifierUnavailable.
func NewGateway(model Model, opts ...Option) (*Gateway, error) {
	if model == nil {
		return nil, fmt.Errorf("new gateway: %w", ErrClassifierUnavailable)
	}
	g := &Gateway{
		model:  model,
		symbol: DefaultCurrencySymbol,
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Classify validates (description, amount) and returns the predicted
// category. Invalid input yields a *core.ValidationError and the model is
// not consulted.
func (g *Gateway) Classify(ctx context.Context, description string, amount decimal.Decimal) (string, error) {
	if err := core.ValidateInput(description, amount); err != nil {
		return "", err
	}

	features := FeatureString(description, amount, g.symbol)
	category, err := g.model.Predict(features)
	if err != nil {
		return "", fmt.Errorf("predict category: %w", err)
	}

	g.logger.DebugContext(ctx, "Expense classified",
		log.FieldDescription, description,
		log.FieldAmount, amount.String(),
		log.FieldCategory, category,
		log.FieldOperation, log.OpClassify)
	return category, nil
}

// FeatureString joins the description and the currency-tagged amount.
// Whole amounts keep a trailing ".0" so the text matches the float
// rendering the model vocabulary was built from.
func FeatureString(description string, amount decimal.Decimal, symbol string) string {
	a := amount.String()
	if !strings.Contains(a, ".") {
		a += ".0"
	}
	return strings.TrimSpace(description) + " " + symbol + a
}

// Tokenize lower-cases the text and keeps runs of two or more letters,
// digits or underscores. Single characters and symbols are dropped.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
