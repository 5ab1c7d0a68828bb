package classifier

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jbrukh/bayesian"
)

// BayesModel is a pre-trained naive Bayes classifier decoded from a gob
// blob. Class order in the blob is the label decoder.
type BayesModel struct {
	cl *bayesian.Classifier
}

var _ Model = (*BayesModel)(nil)

// NewBayesModel wraps an in-memory classifier.
func NewBayesModel(cl *bayesian.Classifier) (*BayesModel, error) {
	if cl == nil || len(cl.Classes) < 2 {
		return nil, fmt.Errorf("bayes model needs at least two classes: %w", ErrClassifierUnavailable)
	}
	return &BayesModel{cl: cl}, nil
}

// LoadBayesModel decodes a serialized classifier.
func LoadBayesModel(r io.Reader) (*BayesModel, error) {
	cl, err := bayesian.NewClassifierFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("decode bayes model: %w: %w", ErrClassifierUnavailable, err)
	}
	return NewBayesModel(cl)
}

// LoadBayesModelFile decodes a serialized classifier from disk.
func LoadBayesModelFile(path string) (*BayesModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model file: %w: %w", ErrClassifierUnavailable, err)
	}
	defer f.Close()
	return LoadBayesModel(f)
}

// Predict implements Model.
func (m *BayesModel) Predict(features string) (string, error) {
	tokens := Tokenize(features)
	if len(tokens) == 0 {
		return "", errors.New("no usable tokens in features")
	}
	_, inx, _ := m.cl.LogScores(tokens)
	if inx < 0 || inx >= len(m.cl.Classes) {
		return "", fmt.Errorf("class index %d out of range", inx)
	}
	return string(m.cl.Classes[inx]), nil
}

// Categories lists the labels the model can emit, in decoder order.
func (m *BayesModel) Categories() []string {
	out := make([]string, len(m.cl.Classes))
	for i, c := range m.cl.Classes {
		out[i] = string(c)
	}
	return out
}
