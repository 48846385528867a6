package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"anm/internal/domain"
)

// JSONCodec handles JSON import/export of fragments and models
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse imports a fragment from its JSON wire shape
func (c *JSONCodec) Parse(r io.Reader) (domain.Fragment, error) {
	var fragment domain.Fragment
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&fragment); err != nil {
		return domain.Fragment{}, fmt.Errorf("%w: failed to parse JSON: %w", ErrMalformedInput, err)
	}

	return domain.CreateFragment(fragment), nil
}

// Export exports a fragment to JSON
func (c *JSONCodec) Export(fragment domain.Fragment, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(fragment); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

// DecodeModel reads an external model from JSON
func (c *JSONCodec) DecodeModel(r io.Reader) (*Model, error) {
	m := NewModel(Metadata{})
	if err := json.NewDecoder(r).Decode(m); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON model: %w", ErrMalformedInput, err)
	}
	return m, nil
}

// EncodeModel writes an external model as JSON
func (c *JSONCodec) EncodeModel(m *Model, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(m); err != nil {
		return fmt.Errorf("failed to encode JSON model: %w", err)
	}

	return nil
}
