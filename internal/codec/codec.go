package codec

import (
	"fmt"
	"io"

	"anm/internal/domain"
)

// Importer reads graph fragments in some format
type Importer interface {
	Parse(r io.Reader) (domain.Fragment, error)
	Format() string
}

// Exporter writes graph fragments in some format
type Exporter interface {
	Export(fragment domain.Fragment, w io.Writer) error
	Format() string
}

// ModelCodec reads and writes the external model in some format
type ModelCodec interface {
	DecodeModel(r io.Reader) (*Model, error)
	EncodeModel(m *Model, w io.Writer) error
	Format() string
}

// Codec handles both fragments and models in one format
type Codec interface {
	Importer
	Exporter
	ModelCodec
}

// ForFormat returns the codec for "json" or "yaml" ("" means json)
func ForFormat(format string) (Codec, error) {
	switch format {
	case "", "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}
