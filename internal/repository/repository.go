package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrNotFound is returned when a requested model or file does not exist
var ErrNotFound = errors.New("not found")

// File roles of a saved model
const (
	RoleModelFile    = "model_file"
	RoleScenarioFile = "scenario_file"
)

// SavedModel is an entry of the model library
type SavedModel struct {
	ID        string    `json:"id" validate:"required"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ModelFile is a file stored for a model under a role
type ModelFile struct {
	ModelID   string    `json:"model_id" validate:"required"`
	Role      string    `json:"role" validate:"required,oneof=model_file scenario_file"`
	Format    string    `json:"format" validate:"required,oneof=json yaml"`
	Data      []byte    `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommandRecord is one entry of a model's command log. IDs holds the fresh
// ids the command drew, in order, so replay reproduces the same graph.
type CommandRecord struct {
	ModelID   string          `json:"model_id" validate:"required"`
	Seq       int             `json:"seq" validate:"gte=1"`
	Name      string          `json:"name" validate:"required"`
	Payload   json.RawMessage `json:"payload"`
	IDs       []string        `json:"ids,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Repository defines the interface for model library access
type Repository interface {
	// Model library
	ListModels(ctx context.Context) ([]SavedModel, error)
	GetModel(ctx context.Context, id string) (*SavedModel, error)
	UpsertModel(ctx context.Context, model *SavedModel) error
	DeleteModel(ctx context.Context, id string) error

	// Files by role
	PutFile(ctx context.Context, file *ModelFile) error
	GetFile(ctx context.Context, modelID, role string) (*ModelFile, error)

	// Command log
	AppendCommands(ctx context.Context, records []CommandRecord) error
	ListCommands(ctx context.Context, modelID string) ([]CommandRecord, error)
	ClearCommands(ctx context.Context, modelID string) error

	// Close releases resources
	Close() error
}

var validate = validator.New()

// Validate checks a record before it is stored
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid %T: %w", v, err)
	}
	return nil
}
