package ops

import (
	"database/sql"

	"github.com/hpungsan/flowdeck/internal/cache"
	"github.com/hpungsan/flowdeck/internal/errors"
	"github.com/hpungsan/flowdeck/internal/record"
)

// InspectInput contains parameters for the Inspect operation.
type InspectInput struct {
	ID string
}

// InspectOutput contains the result of the Inspect operation.
type InspectOutput struct {
	Record            record.Record `json:"record"`
	NormalizedContent string        `json:"normalizedContent"`
}

// Inspect retrieves one cached record by id with its normalized content.
func Inspect(db *sql.DB, input InspectInput) (*InspectOutput, error) {
	if input.ID == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	rec, err := cache.GetByID(db, input.ID)
	if err != nil {
		return nil, err
	}

	return &InspectOutput{
		Record:            *rec,
		NormalizedContent: record.NormalizeContent(rec.Content),
	}, nil
}
