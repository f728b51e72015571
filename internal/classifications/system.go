package classifications

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/concord/internal/workflow"
	"github.com/JaimeStill/concord/pkg/pagination"
)

// System defines the public contract for classification runs.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Run], error)

	Find(ctx context.Context, id uuid.UUID) (*Run, error)
	Classify(ctx context.Context, req workflow.Request) (*Run, error)
}
