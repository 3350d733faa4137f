package scoring

import (
	"context"
)

type ResultRepository interface {
	Create(ctx context.Context, r *Result) error
	CreateBatch(ctx context.Context, results []*Result) error
	GetLatestByPatient(ctx context.Context, patientNum string) (*Result, error)
	ListByPatient(ctx context.Context, patientNum string, limit, offset int) ([]*Result, int, error)
	List(ctx context.Context, limit, offset int) ([]*Result, int, error)
}
