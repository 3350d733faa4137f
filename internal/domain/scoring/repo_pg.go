package scoring

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MatanKJaffe/CFSCalculator/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type resultRepoPG struct{ pool *pgxpool.Pool }

func NewResultRepoPG(pool *pgxpool.Pool) ResultRepository { return &resultRepoPG{pool: pool} }

func (r *resultRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const resultCols = `id, run_id, patient_num, score, description, rule_priority, rule_name, facts, created_at`

func (r *resultRepoPG) scanResult(row pgx.Row) (*Result, error) {
	var res Result
	err := row.Scan(&res.ID, &res.RunID, &res.PatientNum, &res.Score, &res.Description,
		&res.RulePriority, &res.RuleName, &res.Facts, &res.CreatedAt)
	return &res, err
}

func (r *resultRepoPG) Create(ctx context.Context, res *Result) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO cfs_result (id, run_id, patient_num, score, description, rule_priority, rule_name, facts)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		res.ID, res.RunID, res.PatientNum, res.Score, res.Description,
		res.RulePriority, res.RuleName, res.Facts)
	return err
}

func (r *resultRepoPG) CreateBatch(ctx context.Context, results []*Result) error {
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		for _, res := range results {
			if err := r.Create(ctx, res); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *resultRepoPG) GetLatestByPatient(ctx context.Context, patientNum string) (*Result, error) {
	return r.scanResult(r.conn(ctx).QueryRow(ctx,
		`SELECT `+resultCols+` FROM cfs_result WHERE patient_num = $1 ORDER BY created_at DESC LIMIT 1`,
		patientNum))
}

func (r *resultRepoPG) ListByPatient(ctx context.Context, patientNum string, limit, offset int) ([]*Result, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM cfs_result WHERE patient_num = $1`, patientNum).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+resultCols+` FROM cfs_result WHERE patient_num = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientNum, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Result
	for rows.Next() {
		res, err := r.scanResult(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, res)
	}
	return items, total, rows.Err()
}

func (r *resultRepoPG) List(ctx context.Context, limit, offset int) ([]*Result, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM cfs_result`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+resultCols+` FROM cfs_result ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Result
	for rows.Next() {
		res, err := r.scanResult(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, res)
	}
	return items, total, rows.Err()
}
