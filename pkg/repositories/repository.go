package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
)

// Repository provides the database handle and logger shared by the catalog repositories
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new base repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// DB returns the database instance
func (r *Repository) DB() database.DB {
	return r.db
}

// UpsertResult is the row identity reported by an upsert
type UpsertResult struct {
	ID int64
	// Inserted is true when the row did not exist before the write
	Inserted bool
	// Unchanged is true when the stored row already held the written values
	Unchanged bool
}

type upsertStatement struct {
	table string
	// conflict lists the natural key columns
	conflict []string
	columns  []string
	values   []any
	// update lists the columns overwritten when the natural key already exists
	update []string
}

// upsert writes one row keyed by its natural key and reports its surrogate id.
// xmax is zero only for a freshly inserted tuple, which tells inserts from updates.
// A conflicting row whose update columns already match is left untouched, so
// RETURNING yields nothing and the id comes from a lookup inside the same transaction.
func (r *Repository) upsert(ctx context.Context, stmt upsertStatement) (UpsertResult, error) {
	var result UpsertResult

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return result, err
	}
	defer tx.Rollback(ctx)

	ib := database.NewInsertBuilder()
	ib.InsertInto(stmt.table).Cols(stmt.columns...).Values(stmt.values...)

	assignments := make([]string, 0, len(stmt.update)+1)
	ub := ib.OnConflict(stmt.conflict...)
	for _, col := range stmt.update {
		assignments = append(assignments, ub.Assign(col, database.Excluded(col)))
	}
	assignments = append(assignments, ub.Assign("updated_at", sqlbuilder.Raw("NOW()")))
	ub.Set(assignments...)
	ub.Where(changedCondition(stmt.table, stmt.update))
	ib.ReturningExpr("id", "(xmax = 0) AS inserted")

	query, args := ib.Build()
	err = tx.QueryRowxContext(ctx, query, args...).Scan(&result.ID, &result.Inserted)
	if errors.Is(err, sql.ErrNoRows) {
		result.ID, err = r.lookupID(ctx, tx, stmt)
		result.Unchanged = err == nil
	}
	if err != nil {
		return UpsertResult{}, fmt.Errorf("failed to upsert %s: %w", stmt.table, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return UpsertResult{}, err
	}
	return result, nil
}

// changedCondition is true when any update column differs from the proposed row
func changedCondition(table string, columns []string) string {
	if len(columns) == 0 {
		return "FALSE"
	}

	current := make([]string, len(columns))
	proposed := make([]string, len(columns))
	for i, col := range columns {
		current[i] = table + "." + col
		proposed[i] = "EXCLUDED." + col
	}
	return fmt.Sprintf("(%s) IS DISTINCT FROM (%s)", strings.Join(current, ", "), strings.Join(proposed, ", "))
}

func (r *Repository) lookupID(ctx context.Context, tx database.Tx, stmt upsertStatement) (int64, error) {
	values := make(map[string]any, len(stmt.columns))
	for i, col := range stmt.columns {
		values[col] = stmt.values[i]
	}

	sb := database.NewSelectBuilder()
	sb.Select("id").From(stmt.table)
	for _, col := range stmt.conflict {
		sb.Where(sb.Equal(col, values[col]))
	}

	var id int64
	query, args := sb.Build()
	if err := tx.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
