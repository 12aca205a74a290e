package repository // repository holds data access logic for domain entities

import (
	"context"      // context is used to manage deadlines and cancellation
	"database/sql" // sql provides DB primitives
	"errors"       // errors is used to match driver sentinels

	"github.com/iliyamo/campus-hall-booking/internal/model"
)

// HallFilter narrows List.  Block filters by administrative zone; when
// IncludeBlocked is false, halls with blockStatus set are skipped.
type HallFilter struct {
	Block          string
	IncludeBlocked bool
}

// HallRepo provides methods to create, update and retrieve halls.
type HallRepo struct {
	db *sql.DB // db is the underlying database connection
}

// NewHallRepo constructs a HallRepo with the given DB handle.
func NewHallRepo(db *sql.DB) *HallRepo {
	return &HallRepo{db: db}
}

const hallCols = `name, block, capacity, location, description, laptop_charging, projector_available,
	projector_count, image, block_status, created_at, updated_at`

func scanHall(s rowScanner) (*model.Hall, error) {
	var (
		h    model.Hall
		desc sql.NullString
	)
	err := s.Scan(&h.Name, &h.Block, &h.Capacity, &h.Location, &desc, &h.LaptopCharging, &h.ProjectorAvailable,
		&h.ProjectorCount, &h.Image, &h.BlockStatus, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	h.Description = desc.String
	return &h, nil
}

// Create inserts a new hall.  The name is the natural key, so a second
// hall with the same name yields ErrHallExists.  The row is read back so
// timestamps reflect the database values.
func (r *HallRepo) Create(ctx context.Context, h *model.Hall) error {
	const qInsert = `INSERT INTO halls (name, block, capacity, location, description, laptop_charging,
	                     projector_available, projector_count, image, block_status)
	                 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, qInsert, h.Name, h.Block, h.Capacity, h.Location, nullStr(h.Description),
		h.LaptopCharging, h.ProjectorAvailable, h.ProjectorCount, h.Image, h.BlockStatus)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrHallExists
		}
		return err
	}
	stored, err := r.Get(ctx, h.Name)
	if err != nil {
		return err
	}
	*h = *stored
	return nil
}

// Get retrieves a hall by name.  It returns ErrHallNotFound when no row matches.
func (r *HallRepo) Get(ctx context.Context, name string) (*model.Hall, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+hallCols+` FROM halls WHERE name = ?`, name)
	h, err := scanHall(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHallNotFound
		}
		return nil, err
	}
	return h, nil
}

// List returns halls ordered by block and name.
func (r *HallRepo) List(ctx context.Context, f HallFilter) ([]model.Hall, error) {
	q := `SELECT ` + hallCols + ` FROM halls WHERE 1 = 1`
	var args []any
	if f.Block != "" {
		q += ` AND block = ?`
		args = append(args, f.Block)
	}
	if !f.IncludeBlocked {
		q += ` AND block_status = 0`
	}
	q += ` ORDER BY block, name`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Hall
	for rows.Next() {
		h, err := scanHall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update overwrites the descriptive fields of a hall.  The name and the
// block status are changed through their own operations.
func (r *HallRepo) Update(ctx context.Context, h *model.Hall) error {
	const q = `UPDATE halls
               SET block = ?, capacity = ?, location = ?, description = ?, laptop_charging = ?,
                   projector_available = ?, projector_count = ?, image = ?, updated_at = CURRENT_TIMESTAMP
               WHERE name = ?`
	res, err := r.db.ExecContext(ctx, q, h.Block, h.Capacity, h.Location, nullStr(h.Description),
		h.LaptopCharging, h.ProjectorAvailable, h.ProjectorCount, h.Image, h.Name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 when nothing changed; tell that apart from a missing row.
		if _, err := r.Get(ctx, h.Name); err != nil {
			return err
		}
	}
	return nil
}

// SetBlockStatus enables or disables a hall for new bookings.
func (r *HallRepo) SetBlockStatus(ctx context.Context, name string, blocked bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE halls SET block_status = ?, updated_at = CURRENT_TIMESTAMP WHERE name = ?`, blocked, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.Get(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a hall unless a live booking (pending, confirmed or
// admin-blocked) still references it.  The count locks the bookings of
// the hall so no booking for it can be inserted before the delete.
func (r *HallRepo) Delete(ctx context.Context, name string) error {
	return runTx(ctx, r.db, func(tx *sql.Tx) error {
		var n int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM bookings WHERE hall_name = ? AND state IN (?, ?, ?) FOR UPDATE`,
			name, model.StatePending, model.StateConfirmed, model.StateCancelledByAdmin).Scan(&n)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrHallInUse
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM halls WHERE name = ?`, name)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrHallNotFound
		}
		return nil
	})
}
