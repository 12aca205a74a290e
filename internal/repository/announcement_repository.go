package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/campus-hall-booking/internal/model"
)

// AnnouncementRepo persists admin announcements.
type AnnouncementRepo struct{ DB *sql.DB }

func NewAnnouncementRepo(db *sql.DB) *AnnouncementRepo { return &AnnouncementRepo{DB: db} }

// Create inserts a and sets its ID.
func (r *AnnouncementRepo) Create(ctx context.Context, a *model.Announcement) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO announcements (title, message, validity_hours, created_by, created_at) VALUES (?,?,?,?,?)",
		a.Title, a.Message, a.Validity, a.CreatedBy, a.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// Get fetches one announcement by id.
func (r *AnnouncementRepo) Get(ctx context.Context, id uint64) (*model.Announcement, error) {
	var a model.Announcement
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,title,message,validity_hours,created_by,created_at FROM announcements WHERE id=?", id).
		Scan(&a.ID, &a.Title, &a.Message, &a.Validity, &a.CreatedBy, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAnnouncementNotFound
		}
		return nil, err
	}
	return &a, nil
}

// List returns all announcements, newest first.  Expired rows are kept;
// readers decide what to show.
func (r *AnnouncementRepo) List(ctx context.Context) ([]model.Announcement, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,title,message,validity_hours,created_by,created_at FROM announcements ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Announcement
	for rows.Next() {
		var a model.Announcement
		if err := rows.Scan(&a.ID, &a.Title, &a.Message, &a.Validity, &a.CreatedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Delete removes an announcement.
func (r *AnnouncementRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM announcements WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAnnouncementNotFound
	}
	return nil
}
