package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/tdapps/td-backend/internal/model"
)

// PDURepo persists daily operational-order records.
type PDURepo struct{ DB *sql.DB }

func NewPDURepo(db *sql.DB) *PDURepo { return &PDURepo{DB: db} }

const pduCols = "id,user_id,tanggal,name_pdu,bukti_surat,bukti_rondown,created_at,updated_at"

func scanPDU(scan func(dest ...any) error) (model.PDU, error) {
	var p model.PDU
	err := scan(&p.ID, &p.UserID, &p.Tanggal, &p.NamePDU, &p.BuktiSurat, &p.BuktiRondown, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Create inserts a PDU and fills in its ID.  Tanggal and CreatedAt are set
// by the caller so the same-day edit window can be checked without a
// round-trip.
func (r *PDURepo) Create(ctx context.Context, p *model.PDU) error {
	return r.create(ctx, r.DB.ExecContext, p)
}

// CreateTx is Create inside an existing transaction; used by the combined
// PDU+Acara creation flow.
func (r *PDURepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.PDU) error {
	return r.create(ctx, tx.ExecContext, p)
}

type execFunc func(ctx context.Context, query string, args ...any) (sql.Result, error)

func (r *PDURepo) create(ctx context.Context, exec execFunc, p *model.PDU) error {
	now := time.Now()
	if p.Tanggal.IsZero() {
		p.Tanggal = now
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	res, err := exec(ctx,
		"INSERT INTO pdu (user_id, tanggal, name_pdu, bukti_surat, bukti_rondown, created_at, updated_at) VALUES (?,?,?,?,?,?,?)",
		p.UserID, p.Tanggal, p.NamePDU, p.BuktiSurat, p.BuktiRondown, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByID fetches a PDU regardless of owner.
func (r *PDURepo) GetByID(ctx context.Context, id uint64) (model.PDU, error) {
	return scanPDU(r.DB.QueryRowContext(ctx,
		"SELECT "+pduCols+" FROM pdu WHERE id=? LIMIT 1", id).Scan)
}

// GetByIDAndOwner fetches a PDU only when it belongs to ownerID.  A row
// owned by someone else surfaces as sql.ErrNoRows, which handlers merge
// into the same 404 as a missing record.
func (r *PDURepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (model.PDU, error) {
	return scanPDU(r.DB.QueryRowContext(ctx,
		"SELECT "+pduCols+" FROM pdu WHERE id=? AND user_id=? LIMIT 1", id, ownerID).Scan)
}

// ListByOwnerBetween returns the owner's records whose tanggal falls in
// [start, end], newest first.  Used for the current-month listing.
func (r *PDURepo) ListByOwnerBetween(ctx context.Context, ownerID uint64, start, end time.Time) ([]model.PDU, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+pduCols+" FROM pdu WHERE user_id=? AND tanggal BETWEEN ? AND ? ORDER BY tanggal DESC",
		ownerID, start, end)
	if err != nil {
		return nil, err
	}
	return collectPDUs(rows)
}

// ListAll returns every record across all users, newest first.  Reserved
// for the admin and staff listings.
func (r *PDURepo) ListAll(ctx context.Context) ([]model.PDU, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+pduCols+" FROM pdu ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	return collectPDUs(rows)
}

func collectPDUs(rows *sql.Rows) ([]model.PDU, error) {
	defer rows.Close()
	var out []model.PDU
	for rows.Next() {
		p, err := scanPDU(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PDUUpdate lists the optional fields of an update.  Nil fields keep their
// current column value.
type PDUUpdate struct {
	NamePDU      *string
	BuktiSurat   *string
	BuktiRondown *string
}

// Empty reports whether the update would change nothing.
func (u PDUUpdate) Empty() bool {
	return u.NamePDU == nil && u.BuktiSurat == nil && u.BuktiRondown == nil
}

// Update applies a partial update scoped to the owner.  Returns
// sql.ErrNoRows when the record does not exist or is not owned by ownerID.
func (r *PDURepo) Update(ctx context.Context, id, ownerID uint64, upd PDUUpdate) error {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 6)
	if upd.NamePDU != nil {
		sets = append(sets, "name_pdu=?")
		args = append(args, *upd.NamePDU)
	}
	if upd.BuktiSurat != nil {
		sets = append(sets, "bukti_surat=?")
		args = append(args, *upd.BuktiSurat)
	}
	if upd.BuktiRondown != nil {
		sets = append(sets, "bukti_rondown=?")
		args = append(args, *upd.BuktiRondown)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at=NOW()")
	args = append(args, id, ownerID)
	_, err := r.DB.ExecContext(ctx,
		"UPDATE pdu SET "+strings.Join(sets, ", ")+" WHERE id=? AND user_id=?", args...)
	return err
}

// Delete removes an owner's record.  Returns sql.ErrNoRows when nothing
// matched (missing or not owned).
func (r *PDURepo) Delete(ctx context.Context, id, ownerID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM pdu WHERE id=? AND user_id=?", id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// OwnsFile reports whether any of the owner's records references filename.
// Backs the authenticated download proxy.
func (r *PDURepo) OwnsFile(ctx context.Context, ownerID uint64, filename string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pdu WHERE user_id=? AND (bukti_surat=? OR bukti_rondown=?)",
		ownerID, filename, filename).Scan(&n)
	return n > 0, err
}
