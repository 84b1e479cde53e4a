package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/tdapps/td-backend/internal/model"
)

// AcaraRepo persists event records.
type AcaraRepo struct{ DB *sql.DB }

func NewAcaraRepo(db *sql.DB) *AcaraRepo { return &AcaraRepo{DB: db} }

const acaraCols = "id,user_id,tanggal_acara,id_pdu,nama_acara,tipe_acara,kendala,bukti_dukung,keterangan_kendala,created_at,updated_at"

func scanAcara(scan func(dest ...any) error) (model.Acara, error) {
	var (
		a          model.Acara
		bukti      sql.NullString
		keterangan sql.NullString
	)
	err := scan(&a.ID, &a.UserID, &a.TanggalAcara, &a.IDPDU, &a.NamaAcara, &a.TipeAcara,
		&a.Kendala, &bukti, &keterangan, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return model.Acara{}, err
	}
	if bukti.Valid {
		a.BuktiDukung = &bukti.String
	}
	if keterangan.Valid {
		a.KeteranganKendala = &keterangan.String
	}
	return a, nil
}

// Create inserts an acara and fills in its ID.
func (r *AcaraRepo) Create(ctx context.Context, a *model.Acara) error {
	return r.create(ctx, r.DB.ExecContext, a)
}

// CreateTx is Create inside an existing transaction.
func (r *AcaraRepo) CreateTx(ctx context.Context, tx *sql.Tx, a *model.Acara) error {
	return r.create(ctx, tx.ExecContext, a)
}

func (r *AcaraRepo) create(ctx context.Context, exec execFunc, a *model.Acara) error {
	now := time.Now()
	if a.TanggalAcara.IsZero() {
		a.TanggalAcara = now
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	res, err := exec(ctx,
		"INSERT INTO acara (user_id, tanggal_acara, id_pdu, nama_acara, tipe_acara, kendala, bukti_dukung, keterangan_kendala, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?,?,?)",
		a.UserID, a.TanggalAcara, a.IDPDU, a.NamaAcara, a.TipeAcara, a.Kendala,
		nullable(a.BuktiDukung), nullable(a.KeteranganKendala), a.CreatedAt, a.UpdatedAt)
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

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// GetByIDAndOwner fetches an acara only when it belongs to ownerID; a row
// owned by someone else surfaces as sql.ErrNoRows.
func (r *AcaraRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (model.Acara, error) {
	return scanAcara(r.DB.QueryRowContext(ctx,
		"SELECT "+acaraCols+" FROM acara WHERE id=? AND user_id=? LIMIT 1", id, ownerID).Scan)
}

// ListByOwner returns the owner's events, newest first.
func (r *AcaraRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Acara, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+acaraCols+" FROM acara WHERE user_id=? ORDER BY created_at DESC", ownerID)
	if err != nil {
		return nil, err
	}
	return collectAcara(rows)
}

// ListAll returns every event across all users, newest first (admin only).
func (r *AcaraRepo) ListAll(ctx context.Context) ([]model.Acara, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+acaraCols+" FROM acara ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	return collectAcara(rows)
}

func collectAcara(rows *sql.Rows) ([]model.Acara, error) {
	defer rows.Close()
	var out []model.Acara
	for rows.Next() {
		a, err := scanAcara(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AcaraUpdate lists the optional fields of an update.  Nil fields keep
// their current value.  The nullable columns use sql.NullString so an
// update can distinguish "leave alone" (nil) from "write NULL"
// (Valid=false), which the obstacle-clear transition needs.
type AcaraUpdate struct {
	NamaAcara         *string
	TipeAcara         *string
	IDPDU             *uint64
	Kendala           *string
	BuktiDukung       *sql.NullString
	KeteranganKendala *sql.NullString
}

// Empty reports whether the update would change nothing.
func (u AcaraUpdate) Empty() bool {
	return u.NamaAcara == nil && u.TipeAcara == nil && u.IDPDU == nil &&
		u.Kendala == nil && u.BuktiDukung == nil && u.KeteranganKendala == nil
}

// Update applies a partial update scoped to the owner.
func (r *AcaraRepo) Update(ctx context.Context, id, ownerID uint64, upd AcaraUpdate) error {
	sets := make([]string, 0, 7)
	args := make([]any, 0, 9)
	if upd.NamaAcara != nil {
		sets = append(sets, "nama_acara=?")
		args = append(args, *upd.NamaAcara)
	}
	if upd.TipeAcara != nil {
		sets = append(sets, "tipe_acara=?")
		args = append(args, *upd.TipeAcara)
	}
	if upd.IDPDU != nil {
		sets = append(sets, "id_pdu=?")
		args = append(args, *upd.IDPDU)
	}
	if upd.Kendala != nil {
		sets = append(sets, "kendala=?")
		args = append(args, *upd.Kendala)
	}
	if upd.BuktiDukung != nil {
		sets = append(sets, "bukti_dukung=?")
		args = append(args, *upd.BuktiDukung)
	}
	if upd.KeteranganKendala != nil {
		sets = append(sets, "keterangan_kendala=?")
		args = append(args, *upd.KeteranganKendala)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at=NOW()")
	args = append(args, id, ownerID)
	_, err := r.DB.ExecContext(ctx,
		"UPDATE acara SET "+strings.Join(sets, ", ")+" WHERE id=? AND user_id=?", args...)
	return err
}

// Delete removes an owner's event.  Returns sql.ErrNoRows when nothing
// matched.
func (r *AcaraRepo) Delete(ctx context.Context, id, ownerID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM acara WHERE id=? AND user_id=?", id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// OwnsFile reports whether any of the owner's events references filename.
func (r *AcaraRepo) OwnsFile(ctx context.Context, ownerID uint64, filename string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM acara WHERE user_id=? AND bukti_dukung=?",
		ownerID, filename).Scan(&n)
	return n > 0, err
}
