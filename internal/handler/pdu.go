package handler

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/tdapps/td-backend/internal/config"
	"github.com/tdapps/td-backend/internal/model"
	"github.com/tdapps/td-backend/internal/queue"
	"github.com/tdapps/td-backend/internal/repository"
	"github.com/tdapps/td-backend/internal/storage"
	"github.com/tdapps/td-backend/internal/utils"
)

// Ownership violations and missing records share one 404 message so a
// caller cannot probe which record ids exist.
const (
	pduNotFoundUpdate = "PDU not found or you dont have permission to update this PDU"
	pduNotFoundDelete = "PDU not found or you dont have permission to delete this PDU"
	pduLockedMsg      = "Cannot update PDU. You can only update on the same day it was created."
)

// PDUHandler serves the daily operational-order endpoints.
type PDUHandler struct {
	Cfg    config.Config
	PDUs   PDUStore
	Acaras AcaraStore
	Files  storage.Store
	Events queue.Publisher
	Log    *logrus.Entry
	Tx     txFunc
}

func NewPDUHandler(cfg config.Config, pdus PDUStore, acaras AcaraStore, files storage.Store, events queue.Publisher, log *logrus.Entry, tx txFunc) *PDUHandler {
	return &PDUHandler{Cfg: cfg, PDUs: pdus, Acaras: acaras, Files: files, Events: events, Log: log, Tx: tx}
}

func (h *PDUHandler) maxUploadBytes() int64 {
	return int64(h.Cfg.MaxUploadMB) << 20
}

// Create handles POST /pdu (multipart: namePDU + two required files).
func (h *PDUHandler) Create(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "User not authenticated"})
	}
	username := callerUsername(c)

	namePDU := strings.TrimSpace(c.FormValue("namePDU"))
	if namePDU == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "namePDU is required"})
	}
	if !hasFormFile(c, "buktiSuratPerintahOperasional") || !hasFormFile(c, "buktiRondownAcaraHarian") {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Both bukti surat and bukti rundown are required"})
	}

	surat, err := saveUpload(c, h.Files, "buktiSuratPerintahOperasional", storage.CategorySurat, username, h.maxUploadBytes())
	if err != nil {
		return h.uploadError(c, err)
	}
	rondown, err := saveUpload(c, h.Files, "buktiRondownAcaraHarian", storage.CategoryRondown, username, h.maxUploadBytes())
	if err != nil {
		h.removeFile(storage.CategorySurat, surat)
		return h.uploadError(c, err)
	}

	p := &model.PDU{
		UserID:       uid,
		NamePDU:      namePDU,
		BuktiSurat:   surat,
		BuktiRondown: rondown,
	}
	if err := h.PDUs.Create(c.Request().Context(), p); err != nil {
		h.removeFile(storage.CategorySurat, surat)
		h.removeFile(storage.CategoryRondown, rondown)
		h.Log.WithError(err).Error("create pdu failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
	}

	h.publish(c, queue.NewRecordEvent("pdu", queue.ActionCreated, p.ID, uid, username))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "PDU created successfully",
		"data":    p,
	})
}

// List handles GET /pdu: the caller's own records, restricted to the
// current calendar month, newest first.
func (h *PDUHandler) List(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "User not authenticated"})
	}

	now := time.Now()
	start, end := utils.MonthBounds(now)
	items, err := h.PDUs.ListByOwnerBetween(c.Request().Context(), uid, start, end)
	if err != nil {
		h.Log.WithError(err).Error("list pdu failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
	}
	if items == nil {
		items = []model.PDU{}
	}
	monthName := utils.MonthName(now.Month())
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Data PDU untuk " + monthName + " " + strconv.Itoa(now.Year()),
		"data":    items,
		"count":   len(items),
		"filter": echo.Map{
			"month":     int(now.Month()),
			"year":      now.Year(),
			"monthName": monthName,
			"startDate": start.Format(time.RFC3339),
			"endDate":   end.Format(time.RFC3339),
		},
	})
}

// ListAll handles GET /pduadmin and GET /pdustaff: every record across all
// users.  The role gates differ per route; the payload does not.
func (h *PDUHandler) ListAll(c echo.Context) error {
	items, err := h.PDUs.ListAll(c.Request().Context())
	if err != nil {
		h.Log.WithError(err).Error("list all pdu failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
	}
	if items == nil {
		items = []model.PDU{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "All PDU data retrieved successfully",
		"data":    items,
		"count":   len(items),
	})
}

// Update handles PUT /pdu/:id.  Only the owner may update, and only on the
// calendar day the record was created; after that the record is locked.
func (h *PDUHandler) Update(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "User not authenticated"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid id"})
	}

	ctx := c.Request().Context()
	existing, err := h.PDUs.GetByIDAndOwner(ctx, id, uid)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"message": pduNotFoundUpdate})
		}
		h.Log.WithError(err).Error("load pdu failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
	}
	if !utils.SameCalendarDay(existing.CreatedAt, time.Now()) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": pduLockedMsg})
	}

	upd := repository.PDUUpdate{}
	if name := strings.TrimSpace(c.FormValue("namePDU")); name != "" {
		upd.NamePDU = &name
	}
	if hasFormFile(c, "buktiSuratPerintahOperasional") {
		surat, err := saveUpload(c, h.Files, "buktiSuratPerintahOperasional", storage.CategorySurat, callerUsername(c), h.maxUploadBytes())
		if err != nil {
			return h.uploadError(c, err)
		}
		upd.BuktiSurat = &surat
	}
	if hasFormFile(c, "buktiRondownAcaraHarian") {
		rondown, err := saveUpload(c, h.Files, "buktiRondownAcaraHarian", storage.CategoryRondown, callerUsername(c), h.maxUploadBytes())
		if err != nil {
			if upd.BuktiSurat != nil {
				h.removeFile(storage.CategorySurat, *upd.BuktiSurat)
			}
			return h.uploadError(c, err)
		}
		upd.BuktiRondown = &rondown
	}
	if upd.Empty() {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "No data provided for update"})
	}

	if err := h.PDUs.Update(ctx, id, uid, upd); err != nil {
		// The record still points at the old files; drop the replacements.
		if upd.BuktiSurat != nil {
			h.removeFile(storage.CategorySurat, *upd.BuktiSurat)
		}
		if upd.BuktiRondown != nil {
			h.removeFile(storage.CategoryRondown, *upd.BuktiRondown)
		}
		h.Log.WithError(err).Error("update pdu failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
	}
	// Replaced files are superseded on the record; unlink the old blobs.
	if upd.BuktiSurat != nil {
		h.removeFile(storage.CategorySurat, existing.BuktiSurat)
	}
	if upd.BuktiRondown != nil {
		h.removeFile(storage.CategoryRondown, existing.BuktiRondown)
	}

	updated, err := h.PDUs.GetByIDAndOwner(ctx, id, uid)
	if err != nil {
		h.Log.WithError(err).Error("reload pdu failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
	}
	h.publish(c, queue.NewRecordEvent("pdu", queue.ActionUpdated, id, uid, callerUsername(c)))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "PDU updated successfully",
		"data":    updated,
	})
}

// Delete handles DELETE /pdu/:id.  Owner only; evidence files are removed
// best-effort and never block the database delete.
func (h *PDUHandler) Delete(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "User not authenticated"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid id"})
	}

	ctx := c.Request().Context()
	existing, err := h.PDUs.GetByIDAndOwner(ctx, id, uid)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"message": pduNotFoundDelete})
		}
		h.Log.WithError(err).Error("load pdu failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
	}

	// Row first, files second: a failed delete must not leave a record
	// pointing at blobs that are already gone.
	if err := h.PDUs.Delete(ctx, id, uid); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"message": pduNotFoundDelete})
		}
		h.Log.WithError(err).Error("delete pdu failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
	}
	h.removeFile(storage.CategorySurat, existing.BuktiSurat)
	h.removeFile(storage.CategoryRondown, existing.BuktiRondown)
	h.publish(c, queue.NewRecordEvent("pdu", queue.ActionDeleted, id, uid, callerUsername(c)))
	return c.JSON(http.StatusOK, echo.Map{
		"message":   "PDU deleted successfully",
		"deletedId": id,
	})
}

// CreateFull handles POST /pdu/full: a PDU and its first acara created
// atomically from one multipart form.  All validation runs before any file
// is written; if the transaction fails the saved files are removed so no
// orphan blobs remain.
func (h *PDUHandler) CreateFull(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "User not authenticated"})
	}
	username := callerUsername(c)

	namePDU := strings.TrimSpace(c.FormValue("namePDU"))
	if namePDU == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "namePDU is required"})
	}
	if !hasFormFile(c, "buktiSuratPerintahOperasional") || !hasFormFile(c, "buktiRondownAcaraHarian") {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Both bukti surat and bukti rundown are required"})
	}
	namaAcara := strings.TrimSpace(c.FormValue("namaAcara"))
	if namaAcara == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Nama acara wajib diisi"})
	}
	tipeAcara := strings.TrimSpace(c.FormValue("tipeAcara"))
	if tipeAcara == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Tipe acara wajib diisi"})
	}
	kendala := parseKendala(c.FormValue("kendala"))
	keterangan := strings.TrimSpace(c.FormValue("keteranganKendala"))
	if kendala {
		if !hasFormFile(c, "buktiDukung") {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bukti dukung wajib diupload ketika ada kendala"})
		}
		if keterangan == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Keterangan kendala wajib diisi ketika ada kendala"})
		}
	}

	var saved []struct {
		cat  storage.Category
		name string
	}
	cleanup := func() {
		for _, f := range saved {
			h.removeFile(f.cat, f.name)
		}
	}
	save := func(field string, cat storage.Category) (string, error) {
		name, err := saveUpload(c, h.Files, field, cat, username, h.maxUploadBytes())
		if err != nil {
			return "", err
		}
		saved = append(saved, struct {
			cat  storage.Category
			name string
		}{cat, name})
		return name, nil
	}

	surat, err := save("buktiSuratPerintahOperasional", storage.CategorySurat)
	if err != nil {
		return h.uploadError(c, err)
	}
	rondown, err := save("buktiRondownAcaraHarian", storage.CategoryRondown)
	if err != nil {
		cleanup()
		return h.uploadError(c, err)
	}
	var dukung string
	if kendala {
		dukung, err = save("buktiDukung", storage.CategoryDukung)
		if err != nil {
			cleanup()
			return h.uploadError(c, err)
		}
	}

	p := &model.PDU{
		UserID:       uid,
		NamePDU:      namePDU,
		BuktiSurat:   surat,
		BuktiRondown: rondown,
	}
	a := &model.Acara{
		UserID:    uid,
		NamaAcara: namaAcara,
		TipeAcara: tipeAcara,
		Kendala:   model.KendalaTidak,
	}
	if kendala {
		a.Kendala = model.KendalaAda
		a.BuktiDukung = &dukung
		a.KeteranganKendala = &keterangan
	}

	err = h.Tx(c.Request().Context(), func(tx *sql.Tx) error {
		if err := h.PDUs.CreateTx(c.Request().Context(), tx, p); err != nil {
			return err
		}
		a.IDPDU = p.ID
		return h.Acaras.CreateTx(c.Request().Context(), tx, a)
	})
	if err != nil {
		cleanup()
		h.Log.WithError(err).Error("create pdu with acara failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
	}

	h.publish(c, queue.NewRecordEvent("pdu", queue.ActionCreated, p.ID, uid, username))
	h.publish(c, queue.NewRecordEvent("acara", queue.ActionCreated, a.ID, uid, username))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "PDU and acara created successfully",
		"data": echo.Map{
			"pdu":   p,
			"acara": a,
		},
	})
}

// uploadError maps a saveUpload failure to the right response.
func (h *PDUHandler) uploadError(c echo.Context, err error) error {
	switch err {
	case errNoFile:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "File is required"})
	case errFileType:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "File type not allowed"})
	case errFileTooLarge:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "File too large"})
	}
	h.Log.WithError(err).Error("store upload failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
}

// removeFile unlinks a stored file best-effort.
func (h *PDUHandler) removeFile(cat storage.Category, filename string) {
	if filename == "" {
		return
	}
	if err := h.Files.Remove(cat, filename); err != nil {
		h.Log.WithError(err).WithField("file", filename).Warn("remove upload failed")
	}
}

// publish sends an audit event best-effort.
func (h *PDUHandler) publish(c echo.Context, ev queue.RecordEvent) {
	if h.Events == nil {
		return
	}
	_ = h.Events.Publish(c.Request().Context(), ev)
}
