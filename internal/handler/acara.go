package handler

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/tdapps/td-backend/internal/config"
	"github.com/tdapps/td-backend/internal/model"
	"github.com/tdapps/td-backend/internal/queue"
	"github.com/tdapps/td-backend/internal/repository"
	"github.com/tdapps/td-backend/internal/storage"
)

const (
	acaraNotFoundUpdate = "Acara not found or you dont have permission to update this acara"
	acaraNotFoundDelete = "Acara not found or you dont have permission to delete this acara"
)

// AcaraHandler serves the event-record endpoints.
type AcaraHandler struct {
	Cfg    config.Config
	PDUs   PDUStore
	Acaras AcaraStore
	Files  storage.Store
	Events queue.Publisher
	Log    *logrus.Entry
}

func NewAcaraHandler(cfg config.Config, pdus PDUStore, acaras AcaraStore, files storage.Store, events queue.Publisher, log *logrus.Entry) *AcaraHandler {
	return &AcaraHandler{Cfg: cfg, PDUs: pdus, Acaras: acaras, Files: files, Events: events, Log: log}
}

func (h *AcaraHandler) maxUploadBytes() int64 {
	return int64(h.Cfg.MaxUploadMB) << 20
}

// Create handles POST /acara (multipart).  The referenced PDU must belong
// to the caller, and when kendala is flagged both the evidence file and
// its description are mandatory.
func (h *AcaraHandler) Create(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "User not authenticated"})
	}
	username := callerUsername(c)

	namaAcara := strings.TrimSpace(c.FormValue("namaAcara"))
	if namaAcara == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Nama acara wajib diisi"})
	}
	tipeAcara := strings.TrimSpace(c.FormValue("tipeAcara"))
	if tipeAcara == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Tipe acara wajib diisi"})
	}
	rawIDPDU := strings.TrimSpace(c.FormValue("idPDU"))
	if rawIDPDU == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "idPDU wajib diisi"})
	}
	idPDU, err := strconv.ParseUint(rawIDPDU, 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "idPDU wajib diisi"})
	}

	ctx := c.Request().Context()
	if _, err := h.PDUs.GetByIDAndOwner(ctx, idPDU, uid); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{
				"message": "PDU dengan ID " + rawIDPDU + " tidak ditemukan atau bukan milik Anda",
			})
		}
		h.Log.WithError(err).Error("load pdu failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
	}

	kendala := parseKendala(c.FormValue("kendala"))
	keterangan := strings.TrimSpace(c.FormValue("keteranganKendala"))

	a := &model.Acara{
		UserID:    uid,
		IDPDU:     idPDU,
		NamaAcara: namaAcara,
		TipeAcara: tipeAcara,
		Kendala:   model.KendalaTidak,
	}
	if kendala {
		if !hasFormFile(c, "buktiDukung") {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bukti dukung wajib diupload ketika ada kendala"})
		}
		if keterangan == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Keterangan kendala wajib diisi ketika ada kendala"})
		}
		filename, err := saveUpload(c, h.Files, "buktiDukung", storage.CategoryDukung, username, h.maxUploadBytes())
		if err != nil {
			return h.uploadError(c, err)
		}
		a.Kendala = model.KendalaAda
		a.BuktiDukung = &filename
		a.KeteranganKendala = &keterangan
	}

	if err := h.Acaras.Create(ctx, a); err != nil {
		if a.BuktiDukung != nil {
			h.removeFile(*a.BuktiDukung)
		}
		h.Log.WithError(err).Error("create acara failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
	}

	h.publish(c, queue.NewRecordEvent("acara", queue.ActionCreated, a.ID, uid, username))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Acara berhasil dibuat",
		"data":    a,
	})
}

// List handles GET /acara: the caller's own events.  An empty result is a
// 404 with an empty data array, which existing clients rely on.
func (h *AcaraHandler) List(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "User not authenticated"})
	}
	items, err := h.Acaras.ListByOwner(c.Request().Context(), uid)
	if err != nil {
		h.Log.WithError(err).Error("list acara failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
	}
	if len(items) == 0 {
		name := callerName(c)
		return c.JSON(http.StatusNotFound, echo.Map{
			"message": "Tidak ada data acara untuk user " + name,
			"data":    []model.Acara{},
			"count":   0,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Data acara berhasil diambil",
		"data":    items,
		"count":   len(items),
	})
}

// ListAll handles GET /admin/acara (admin only).
func (h *AcaraHandler) ListAll(c echo.Context) error {
	items, err := h.Acaras.ListAll(c.Request().Context())
	if err != nil {
		h.Log.WithError(err).Error("list all acara failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
	}
	if items == nil {
		items = []model.Acara{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "All acara data retrieved successfully",
		"data":    items,
		"count":   len(items),
	})
}

// GetByID handles GET /acara/:id, owner scoped.
func (h *AcaraHandler) GetByID(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "User not authenticated"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid id"})
	}
	a, err := h.Acaras.GetByIDAndOwner(c.Request().Context(), id, uid)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Acara not found"})
		}
		h.Log.WithError(err).Error("get acara failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Acara retrieved successfully",
		"data":    a,
	})
}

// Update handles PUT /acara/:id.  Form fields that are absent keep their
// value; a field sent empty is rejected.  Toggling kendala drives the
// evidence columns: setting it requires file and description, clearing it
// nulls both and deletes the stored evidence file.
func (h *AcaraHandler) Update(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "User not authenticated"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid id"})
	}

	ctx := c.Request().Context()
	existing, err := h.Acaras.GetByIDAndOwner(ctx, id, uid)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"message": acaraNotFoundUpdate})
		}
		h.Log.WithError(err).Error("load acara failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
	}

	upd := repository.AcaraUpdate{}
	if raw, ok := formField(c, "namaAcara"); ok {
		nama := strings.TrimSpace(raw)
		if nama == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Nama acara cannot be empty"})
		}
		upd.NamaAcara = &nama
	}
	if raw, ok := formField(c, "tipeAcara"); ok {
		tipe := strings.TrimSpace(raw)
		if tipe == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Tipe acara cannot be empty"})
		}
		upd.TipeAcara = &tipe
	}
	if raw, ok := formField(c, "idPDU"); ok {
		newID, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid idPDU"})
		}
		if newID != existing.IDPDU {
			if _, err := h.PDUs.GetByIDAndOwner(ctx, newID, uid); err != nil {
				if err == sql.ErrNoRows {
					return c.JSON(http.StatusNotFound, echo.Map{"message": "PDU not found or you dont have permission to use this PDU"})
				}
				h.Log.WithError(err).Error("load pdu failed")
				return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
			}
		}
		upd.IDPDU = &newID
	}

	var savedEvidence string
	var clearedEvidence string
	if raw, ok := formField(c, "kendala"); ok {
		if parseKendala(raw) {
			hasNewFile := hasFormFile(c, "buktiDukung")
			if !hasNewFile && existing.BuktiDukung == nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bukti dukung required when there are kendala"})
			}
			keterangan := ""
			if kraw, kok := formField(c, "keteranganKendala"); kok {
				keterangan = strings.TrimSpace(kraw)
			} else if existing.KeteranganKendala != nil {
				keterangan = *existing.KeteranganKendala
			}
			if keterangan == "" {
				return c.JSON(http.StatusBadRequest, echo.Map{"message": "Keterangan kendala required when there are kendala"})
			}
			if hasNewFile {
				filename, err := saveUpload(c, h.Files, "buktiDukung", storage.CategoryDukung, callerUsername(c), h.maxUploadBytes())
				if err != nil {
					return h.uploadError(c, err)
				}
				savedEvidence = filename
				if existing.BuktiDukung != nil {
					clearedEvidence = *existing.BuktiDukung
				}
				upd.BuktiDukung = &sql.NullString{String: filename, Valid: true}
			}
			ada := model.KendalaAda
			upd.Kendala = &ada
			upd.KeteranganKendala = &sql.NullString{String: keterangan, Valid: true}
		} else {
			tidak := model.KendalaTidak
			upd.Kendala = &tidak
			upd.BuktiDukung = &sql.NullString{}
			upd.KeteranganKendala = &sql.NullString{}
			if existing.BuktiDukung != nil {
				clearedEvidence = *existing.BuktiDukung
			}
		}
	} else if existing.HasKendala() {
		// No kendala toggle, but the description or file may still change.
		if kraw, kok := formField(c, "keteranganKendala"); kok {
			keterangan := strings.TrimSpace(kraw)
			if keterangan == "" {
				return c.JSON(http.StatusBadRequest, echo.Map{"message": "Keterangan kendala required when there are kendala"})
			}
			upd.KeteranganKendala = &sql.NullString{String: keterangan, Valid: true}
		}
		if hasFormFile(c, "buktiDukung") {
			filename, err := saveUpload(c, h.Files, "buktiDukung", storage.CategoryDukung, callerUsername(c), h.maxUploadBytes())
			if err != nil {
				return h.uploadError(c, err)
			}
			savedEvidence = filename
			if existing.BuktiDukung != nil {
				clearedEvidence = *existing.BuktiDukung
			}
			upd.BuktiDukung = &sql.NullString{String: filename, Valid: true}
		}
	}

	if upd.Empty() {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "No data provided for update"})
	}

	if err := h.Acaras.Update(ctx, id, uid, upd); err != nil {
		if savedEvidence != "" {
			h.removeFile(savedEvidence)
		}
		h.Log.WithError(err).Error("update acara failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
	}
	if clearedEvidence != "" {
		h.removeFile(clearedEvidence)
	}

	updated, err := h.Acaras.GetByIDAndOwner(ctx, id, uid)
	if err != nil {
		h.Log.WithError(err).Error("reload acara failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
	}
	h.publish(c, queue.NewRecordEvent("acara", queue.ActionUpdated, id, uid, callerUsername(c)))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Acara updated successfully",
		"data":    updated,
	})
}

// Delete handles DELETE /acara/:id.  Evidence file removal is best-effort.
func (h *AcaraHandler) Delete(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "User not authenticated"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid id"})
	}

	ctx := c.Request().Context()
	existing, err := h.Acaras.GetByIDAndOwner(ctx, id, uid)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"message": acaraNotFoundDelete})
		}
		h.Log.WithError(err).Error("load acara failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
	}

	// Row first, then the evidence file, so a failed delete never leaves a
	// record referencing a missing blob.
	if err := h.Acaras.Delete(ctx, id, uid); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"message": acaraNotFoundDelete})
		}
		h.Log.WithError(err).Error("delete acara failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
	}
	if existing.BuktiDukung != nil {
		h.removeFile(*existing.BuktiDukung)
	}
	h.publish(c, queue.NewRecordEvent("acara", queue.ActionDeleted, id, uid, callerUsername(c)))
	return c.JSON(http.StatusOK, echo.Map{
		"message":   "Acara deleted successfully",
		"deletedId": id,
	})
}

func (h *AcaraHandler) uploadError(c echo.Context, err error) error {
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

func (h *AcaraHandler) removeFile(filename string) {
	if filename == "" {
		return
	}
	if err := h.Files.Remove(storage.CategoryDukung, filename); err != nil {
		h.Log.WithError(err).WithField("file", filename).Warn("remove upload failed")
	}
}

func (h *AcaraHandler) publish(c echo.Context, ev queue.RecordEvent) {
	if h.Events == nil {
		return
	}
	_ = h.Events.Publish(c.Request().Context(), ev)
}
