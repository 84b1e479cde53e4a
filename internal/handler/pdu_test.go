package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdapps/td-backend/internal/model"
	"github.com/tdapps/td-backend/internal/queue"
	"github.com/tdapps/td-backend/internal/utils"
)

func newPDUHandler(pdus *stubPDUs, acaras *stubAcaras, files *stubFiles) *PDUHandler {
	return NewPDUHandler(testConfig(), pdus, acaras, files, queue.NopPublisher{}, testLog(), nopTx)
}

var pduFiles = map[string]string{
	"buktiSuratPerintahOperasional": "surat.pdf",
	"buktiRondownAcaraHarian":       "rundown.pdf",
}

func TestPDUCreate(t *testing.T) {
	pdus := newStubPDUs()
	files := &stubFiles{}
	h := newPDUHandler(pdus, newStubAcaras(), files)

	body, ct := multipartBody(t, map[string]string{"namePDU": "PDU Siaran Pagi"}, pduFiles)
	c, rec := newFormContext(http.MethodPost, "/pdu", body, ct)
	asUser(c, 1, "Budi", "budi", model.RoleUser)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "PDU created successfully")
	require.Len(t, files.saved, 2)
	assert.Contains(t, files.saved[0], "surat_budi_")
	assert.Contains(t, files.saved[1], "rondown_budi_")

	p, err := pdus.GetByIDAndOwner(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "PDU Siaran Pagi", p.NamePDU)
}

func TestPDUCreateMissingName(t *testing.T) {
	h := newPDUHandler(newStubPDUs(), newStubAcaras(), &stubFiles{})

	body, ct := multipartBody(t, nil, pduFiles)
	c, rec := newFormContext(http.MethodPost, "/pdu", body, ct)
	asUser(c, 1, "Budi", "budi", model.RoleUser)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "namePDU is required")
}

func TestPDUCreateMissingFile(t *testing.T) {
	files := &stubFiles{}
	h := newPDUHandler(newStubPDUs(), newStubAcaras(), files)

	body, ct := multipartBody(t, map[string]string{"namePDU": "x"},
		map[string]string{"buktiSuratPerintahOperasional": "surat.pdf"})
	c, rec := newFormContext(http.MethodPost, "/pdu", body, ct)
	asUser(c, 1, "Budi", "budi", model.RoleUser)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Both bukti surat and bukti rundown are required")
	assert.Empty(t, files.saved)
}

func TestPDUCreateBadExtension(t *testing.T) {
	h := newPDUHandler(newStubPDUs(), newStubAcaras(), &stubFiles{})

	body, ct := multipartBody(t, map[string]string{"namePDU": "x"}, map[string]string{
		"buktiSuratPerintahOperasional": "script.exe",
		"buktiRondownAcaraHarian":       "rundown.pdf",
	})
	c, rec := newFormContext(http.MethodPost, "/pdu", body, ct)
	asUser(c, 1, "Budi", "budi", model.RoleUser)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "File type not allowed")
}

func TestPDUListCurrentMonth(t *testing.T) {
	pdus := newStubPDUs()
	now := time.Now()
	pdus.add(model.PDU{UserID: 1, NamePDU: "this month", Tanggal: now, CreatedAt: now})
	pdus.add(model.PDU{UserID: 1, NamePDU: "last month", Tanggal: now.AddDate(0, 0, -now.Day())})
	pdus.add(model.PDU{UserID: 2, NamePDU: "someone else", Tanggal: now})
	h := newPDUHandler(pdus, newStubAcaras(), &stubFiles{})

	c, rec := newJSONContext(http.MethodGet, "/pdu", "")
	asUser(c, 1, "Budi", "budi", model.RoleUser)
	require.NoError(t, h.List(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Data PDU untuk "+utils.MonthName(now.Month())+" "+fmt.Sprint(now.Year()))
	assert.Contains(t, body, "this month")
	assert.NotContains(t, body, "last month")
	assert.NotContains(t, body, "someone else")
	assert.Contains(t, body, `"count":1`)
	assert.Contains(t, body, `"monthName"`)
}

func TestPDUListEmptyIsArray(t *testing.T) {
	h := newPDUHandler(newStubPDUs(), newStubAcaras(), &stubFiles{})

	c, rec := newJSONContext(http.MethodGet, "/pdu", "")
	asUser(c, 1, "Budi", "budi", model.RoleUser)
	require.NoError(t, h.List(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestPDUListAll(t *testing.T) {
	pdus := newStubPDUs()
	pdus.add(model.PDU{UserID: 1, NamePDU: "a", Tanggal: time.Now()})
	pdus.add(model.PDU{UserID: 2, NamePDU: "b", Tanggal: time.Now()})
	h := newPDUHandler(pdus, newStubAcaras(), &stubFiles{})

	c, rec := newJSONContext(http.MethodGet, "/pduadmin", "")
	asUser(c, 3, "Admin", "admin", model.RoleAdmin)
	require.NoError(t, h.ListAll(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "All PDU data retrieved successfully")
	assert.Contains(t, rec.Body.String(), `"count":2`)
}

func TestPDUUpdateSameDay(t *testing.T) {
	pdus := newStubPDUs()
	pdus.add(model.PDU{UserID: 1, NamePDU: "old", CreatedAt: time.Now(), Tanggal: time.Now()})
	h := newPDUHandler(pdus, newStubAcaras(), &stubFiles{})

	body, ct := multipartBody(t, map[string]string{"namePDU": "new"}, nil)
	c, rec := newFormContext(http.MethodPut, "/pdu/1", body, ct)
	c.SetParamNames("id")
	c.SetParamValues("1")
	asUser(c, 1, "Budi", "budi", model.RoleUser)
	require.NoError(t, h.Update(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "PDU updated successfully")

	p, _ := pdus.GetByIDAndOwner(context.Background(), 1, 1)
	assert.Equal(t, "new", p.NamePDU)
}

func TestPDUUpdateNextDayLocked(t *testing.T) {
	pdus := newStubPDUs()
	pdus.add(model.PDU{UserID: 1, NamePDU: "old", CreatedAt: time.Now().AddDate(0, 0, -1)})
	h := newPDUHandler(pdus, newStubAcaras(), &stubFiles{})

	body, ct := multipartBody(t, map[string]string{"namePDU": "new"}, nil)
	c, rec := newFormContext(http.MethodPut, "/pdu/1", body, ct)
	c.SetParamNames("id")
	c.SetParamValues("1")
	asUser(c, 1, "Budi", "budi", model.RoleUser)
	require.NoError(t, h.Update(c))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "You can only update on the same day it was created")
}

func TestPDUUpdateNotOwner(t *testing.T) {
	pdus := newStubPDUs()
	pdus.add(model.PDU{UserID: 2, NamePDU: "theirs", CreatedAt: time.Now()})
	h := newPDUHandler(pdus, newStubAcaras(), &stubFiles{})

	body, ct := multipartBody(t, map[string]string{"namePDU": "new"}, nil)
	c, rec := newFormContext(http.MethodPut, "/pdu/1", body, ct)
	c.SetParamNames("id")
	c.SetParamValues("1")
	asUser(c, 1, "Budi", "budi", model.RoleUser)
	require.NoError(t, h.Update(c))

	// Ownership failures look exactly like missing records.
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "PDU not found or you dont have permission to update this PDU")
}

func TestPDUUpdateNothingProvided(t *testing.T) {
	pdus := newStubPDUs()
	pdus.add(model.PDU{UserID: 1, NamePDU: "old", CreatedAt: time.Now()})
	h := newPDUHandler(pdus, newStubAcaras(), &stubFiles{})

	body, ct := multipartBody(t, nil, nil)
	c, rec := newFormContext(http.MethodPut, "/pdu/1", body, ct)
	c.SetParamNames("id")
	c.SetParamValues("1")
	asUser(c, 1, "Budi", "budi", model.RoleUser)
	require.NoError(t, h.Update(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No data provided for update")
}

func TestPDUUpdateReplacedFileIsRemoved(t *testing.T) {
	pdus := newStubPDUs()
	pdus.add(model.PDU{UserID: 1, NamePDU: "old", BuktiSurat: "surat_budi_old.pdf", CreatedAt: time.Now()})
	files := &stubFiles{}
	h := newPDUHandler(pdus, newStubAcaras(), files)

	body, ct := multipartBody(t, nil, map[string]string{"buktiSuratPerintahOperasional": "baru.pdf"})
	c, rec := newFormContext(http.MethodPut, "/pdu/1", body, ct)
	c.SetParamNames("id")
	c.SetParamValues("1")
	asUser(c, 1, "Budi", "budi", model.RoleUser)
	require.NoError(t, h.Update(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, files.removed, "surat_budi_old.pdf")
}

func TestPDUUpdateFailureDropsReplacementFile(t *testing.T) {
	pdus := newStubPDUs()
	pdus.add(model.PDU{UserID: 1, NamePDU: "old", BuktiSurat: "surat_budi_old.pdf", CreatedAt: time.Now()})
	pdus.updateErr = errors.New("connection lost")
	files := &stubFiles{}
	h := newPDUHandler(pdus, newStubAcaras(), files)

	body, ct := multipartBody(t, nil, map[string]string{"buktiSuratPerintahOperasional": "baru.pdf"})
	c, rec := newFormContext(http.MethodPut, "/pdu/1", body, ct)
	c.SetParamNames("id")
	c.SetParamValues("1")
	asUser(c, 1, "Budi", "budi", model.RoleUser)
	require.NoError(t, h.Update(c))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	// The record still references the old file, so the new blob goes and
	// the old one stays.
	require.Len(t, files.saved, 1)
	assert.Contains(t, files.removed, files.saved[0])
	assert.NotContains(t, files.removed, "surat_budi_old.pdf")
}

func TestPDUDelete(t *testing.T) {
	pdus := newStubPDUs()
	pdus.add(model.PDU{UserID: 1, BuktiSurat: "s.pdf", BuktiRondown: "r.pdf", CreatedAt: time.Now()})
	files := &stubFiles{}
	h := newPDUHandler(pdus, newStubAcaras(), files)

	c, rec := newJSONContext(http.MethodDelete, "/pdu/1", "")
	c.SetParamNames("id")
	c.SetParamValues("1")
	asUser(c, 1, "Budi", "budi", model.RoleUser)
	require.NoError(t, h.Delete(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "PDU deleted successfully")
	assert.ElementsMatch(t, []string{"s.pdf", "r.pdf"}, files.removed)

	_, err := pdus.GetByIDAndOwner(context.Background(), 1, 1)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestPDUDeleteFailureKeepsFiles(t *testing.T) {
	pdus := newStubPDUs()
	pdus.add(model.PDU{UserID: 1, BuktiSurat: "s.pdf", BuktiRondown: "r.pdf", CreatedAt: time.Now()})
	pdus.deleteErr = errors.New("connection lost")
	files := &stubFiles{}
	h := newPDUHandler(pdus, newStubAcaras(), files)

	c, rec := newJSONContext(http.MethodDelete, "/pdu/1", "")
	c.SetParamNames("id")
	c.SetParamValues("1")
	asUser(c, 1, "Budi", "budi", model.RoleUser)
	require.NoError(t, h.Delete(c))

	// The row survived, so its files must too.
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, files.removed)
}

func TestPDUDeleteNotOwner(t *testing.T) {
	pdus := newStubPDUs()
	pdus.add(model.PDU{UserID: 2, CreatedAt: time.Now()})
	h := newPDUHandler(pdus, newStubAcaras(), &stubFiles{})

	c, rec := newJSONContext(http.MethodDelete, "/pdu/1", "")
	c.SetParamNames("id")
	c.SetParamValues("1")
	asUser(c, 1, "Budi", "budi", model.RoleUser)
	require.NoError(t, h.Delete(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "PDU not found or you dont have permission to delete this PDU")
}

func TestPDUCreateFull(t *testing.T) {
	pdus := newStubPDUs()
	acaras := newStubAcaras()
	files := &stubFiles{}
	h := newPDUHandler(pdus, acaras, files)

	fields := map[string]string{
		"namePDU":           "PDU Siaran Pagi",
		"namaAcara":         "Upacara Bendera",
		"tipeAcara":         "live",
		"kendala":           "true",
		"keteranganKendala": "hujan deras",
	}
	uploads := map[string]string{
		"buktiSuratPerintahOperasional": "surat.pdf",
		"buktiRondownAcaraHarian":       "rundown.pdf",
		"buktiDukung":                   "foto.jpg",
	}
	body, ct := multipartBody(t, fields, uploads)
	c, rec := newFormContext(http.MethodPost, "/pdu/full", body, ct)
	asUser(c, 1, "Budi", "budi", model.RoleUser)
	require.NoError(t, h.CreateFull(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "PDU and acara created successfully")
	assert.Len(t, files.saved, 3)

	p, err := pdus.GetByIDAndOwner(context.Background(), 1, 1)
	require.NoError(t, err)
	a, err := acaras.GetByIDAndOwner(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, p.ID, a.IDPDU)
	assert.Equal(t, model.KendalaAda, a.Kendala)
	require.NotNil(t, a.KeteranganKendala)
	assert.Equal(t, "hujan deras", *a.KeteranganKendala)
}

func TestPDUCreateFullKendalaNeedsEvidence(t *testing.T) {
	files := &stubFiles{}
	h := newPDUHandler(newStubPDUs(), newStubAcaras(), files)

	fields := map[string]string{
		"namePDU":   "x",
		"namaAcara": "y",
		"tipeAcara": "live",
		"kendala":   "true",
	}
	body, ct := multipartBody(t, fields, pduFiles)
	c, rec := newFormContext(http.MethodPost, "/pdu/full", body, ct)
	asUser(c, 1, "Budi", "budi", model.RoleUser)
	require.NoError(t, h.CreateFull(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Bukti dukung wajib diupload ketika ada kendala")
	// Validation runs before anything touches the store.
	assert.Empty(t, files.saved)
}

func TestPDUCreateFullRollbackCleansFiles(t *testing.T) {
	pdus := newStubPDUs()
	acaras := newStubAcaras()
	files := &stubFiles{}
	h := newPDUHandler(pdus, acaras, files)
	h.Tx = func(ctx context.Context, fn func(tx *sql.Tx) error) error {
		return errors.New("deadlock")
	}

	fields := map[string]string{
		"namePDU":   "x",
		"namaAcara": "y",
		"tipeAcara": "live",
	}
	body, ct := multipartBody(t, fields, pduFiles)
	c, rec := newFormContext(http.MethodPost, "/pdu/full", body, ct)
	asUser(c, 1, "Budi", "budi", model.RoleUser)
	require.NoError(t, h.CreateFull(c))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.ElementsMatch(t, files.saved, files.removed)
}
