package handler

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/tdapps/td-backend/internal/config"
	"github.com/tdapps/td-backend/internal/middleware"
	"github.com/tdapps/td-backend/internal/model"
	"github.com/tdapps/td-backend/internal/repository"
	"github.com/tdapps/td-backend/internal/storage"
	"github.com/tdapps/td-backend/internal/utils"
)

// In-memory store stubs so handler behavior can be exercised without a
// database.  They implement the same merged not-found semantics as the real
// repositories: a record owned by someone else is sql.ErrNoRows.

func testConfig() config.Config {
	return config.Config{
		Env:            "test",
		JWTSecret:      "test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 1,
		BcryptCost:     4,
		MaxUploadMB:    10,
	}
}

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func nopTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

// ----- users -----

type stubUsers struct {
	nextID uint64
	users  map[uint64]model.User
}

func newStubUsers() *stubUsers {
	return &stubUsers{nextID: 1, users: map[uint64]model.User{}}
}

func (s *stubUsers) add(u model.User) model.User {
	if u.ID == 0 {
		u.ID = s.nextID
	}
	if u.ID >= s.nextID {
		s.nextID = u.ID + 1
	}
	s.users[u.ID] = u
	return u
}

func (s *stubUsers) Create(_ context.Context, name, username, password, role string, cost int) (uint64, error) {
	for _, u := range s.users {
		if u.Username == username {
			return 0, repository.ErrUsernameExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	u := s.add(model.User{Name: name, Username: username, PasswordHash: hash, Role: role})
	return u.ID, nil
}

func (s *stubUsers) GetByUsername(_ context.Context, username string) (model.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (s *stubUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *stubUsers) List(context.Context) ([]model.User, error) {
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *stubUsers) Update(_ context.Context, id uint64, upd repository.UserUpdate) error {
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	s.users[id] = u
	return nil
}

func (s *stubUsers) Delete(_ context.Context, id uint64) error {
	if _, ok := s.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.users, id)
	return nil
}

// ----- sessions -----

type stubSessions struct {
	sessions       map[string]model.RefreshSession // keyed by token hash
	revokeAllCalls []uint64
}

func newStubSessions() *stubSessions {
	return &stubSessions{sessions: map[string]model.RefreshSession{}}
}

func (s *stubSessions) Create(_ context.Context, sess model.RefreshSession) error {
	s.sessions[sess.TokenHash] = sess
	return nil
}

func (s *stubSessions) GetByHash(_ context.Context, tokenHash string) (model.RefreshSession, error) {
	sess, ok := s.sessions[tokenHash]
	if !ok {
		return model.RefreshSession{}, sql.ErrNoRows
	}
	return sess, nil
}

func (s *stubSessions) Revoke(_ context.Context, sessionID string) error {
	for hash, sess := range s.sessions {
		if sess.ID == sessionID && sess.RevokedAt == nil {
			now := time.Now()
			sess.RevokedAt = &now
			s.sessions[hash] = sess
			return nil
		}
	}
	return nil
}

func (s *stubSessions) RevokeAllForUser(_ context.Context, userID uint64) error {
	s.revokeAllCalls = append(s.revokeAllCalls, userID)
	now := time.Now()
	for hash, sess := range s.sessions {
		if sess.UserID == userID && sess.RevokedAt == nil {
			sess.RevokedAt = &now
			s.sessions[hash] = sess
		}
	}
	return nil
}

func (s *stubSessions) active(userID uint64) int {
	n := 0
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.RevokedAt == nil {
			n++
		}
	}
	return n
}

// ----- pdu -----

type stubPDUs struct {
	nextID uint64
	pdus   map[uint64]model.PDU
	// error injection for failure-path tests
	updateErr error
	deleteErr error
}

func newStubPDUs() *stubPDUs {
	return &stubPDUs{nextID: 1, pdus: map[uint64]model.PDU{}}
}

func (s *stubPDUs) add(p model.PDU) model.PDU {
	if p.ID == 0 {
		p.ID = s.nextID
	}
	if p.ID >= s.nextID {
		s.nextID = p.ID + 1
	}
	s.pdus[p.ID] = p
	return p
}

func (s *stubPDUs) Create(_ context.Context, p *model.PDU) error {
	now := time.Now()
	if p.Tanggal.IsZero() {
		p.Tanggal = now
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	*p = s.add(*p)
	return nil
}

func (s *stubPDUs) CreateTx(ctx context.Context, _ *sql.Tx, p *model.PDU) error {
	return s.Create(ctx, p)
}

func (s *stubPDUs) GetByIDAndOwner(_ context.Context, id, ownerID uint64) (model.PDU, error) {
	p, ok := s.pdus[id]
	if !ok || p.UserID != ownerID {
		return model.PDU{}, sql.ErrNoRows
	}
	return p, nil
}

func (s *stubPDUs) ListByOwnerBetween(_ context.Context, ownerID uint64, start, end time.Time) ([]model.PDU, error) {
	var out []model.PDU
	for _, p := range s.pdus {
		if p.UserID == ownerID && !p.Tanggal.Before(start) && !p.Tanggal.After(end) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubPDUs) ListAll(context.Context) ([]model.PDU, error) {
	var out []model.PDU
	for _, p := range s.pdus {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubPDUs) Update(_ context.Context, id, ownerID uint64, upd repository.PDUUpdate) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	p, ok := s.pdus[id]
	if !ok || p.UserID != ownerID {
		return sql.ErrNoRows
	}
	if upd.NamePDU != nil {
		p.NamePDU = *upd.NamePDU
	}
	if upd.BuktiSurat != nil {
		p.BuktiSurat = *upd.BuktiSurat
	}
	if upd.BuktiRondown != nil {
		p.BuktiRondown = *upd.BuktiRondown
	}
	p.UpdatedAt = time.Now()
	s.pdus[id] = p
	return nil
}

func (s *stubPDUs) Delete(_ context.Context, id, ownerID uint64) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	p, ok := s.pdus[id]
	if !ok || p.UserID != ownerID {
		return sql.ErrNoRows
	}
	delete(s.pdus, id)
	return nil
}

func (s *stubPDUs) OwnsFile(_ context.Context, ownerID uint64, filename string) (bool, error) {
	for _, p := range s.pdus {
		if p.UserID == ownerID && (p.BuktiSurat == filename || p.BuktiRondown == filename) {
			return true, nil
		}
	}
	return false, nil
}

// ----- acara -----

type stubAcaras struct {
	nextID    uint64
	acaras    map[uint64]model.Acara
	deleteErr error
}

func newStubAcaras() *stubAcaras {
	return &stubAcaras{nextID: 1, acaras: map[uint64]model.Acara{}}
}

func (s *stubAcaras) add(a model.Acara) model.Acara {
	if a.ID == 0 {
		a.ID = s.nextID
	}
	if a.ID >= s.nextID {
		s.nextID = a.ID + 1
	}
	s.acaras[a.ID] = a
	return a
}

func (s *stubAcaras) Create(_ context.Context, a *model.Acara) error {
	now := time.Now()
	if a.TanggalAcara.IsZero() {
		a.TanggalAcara = now
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	*a = s.add(*a)
	return nil
}

func (s *stubAcaras) CreateTx(ctx context.Context, _ *sql.Tx, a *model.Acara) error {
	return s.Create(ctx, a)
}

func (s *stubAcaras) GetByIDAndOwner(_ context.Context, id, ownerID uint64) (model.Acara, error) {
	a, ok := s.acaras[id]
	if !ok || a.UserID != ownerID {
		return model.Acara{}, sql.ErrNoRows
	}
	return a, nil
}

func (s *stubAcaras) ListByOwner(_ context.Context, ownerID uint64) ([]model.Acara, error) {
	var out []model.Acara
	for _, a := range s.acaras {
		if a.UserID == ownerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubAcaras) ListAll(context.Context) ([]model.Acara, error) {
	var out []model.Acara
	for _, a := range s.acaras {
		out = append(out, a)
	}
	return out, nil
}

func (s *stubAcaras) Update(_ context.Context, id, ownerID uint64, upd repository.AcaraUpdate) error {
	a, ok := s.acaras[id]
	if !ok || a.UserID != ownerID {
		return sql.ErrNoRows
	}
	if upd.NamaAcara != nil {
		a.NamaAcara = *upd.NamaAcara
	}
	if upd.TipeAcara != nil {
		a.TipeAcara = *upd.TipeAcara
	}
	if upd.IDPDU != nil {
		a.IDPDU = *upd.IDPDU
	}
	if upd.Kendala != nil {
		a.Kendala = *upd.Kendala
	}
	if upd.BuktiDukung != nil {
		if upd.BuktiDukung.Valid {
			v := upd.BuktiDukung.String
			a.BuktiDukung = &v
		} else {
			a.BuktiDukung = nil
		}
	}
	if upd.KeteranganKendala != nil {
		if upd.KeteranganKendala.Valid {
			v := upd.KeteranganKendala.String
			a.KeteranganKendala = &v
		} else {
			a.KeteranganKendala = nil
		}
	}
	a.UpdatedAt = time.Now()
	s.acaras[id] = a
	return nil
}

func (s *stubAcaras) Delete(_ context.Context, id, ownerID uint64) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	a, ok := s.acaras[id]
	if !ok || a.UserID != ownerID {
		return sql.ErrNoRows
	}
	delete(s.acaras, id)
	return nil
}

func (s *stubAcaras) OwnsFile(_ context.Context, ownerID uint64, filename string) (bool, error) {
	for _, a := range s.acaras {
		if a.UserID == ownerID && a.BuktiDukung != nil && *a.BuktiDukung == filename {
			return true, nil
		}
	}
	return false, nil
}

// ----- files -----

// stubFiles records saves and removals without touching the disk.
type stubFiles struct {
	n       int
	saved   []string
	removed []string
	failing bool
}

func (s *stubFiles) Save(cat storage.Category, username, originalName string, _ io.Reader) (string, error) {
	if s.failing {
		return "", fmt.Errorf("disk full")
	}
	s.n++
	name := fmt.Sprintf("%s_%s_%d%s", cat.Prefix, username, s.n, strings.ToLower(originalName[strings.LastIndex(originalName, "."):]))
	s.saved = append(s.saved, name)
	return name, nil
}

func (s *stubFiles) Remove(_ storage.Category, filename string) error {
	s.removed = append(s.removed, filename)
	return nil
}

func (s *stubFiles) Path(cat storage.Category, filename string) (string, error) {
	name, err := storage.CleanFilename(filename)
	if err != nil {
		return "", err
	}
	return "/tmp/" + cat.Dir + "/" + name, nil
}

// ----- request helpers -----

// multipartBody builds a multipart form from text fields and fake files.
func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for field, filename := range files {
		fw, err := w.CreateFormFile(field, filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte("file-content")); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

// newJSONContext builds an echo context around a JSON request body.
func newJSONContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// newFormContext builds an echo context around a multipart request body.
func newFormContext(method, target string, body *bytes.Buffer, contentType string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// asUser injects the identity claims JWTAuth would have set.
func asUser(c echo.Context, id uint64, name, username, role string) {
	c.Set(middleware.CtxUserID, id)
	c.Set(middleware.CtxName, name)
	c.Set(middleware.CtxUsername, username)
	c.Set(middleware.CtxRole, role)
}
