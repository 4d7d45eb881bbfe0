package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"packshop/internal/repository"
	"packshop/internal/services"
)

const testPackID = "6f1c2d3e-4a5b-4c6d-8e9f-0a1b2c3d4e5f"

var packCols = []string{"id", "name", "description", "price", "category", "images", "features", "created_at", "updated_at"}

func newPackHandler(t *testing.T, images services.ImageStore) (*PackHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	repo := repository.NewPackRepository(sqlx.NewDb(db, "postgres"))
	return NewPackHandler(repo, images, zap.NewNop(), true), mock
}

func packRow(id string, images string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(packCols).
		AddRow(id, "Mariage Deluxe", "Decoration complete pour mariage", 49.9, "mariage", images, "{Arche,Ballons}", now, now)
}

func withID(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func jsonRequest(t *testing.T, method string, path string, payload any) *http.Request {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestListPacks(t *testing.T) {
	h, mock := newPackHandler(t, nil)

	mock.ExpectQuery(`SELECT (.+) FROM packs WHERE category = \$1 ORDER BY created_at DESC`).
		WithArgs("mariage").
		WillReturnRows(packRow(testPackID, "{https://img.test/a.jpg}"))

	w := httptest.NewRecorder()
	h.ListPacks(w, httptest.NewRequest(http.MethodGet, "/api/packs?category=mariage", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", w.Code, w.Body.String())
	}
	data, _ := decodeEnvelope(t, w)["data"].(map[string]any)
	if data["count"] != float64(1) {
		t.Fatalf("expected count 1 got %v", data)
	}
	packs, _ := data["packs"].([]any)
	first, _ := packs[0].(map[string]any)
	if imgs, _ := first["images"].([]any); len(imgs) != 1 || imgs[0] != "https://img.test/a.jpg" {
		t.Fatalf("unexpected images %v", first["images"])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListPacksEmpty(t *testing.T) {
	h, mock := newPackHandler(t, nil)

	mock.ExpectQuery(`SELECT (.+) FROM packs ORDER BY created_at DESC`).
		WillReturnRows(sqlmock.NewRows(packCols))

	w := httptest.NewRecorder()
	h.ListPacks(w, httptest.NewRequest(http.MethodGet, "/api/packs", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	data, _ := decodeEnvelope(t, w)["data"].(map[string]any)
	if packs, ok := data["packs"].([]any); !ok || len(packs) != 0 {
		t.Fatalf("expected an empty list got %v", data["packs"])
	}
}

func TestListPacksUnknownCategory(t *testing.T) {
	h, _ := newPackHandler(t, nil)

	w := httptest.NewRecorder()
	h.ListPacks(w, httptest.NewRequest(http.MethodGet, "/api/packs?category=noel", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestGetPack(t *testing.T) {
	h, mock := newPackHandler(t, nil)

	mock.ExpectQuery(`SELECT (.+) FROM packs WHERE id = \$1`).
		WithArgs(testPackID).
		WillReturnRows(packRow(testPackID, "{}"))
	mock.ExpectQuery(`SELECT (.+) FROM packs WHERE id = \$1`).
		WithArgs(testPackID).
		WillReturnRows(sqlmock.NewRows(packCols))

	w := httptest.NewRecorder()
	h.GetPack(w, withID(httptest.NewRequest(http.MethodGet, "/api/packs/"+testPackID, nil), testPackID))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.GetPack(w, withID(httptest.NewRequest(http.MethodGet, "/api/packs/"+testPackID, nil), testPackID))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d (%s)", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.GetPack(w, withID(httptest.NewRequest(http.MethodGet, "/api/packs/not-a-uuid", nil), "not-a-uuid"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a malformed id got %d", w.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreatePackSanitizesText(t *testing.T) {
	h, mock := newPackHandler(t, nil)

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO packs").
		WithArgs(sqlmock.AnyArg(), "Mariage Deluxe", "Decoration complete", 49.9, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	req := jsonRequest(t, http.MethodPost, "/api/packs", map[string]any{
		"name":        "<b>Mariage</b> Deluxe",
		"description": "<script>alert(1)</script>Decoration complete",
		"price":       49.9,
		"category":    "mariage",
		"images":      []string{"https://img.test/a.jpg"},
		"features":    []string{"Arche"},
	})
	w := httptest.NewRecorder()
	h.CreatePack(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", w.Code, w.Body.String())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreatePackValidation(t *testing.T) {
	h, _ := newPackHandler(t, nil)

	req := jsonRequest(t, http.MethodPost, "/api/packs", map[string]any{
		"name":        "Mariage Deluxe",
		"description": "Decoration complete",
		"price":       0,
		"category":    "noel",
		"images":      []string{"not a url"},
		"features":    []string{"Arche"},
	})
	w := httptest.NewRecorder()
	h.CreatePack(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
	details, _ := decodeEnvelope(t, w)["details"].(map[string]any)
	for _, field := range []string{"price", "category", "images[0]"} {
		if details[field] == nil {
			t.Fatalf("expected a detail for %s got %v", field, details)
		}
	}
}

func TestUpdatePack(t *testing.T) {
	h, mock := newPackHandler(t, nil)

	mock.ExpectQuery(`UPDATE packs SET price = \$2, updated_at = NOW\(\) WHERE id = \$1 RETURNING`).
		WithArgs(testPackID, 59.5).
		WillReturnRows(packRow(testPackID, "{}"))

	w := httptest.NewRecorder()
	h.UpdatePack(w, withID(jsonRequest(t, http.MethodPut, "/api/packs/"+testPackID, map[string]any{"price": 59.5}), testPackID))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.UpdatePack(w, withID(jsonRequest(t, http.MethodPut, "/api/packs/"+testPackID, map[string]any{}), testPackID))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an empty update got %d", w.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdatePackNotFound(t *testing.T) {
	h, mock := newPackHandler(t, nil)

	mock.ExpectQuery(`UPDATE packs SET`).
		WillReturnRows(sqlmock.NewRows(packCols))

	w := httptest.NewRecorder()
	h.UpdatePack(w, withID(jsonRequest(t, http.MethodPut, "/api/packs/"+testPackID, map[string]any{"name": "Anniversaire"}), testPackID))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d (%s)", w.Code, w.Body.String())
	}
}

func TestDeletePack(t *testing.T) {
	h, mock := newPackHandler(t, nil)

	mock.ExpectExec(`DELETE FROM packs WHERE id = \$1`).
		WithArgs(testPackID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM packs WHERE id = \$1`).
		WithArgs(testPackID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	w := httptest.NewRecorder()
	h.DeletePack(w, withID(httptest.NewRequest(http.MethodDelete, "/api/packs/"+testPackID, nil), testPackID))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.DeletePack(w, withID(httptest.NewRequest(http.MethodDelete, "/api/packs/"+testPackID, nil), testPackID))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func multipartImages(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for name, contentType := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="images"; filename="`+name+`"`)
		header.Set("Content-Type", contentType)
		part, err := mw.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		part.Write([]byte("fake image bytes"))
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return body, mw.FormDataContentType()
}

func uploadRequest(t *testing.T, files map[string]string) *http.Request {
	body, contentType := multipartImages(t, files)
	req := httptest.NewRequest(http.MethodPost, "/api/packs/"+testPackID+"/images", body)
	req.Header.Set("Content-Type", contentType)
	return withID(req, testPackID)
}

func TestUploadImages(t *testing.T) {
	store := &services.FakeImageStore{}
	h, mock := newPackHandler(t, store)

	mock.ExpectQuery(`SELECT (.+) FROM packs WHERE id = \$1`).
		WithArgs(testPackID).
		WillReturnRows(packRow(testPackID, "{https://img.test/a.jpg}"))
	mock.ExpectQuery(`UPDATE packs\s+SET images = images`).
		WithArgs(testPackID, sqlmock.AnyArg(), 10).
		WillReturnRows(packRow(testPackID, "{https://img.test/a.jpg,https://images.test/packs/"+testPackID+"/b.png}"))

	w := httptest.NewRecorder()
	h.UploadImages(w, uploadRequest(t, map[string]string{"b.png": "image/png"}))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", w.Code, w.Body.String())
	}
	if len(store.Uploaded) != 1 {
		t.Fatalf("expected one upload got %d", len(store.Uploaded))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUploadImagesRejectsNonImages(t *testing.T) {
	store := &services.FakeImageStore{}
	h, mock := newPackHandler(t, store)

	mock.ExpectQuery(`SELECT (.+) FROM packs WHERE id = \$1`).
		WithArgs(testPackID).
		WillReturnRows(packRow(testPackID, "{}"))

	w := httptest.NewRecorder()
	h.UploadImages(w, uploadRequest(t, map[string]string{"notes.txt": "text/plain"}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d (%s)", w.Code, w.Body.String())
	}
	if len(store.Uploaded) != 0 {
		t.Fatalf("nothing should have been uploaded")
	}
}

func TestUploadImagesFullPack(t *testing.T) {
	store := &services.FakeImageStore{}
	h, mock := newPackHandler(t, store)

	full := "{a,b,c,d,e,f,g,h,i,j}"
	mock.ExpectQuery(`SELECT (.+) FROM packs WHERE id = \$1`).
		WithArgs(testPackID).
		WillReturnRows(packRow(testPackID, full))

	w := httptest.NewRecorder()
	h.UploadImages(w, uploadRequest(t, map[string]string{"b.png": "image/png"}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d (%s)", w.Code, w.Body.String())
	}
	if decodeEnvelope(t, w)["error"] != "too_many_images" {
		t.Fatalf("expected too_many_images got %s", w.Body.String())
	}
}

func TestUploadImagesStoreFailure(t *testing.T) {
	store := &services.FakeImageStore{ReturnError: true}
	h, mock := newPackHandler(t, store)

	mock.ExpectQuery(`SELECT (.+) FROM packs WHERE id = \$1`).
		WithArgs(testPackID).
		WillReturnRows(packRow(testPackID, "{}"))

	w := httptest.NewRecorder()
	h.UploadImages(w, uploadRequest(t, map[string]string{"b.png": "image/png"}))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %d (%s)", w.Code, w.Body.String())
	}
}

func TestUploadImagesDisabled(t *testing.T) {
	h, _ := newPackHandler(t, nil)

	w := httptest.NewRecorder()
	h.UploadImages(w, uploadRequest(t, map[string]string{"b.png": "image/png"}))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", w.Code)
	}
}

func TestCreatePackKeepsPlainText(t *testing.T) {
	h, mock := newPackHandler(t, nil)

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO packs").
		WithArgs(sqlmock.AnyArg(), "Pack d'anniversaire & fête", `Ballons "XXL" & arche d'entrée`, 49.9, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	req := jsonRequest(t, http.MethodPost, "/api/packs", map[string]any{
		"name":        "Pack d'anniversaire & fête",
		"description": `Ballons "XXL" & arche d'entrée`,
		"price":       49.9,
		"category":    "anniversaire",
		"images":      []string{"https://img.test/a.jpg"},
		"features":    []string{"Arche"},
	})
	w := httptest.NewRecorder()
	h.CreatePack(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", w.Code, w.Body.String())
	}
	data, _ := decodeEnvelope(t, w)["data"].(map[string]any)
	if data["name"] != "Pack d'anniversaire & fête" {
		t.Fatalf("expected name unchanged got %v", data["name"])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreatePackValidatesCleanedText(t *testing.T) {
	tests := []struct {
		name        string
		description string
		features    []string
		field       string
	}{
		{"markup only description", "<script>alert('xxxxxxxxxxxxxxx')</script>", []string{"Arche"}, "description"},
		{"description too short once cleaned", "<b>Court</b><i></i><u></u>", []string{"Arche"}, "description"},
		{"markup only features", "Decoration complete", []string{"<i></i>", " "}, "features"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := newPackHandler(t, nil)

			req := jsonRequest(t, http.MethodPost, "/api/packs", map[string]any{
				"name":        "Mariage Deluxe",
				"description": tt.description,
				"price":       49.9,
				"category":    "mariage",
				"images":      []string{"https://img.test/a.jpg"},
				"features":    tt.features,
			})
			w := httptest.NewRecorder()
			h.CreatePack(w, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d (%s)", w.Code, w.Body.String())
			}
			details, _ := decodeEnvelope(t, w)["details"].(map[string]any)
			if details[tt.field] == nil {
				t.Fatalf("expected a detail for %s got %v", tt.field, details)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("no query expected: %v", err)
			}
		})
	}
}

func TestUpdatePackValidatesCleanedText(t *testing.T) {
	h, mock := newPackHandler(t, nil)

	w := httptest.NewRecorder()
	h.UpdatePack(w, withID(jsonRequest(t, http.MethodPut, "/api/packs/"+testPackID, map[string]any{"name": "<b></b><i></i>"}), testPackID))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d (%s)", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no query expected: %v", err)
	}
}

func TestUploadImagesDiscardedWhenPackFilledConcurrently(t *testing.T) {
	store := &services.FakeImageStore{}
	h, mock := newPackHandler(t, store)

	mock.ExpectQuery(`SELECT (.+) FROM packs WHERE id = \$1`).
		WithArgs(testPackID).
		WillReturnRows(packRow(testPackID, "{a,b,c,d,e,f,g,h,i}"))
	mock.ExpectQuery(`UPDATE packs\s+SET images = images`).
		WithArgs(testPackID, sqlmock.AnyArg(), 10).
		WillReturnRows(sqlmock.NewRows(packCols))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(testPackID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	w := httptest.NewRecorder()
	h.UploadImages(w, uploadRequest(t, map[string]string{"b.png": "image/png"}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d (%s)", w.Code, w.Body.String())
	}
	if len(store.Uploaded) != 1 || len(store.Deleted) != 1 || store.Deleted[0] != store.Uploaded[0] {
		t.Fatalf("expected the unattached upload to be deleted, uploaded=%v deleted=%v", store.Uploaded, store.Deleted)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUploadImagesPartialFailureDiscardsUploads(t *testing.T) {
	store := &services.FakeImageStore{FailAfter: 1}
	h, mock := newPackHandler(t, store)

	mock.ExpectQuery(`SELECT (.+) FROM packs WHERE id = \$1`).
		WithArgs(testPackID).
		WillReturnRows(packRow(testPackID, "{}"))

	w := httptest.NewRecorder()
	h.UploadImages(w, uploadRequest(t, map[string]string{"a.png": "image/png", "b.png": "image/png"}))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %d (%s)", w.Code, w.Body.String())
	}
	if len(store.Uploaded) != 1 || len(store.Deleted) != 1 {
		t.Fatalf("expected the first upload to be deleted, uploaded=%v deleted=%v", store.Uploaded, store.Deleted)
	}
}
