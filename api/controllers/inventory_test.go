package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/backoffice-api/internal/inventory"
	"github.com/angelmondragon/backoffice-api/pkg/db/models"
	pkgerrors "github.com/angelmondragon/backoffice-api/pkg/errors"
	"github.com/angelmondragon/backoffice-api/pkg/logger"
)

type recordingInventory struct {
	inventory.Service
	create    inventory.CreateInput
	files     int
	patch     inventory.UpdateInput
	patchFile inventory.FileSource
}

func (s *recordingInventory) Create(_ context.Context, input inventory.CreateInput, files []inventory.FileSource) (*models.InventoryItem, error) {
	s.create = input
	s.files = len(files)
	if len(files) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "No files uploaded")
	}
	return &models.InventoryItem{ID: uuid.New(), Name: input.Name}, nil
}

func (s *recordingInventory) Update(_ context.Context, id uuid.UUID, patch inventory.UpdateInput, file inventory.FileSource) (*models.InventoryItem, error) {
	s.patch = patch
	s.patchFile = file
	return &models.InventoryItem{ID: id}, nil
}

func (s *recordingInventory) Delete(context.Context, uuid.UUID) error {
	return nil
}

func multipartBody(t *testing.T, fields map[string]string, images int) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for range images {
		part, err := writer.CreateFormFile("images", "photo.png")
		if err != nil {
			t.Fatalf("create file: %v", err)
		}
		if _, err := part.Write([]byte("\x89PNG\r\n\x1a\n")); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return body, writer.FormDataContentType()
}

func withID(req *http.Request, id string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestInventoryCreateParsesMultipart(t *testing.T) {
	svc := &recordingInventory{}
	body, contentType := multipartBody(t, map[string]string{
		"name":     "Widget",
		"quantity": "5",
		"location": "A1",
		"price":    "10.50",
	}, 2)
	req := httptest.NewRequest(http.MethodPost, "/api/inventory", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	InventoryCreate(svc, 1<<20, logger.Nop()).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.files != 2 {
		t.Fatalf("expected 2 files, got %d", svc.files)
	}
	if svc.create.Quantity == nil || *svc.create.Quantity != 5 || svc.create.Price == nil || *svc.create.Price != 10.5 {
		t.Fatalf("unexpected input %+v", svc.create)
	}
}

func TestInventoryCreateRejectsBadNumbers(t *testing.T) {
	body, contentType := multipartBody(t, map[string]string{"name": "Widget", "quantity": "five"}, 1)
	req := httptest.NewRequest(http.MethodPost, "/api/inventory", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	InventoryCreate(&recordingInventory{}, 1<<20, logger.Nop()).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestInventoryUpdateKeepsExplicitZero(t *testing.T) {
	svc := &recordingInventory{}
	id := uuid.New()
	body, contentType := multipartBody(t, map[string]string{"quantity": "0"}, 0)
	req := withID(httptest.NewRequest(http.MethodPut, "/api/inventory/"+id.String(), body), id.String())
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	InventoryUpdate(svc, 1<<20, logger.Nop()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.patch.Quantity == nil || *svc.patch.Quantity != 0 {
		t.Fatalf("expected quantity 0 to be applied, got %v", svc.patch.Quantity)
	}
	if svc.patch.Name != nil || svc.patch.Price != nil {
		t.Fatalf("absent fields must stay nil: %+v", svc.patch)
	}
	if svc.patchFile != nil {
		t.Fatalf("no file was sent")
	}
}

func TestInventoryGetInvalidID(t *testing.T) {
	req := withID(httptest.NewRequest(http.MethodGet, "/api/inventory/abc", nil), "abc")
	rec := httptest.NewRecorder()
	InventoryGet(&recordingInventory{}, logger.Nop()).ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestInventoryDeleteRespondsItemRemoved(t *testing.T) {
	id := uuid.New().String()
	req := withID(httptest.NewRequest(http.MethodDelete, "/api/inventory/"+id, nil), id)
	rec := httptest.NewRecorder()
	InventoryDelete(&recordingInventory{}, logger.Nop()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["message"] != "Item removed" {
		t.Fatalf("unexpected message %q", body["message"])
	}
}
