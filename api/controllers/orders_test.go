package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/backoffice-api/api/middleware"
	"github.com/angelmondragon/backoffice-api/internal/orders"
	"github.com/angelmondragon/backoffice-api/pkg/auth"
	"github.com/angelmondragon/backoffice-api/pkg/enums"
	"github.com/angelmondragon/backoffice-api/pkg/logger"
)

type recordingOrders struct {
	orders.Service
	status string
	caller auth.Principal
}

func (s *recordingOrders) List(_ context.Context, caller auth.Principal) ([]orders.OrderDTO, error) {
	s.caller = caller
	return []orders.OrderDTO{}, nil
}

func (s *recordingOrders) SetFulfillmentStatus(_ context.Context, id uuid.UUID, status string, caller auth.Principal) (*orders.OrderDTO, error) {
	s.status = status
	return &orders.OrderDTO{ID: id, OrderStatus: enums.FulfillmentStatus(status)}, nil
}

func TestOrdersListRequiresCaller(t *testing.T) {
	rec := httptest.NewRecorder()
	OrdersList(&recordingOrders{}, logger.Nop()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestOrdersListPassesCaller(t *testing.T) {
	svc := &recordingOrders{}
	caller := auth.Principal{UserID: uuid.New(), Role: enums.RoleUser}
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req = req.WithContext(middleware.WithPrincipal(req.Context(), caller))
	rec := httptest.NewRecorder()

	OrdersList(svc, logger.Nop()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.caller != caller {
		t.Fatalf("expected caller %+v, got %+v", caller, svc.caller)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %s", rec.Body.String())
	}
}

func TestOrdersSetStatus(t *testing.T) {
	id := uuid.New()
	caller := auth.Principal{UserID: uuid.New(), Role: enums.RoleAdmin}

	t.Run("missing body field", func(t *testing.T) {
		req := withID(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{}`)), id.String())
		req = req.WithContext(middleware.WithPrincipal(req.Context(), caller))
		rec := httptest.NewRecorder()
		OrdersSetStatus(&recordingOrders{}, logger.Nop()).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("passes value through", func(t *testing.T) {
		svc := &recordingOrders{}
		req := withID(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"orderStatus":"Lost"}`)), id.String())
		req = req.WithContext(middleware.WithPrincipal(req.Context(), caller))
		rec := httptest.NewRecorder()
		OrdersSetStatus(svc, logger.Nop()).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if svc.status != "Lost" {
			t.Fatalf("expected status Lost, got %q", svc.status)
		}
	})
}
