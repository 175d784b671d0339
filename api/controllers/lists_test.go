package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mercadito-app/mercadito-backend/api/middleware"
	"github.com/mercadito-app/mercadito-backend/internal/lists"
	"github.com/mercadito-app/mercadito-backend/pkg/db/models"
	pkgerrors "github.com/mercadito-app/mercadito-backend/pkg/errors"
)

type stubListService struct {
	lists.Service
	item    *models.ListItem
	itemErr error
}

func (s stubListService) AddItem(_ context.Context, _, _ uuid.UUID, _ string, _ int) (*models.ListItem, error) {
	return s.item, s.itemErr
}

func authedRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
}

func TestItemAddSuccess(t *testing.T) {
	listID := uuid.New()
	handler := listRouter(stubListService{item: &models.ListItem{
		ID:       uuid.New(),
		ListID:   listID,
		Name:     "Leite",
		Quantity: 1,
		Price:    "6.79",
		BarCode:  "789222",
	}})

	req := authedRequest(http.MethodPost, "/lists/"+listID.String()+"/items", []byte(`{"name":"Leite"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}

	var envelope struct {
		Data itemResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Name != "Leite" || envelope.Data.BarCode != "789222" {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestItemAddDuplicateConflict(t *testing.T) {
	listID := uuid.New()
	handler := listRouter(stubListService{itemErr: pkgerrors.New(pkgerrors.CodeConflict, "item already on the list")})

	req := authedRequest(http.MethodPost, "/lists/"+listID.String()+"/items", []byte(`{"name":"Leite"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != "CONFLICT" || envelope.Error.Message != "item already on the list" {
		t.Fatalf("unexpected error payload %+v", envelope.Error)
	}
}

func TestItemAddRejectsUnknownFields(t *testing.T) {
	listID := uuid.New()
	handler := listRouter(stubListService{})

	req := authedRequest(http.MethodPost, "/lists/"+listID.String()+"/items", []byte(`{"name":"Leite","bogus":true}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestItemAddMissingUserContext(t *testing.T) {
	listID := uuid.New()
	handler := listRouter(stubListService{})

	req := httptest.NewRequest(http.MethodPost, "/lists/"+listID.String()+"/items", bytes.NewReader([]byte(`{"name":"Leite"}`)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

// listRouter mounts the handler with the listId URL param wired the way the
// real router does.
func listRouter(svc lists.Service) http.Handler {
	r := chi.NewRouter()
	r.Post("/lists/{listId}/items", ItemAdd(svc, nil))
	return r
}
