package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mesa-cafe/api/internal/handler"
	"github.com/mesa-cafe/api/internal/store"
)

// --- Mock MenuStore ---

type mockMenuStore struct {
	listMenuItemsFn           func(ctx context.Context) ([]store.MenuItem, error)
	listAvailableMenuItemsFn  func(ctx context.Context) ([]store.MenuItem, error)
	createMenuItemFn          func(ctx context.Context, arg store.CreateMenuItemParams) (store.MenuItem, error)
	updateMenuItemFn          func(ctx context.Context, arg store.UpdateMenuItemParams) (store.MenuItem, error)
	setMenuItemAvailabilityFn func(ctx context.Context, id uuid.UUID, available bool) (store.MenuItem, error)
	softDeleteMenuItemFn      func(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

func (m *mockMenuStore) ListMenuItems(ctx context.Context) ([]store.MenuItem, error) {
	if m.listMenuItemsFn != nil {
		return m.listMenuItemsFn(ctx)
	}
	return []store.MenuItem{}, nil
}

func (m *mockMenuStore) ListAvailableMenuItems(ctx context.Context) ([]store.MenuItem, error) {
	if m.listAvailableMenuItemsFn != nil {
		return m.listAvailableMenuItemsFn(ctx)
	}
	return []store.MenuItem{}, nil
}

func (m *mockMenuStore) CreateMenuItem(ctx context.Context, arg store.CreateMenuItemParams) (store.MenuItem, error) {
	if m.createMenuItemFn != nil {
		return m.createMenuItemFn(ctx, arg)
	}
	return store.MenuItem{}, pgx.ErrNoRows
}

func (m *mockMenuStore) UpdateMenuItem(ctx context.Context, arg store.UpdateMenuItemParams) (store.MenuItem, error) {
	if m.updateMenuItemFn != nil {
		return m.updateMenuItemFn(ctx, arg)
	}
	return store.MenuItem{}, pgx.ErrNoRows
}

func (m *mockMenuStore) SetMenuItemAvailability(ctx context.Context, id uuid.UUID, available bool) (store.MenuItem, error) {
	if m.setMenuItemAvailabilityFn != nil {
		return m.setMenuItemAvailabilityFn(ctx, id, available)
	}
	return store.MenuItem{}, pgx.ErrNoRows
}

func (m *mockMenuStore) SoftDeleteMenuItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	if m.softDeleteMenuItemFn != nil {
		return m.softDeleteMenuItemFn(ctx, id)
	}
	return uuid.Nil, pgx.ErrNoRows
}

func setupMenuRouter(st *mockMenuStore) *chi.Mux {
	h := handler.NewMenuHandler(st)
	r := chi.NewRouter()
	r.Route("/menu-items", h.RegisterRoutes)
	r.Get("/t/{code}/menu", h.PublicMenu)
	return r
}

func testMenuItem(t *testing.T, name, price string, available bool) store.MenuItem {
	t.Helper()
	return store.MenuItem{
		ID:          uuid.New(),
		CategoryID:  uuid.New(),
		Name:        name,
		Price:       testNumeric(t, price),
		IsAvailable: available,
		IsActive:    true,
	}
}

// --- Tests ---

func TestPublicMenu_OnlyAvailableItems(t *testing.T) {
	st := &mockMenuStore{
		listAvailableMenuItemsFn: func(ctx context.Context) ([]store.MenuItem, error) {
			return []store.MenuItem{
				testMenuItem(t, "Espresso", "2.50", true),
				testMenuItem(t, "Flat White", "4.00", true),
			}, nil
		},
		listMenuItemsFn: func(ctx context.Context) ([]store.MenuItem, error) {
			t.Fatal("public menu must not use the unfiltered list")
			return nil, nil
		},
	}
	router := setupMenuRouter(st)

	rr := doRequest(t, router, "GET", "/t/"+uuid.New().String()+"/menu", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var items []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&items); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items: got %d, want 2", len(items))
	}
	if items[0]["name"] != "Espresso" || items[0]["price"] != "2.50" {
		t.Errorf("unexpected first item: %+v", items[0])
	}
}

func TestMenuCreate_HappyPath(t *testing.T) {
	categoryID := uuid.New()

	st := &mockMenuStore{
		createMenuItemFn: func(ctx context.Context, arg store.CreateMenuItemParams) (store.MenuItem, error) {
			if arg.CategoryID != categoryID {
				t.Errorf("category_id: got %v, want %v", arg.CategoryID, categoryID)
			}
			if arg.Name != "Cortado" {
				t.Errorf("name: got %q, want Cortado", arg.Name)
			}
			return store.MenuItem{
				ID:          uuid.New(),
				CategoryID:  arg.CategoryID,
				Name:        arg.Name,
				Price:       arg.Price,
				IsAvailable: arg.IsAvailable,
				IsActive:    true,
			}, nil
		},
	}
	router := setupMenuRouter(st)

	rr := doRequest(t, router, "POST", "/menu-items", map[string]interface{}{
		"category_id":  categoryID.String(),
		"name":         "Cortado",
		"price":        "3.40",
		"is_available": true,
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["price"] != "3.40" {
		t.Errorf("price: got %v, want 3.40", resp["price"])
	}
}

func TestMenuCreate_NegativePrice(t *testing.T) {
	router := setupMenuRouter(&mockMenuStore{})

	rr := doRequest(t, router, "POST", "/menu-items", map[string]interface{}{
		"category_id": uuid.New().String(),
		"name":        "Oops",
		"price":       "-1.00",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestMenuCreate_MissingName(t *testing.T) {
	router := setupMenuRouter(&mockMenuStore{})

	rr := doRequest(t, router, "POST", "/menu-items", map[string]interface{}{
		"category_id": uuid.New().String(),
		"price":       "2.00",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestMenuSetAvailability_TogglesOff(t *testing.T) {
	itemID := uuid.New()

	st := &mockMenuStore{
		setMenuItemAvailabilityFn: func(ctx context.Context, id uuid.UUID, available bool) (store.MenuItem, error) {
			if id != itemID {
				t.Errorf("id: got %v, want %v", id, itemID)
			}
			if available {
				t.Error("expected availability false")
			}
			item := testMenuItem(t, "Espresso", "2.50", false)
			item.ID = itemID
			return item, nil
		},
	}
	router := setupMenuRouter(st)

	rr := doRequest(t, router, "PATCH", "/menu-items/"+itemID.String()+"/availability",
		map[string]bool{"is_available": false})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["is_available"] != false {
		t.Errorf("is_available: got %v, want false", resp["is_available"])
	}
}

func TestMenuDelete_NotFound(t *testing.T) {
	router := setupMenuRouter(&mockMenuStore{})

	rr := doRequest(t, router, "DELETE", "/menu-items/"+uuid.New().String(), nil)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
