package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/rodrgost/cronicas-carmesim/internal/storage"
	"github.com/rodrgost/cronicas-carmesim/pkg/vtm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // reduce noise in tests
	}))
}

func testAttributes() vtm.Attributes {
	return vtm.Attributes{
		Strength: 2, Dexterity: 3, Stamina: 4,
		Charisma: 3, Manipulation: 2, Composure: 3,
		Intelligence: 2, Wits: 3, Resolve: 2,
	}
}

const createCharacterBody = `{
	"name": "Lucien",
	"clan": "Ventrue",
	"concept": "Disgraced banker",
	"attributes": {
		"strength": 2, "dexterity": 3, "stamina": 4,
		"charisma": 3, "manipulation": 2, "composure": 3,
		"intelligence": 2, "wits": 3, "resolve": 2
	},
	"skills": {"Brawl": 2, "persuasion": 3}
}`

func TestCharacterHandler_Create(t *testing.T) {
	store := storage.NewMockStorage()
	handler := NewCharacterHandler(store, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/v1/characters", strings.NewReader(createCharacterBody))
	req.Header.Set("X-User-ID", "user-1")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	var c vtm.Character
	if err := json.NewDecoder(rr.Body).Decode(&c); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if c.ID == uuid.Nil {
		t.Error("Expected non-nil character ID")
	}
	if c.MaxHealth != 7 {
		t.Errorf("MaxHealth = %d, want 7 (stamina+3)", c.MaxHealth)
	}
	if c.MaxWillpower != 5 {
		t.Errorf("MaxWillpower = %d, want 5 (composure+resolve)", c.MaxWillpower)
	}
	if c.Skill("brawl") != 2 {
		t.Errorf("Expected skill names lowercased, got skills %v", c.Skills)
	}
	if c.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", c.UserID)
	}
}

func TestCharacterHandler_CreateInvalidAttributes(t *testing.T) {
	store := storage.NewMockStorage()
	handler := NewCharacterHandler(store, testLogger())

	body := `{"name":"X","clan":"Nosferatu","attributes":{"strength":6,"dexterity":3,"stamina":4,"charisma":3,"manipulation":2,"composure":3,"intelligence":2,"wits":3,"resolve":2}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/characters", strings.NewReader(body))
	req.Header.Set("X-User-ID", "user-1")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for out-of-range attribute, got %d", rr.Code)
	}
}

func TestCharacterHandler_ListRequiresUser(t *testing.T) {
	store := storage.NewMockStorage()
	handler := NewCharacterHandler(store, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/v1/characters", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without X-User-ID, got %d", rr.Code)
	}
}

func TestCharacterHandler_GetForeignUser(t *testing.T) {
	store := storage.NewMockStorage()
	handler := NewCharacterHandler(store, testLogger())

	c := vtm.NewCharacter("owner", "Beatriz", "Toreador", testAttributes())
	if err := store.SaveCharacter(context.Background(), c); err != nil {
		t.Fatalf("SaveCharacter: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/characters/"+c.ID.String(), nil)
	req.Header.Set("X-User-ID", "intruder")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for foreign character, got %d", rr.Code)
	}
}

func TestCharacterHandler_Delete(t *testing.T) {
	store := storage.NewMockStorage()
	handler := NewCharacterHandler(store, testLogger())

	c := vtm.NewCharacter("user-1", "Beatriz", "Toreador", testAttributes())
	if err := store.SaveCharacter(context.Background(), c); err != nil {
		t.Fatalf("SaveCharacter: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/v1/characters/"+c.ID.String(), nil)
	req.Header.Set("X-User-ID", "user-1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d. Body: %s", rr.Code, rr.Body.String())
	}
	if _, err := store.GetCharacter(context.Background(), c.ID); err == nil {
		t.Error("Expected character to be deleted")
	}
}
