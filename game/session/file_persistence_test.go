package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/carsim/game/engine"
	"github.com/wricardo/mcp-training/carsim/game/service"
)

func newTestSession(t *testing.T, id string) *service.Session {
	t.Helper()
	eng, err := engine.NewEngine(createTestConfig())
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return &service.Session{
		ID:             id,
		ConfigID:       "collision",
		Engine:         eng,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}
}

func TestFilePersistence(t *testing.T) {
	persistence, err := NewFilePersistence(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	t.Run("save and load session", func(t *testing.T) {
		session := newTestSession(t, "test1")
		if err := persistence.Save(session); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}
		if !persistence.Exists("test1") {
			t.Error("Session file should exist after save")
		}

		loaded, err := persistence.Load("test1")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}
		if loaded.ID != "test1" || loaded.ConfigID != "collision" {
			t.Errorf("Unexpected loaded session %+v", loaded)
		}
		if loaded.Engine.GetRound() != 0 || len(loaded.Engine.GetCars()) != 2 {
			t.Error("Loaded session should match the saved one")
		}
	})

	t.Run("mid-run session round-trips", func(t *testing.T) {
		session := newTestSession(t, "midrun")
		session.Engine.Advance(4)
		if err := persistence.Save(session); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}

		loaded, err := persistence.Load("midrun")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}
		if loaded.Engine.GetRound() != 4 {
			t.Errorf("Expected round 4, got %d", loaded.Engine.GetRound())
		}
		if !reflect.DeepEqual(loaded.Engine.GetCars(), session.Engine.GetCars()) {
			t.Error("Replayed cars differ from saved cars")
		}

		session.Engine.Run()
		loaded.Engine.Run()
		if !reflect.DeepEqual(loaded.Engine.Result(), session.Engine.Result()) {
			t.Error("Finishing the replayed session must give the same result")
		}
	})

	t.Run("added cars are kept", func(t *testing.T) {
		session := newTestSession(t, "added")
		if _, err := session.Engine.AddCar(engine.CarConfig{Name: "C", X: 0, Y: 0, Direction: "E", Commands: "FFF"}); err != nil {
			t.Fatalf("Failed to add car: %v", err)
		}
		session.Engine.Advance(2)
		persistence.Save(session)

		loaded, err := persistence.Load("added")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}
		car := engine.FindCar(loaded.Engine.GetCars(), "C")
		if car == nil || car.Position != (engine.Position{X: 2, Y: 0}) {
			t.Errorf("Expected car C at (2,0), got %+v", car)
		}
	})

	t.Run("load non-existent session", func(t *testing.T) {
		if _, err := persistence.Load("nope"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("list and delete", func(t *testing.T) {
		ids, err := persistence.ListAll()
		if err != nil {
			t.Fatalf("Failed to list sessions: %v", err)
		}
		if len(ids) != 3 {
			t.Errorf("Expected 3 persisted sessions, got %v", ids)
		}

		if err := persistence.Delete("test1"); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if persistence.Exists("test1") {
			t.Error("Session file should be gone")
		}
		if err := persistence.Delete("test1"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestFilePersistenceFileStructure(t *testing.T) {
	dir := t.TempDir()
	persistence, _ := NewFilePersistence(dir)

	session := newTestSession(t, "ABCD")
	session.Engine.Advance(3)
	if err := persistence.Save(session); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "abcd.json"))
	if err != nil {
		t.Fatalf("Expected lowercase session file: %v", err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("Session file is not valid JSON: %v", err)
	}
	if data.ID != "ABCD" || data.Rounds != 3 || data.Scenario == nil || len(data.Scenario.Cars) != 2 {
		t.Errorf("Unexpected persisted data %+v", data)
	}
	if data.State == nil || data.State.Round != 3 {
		t.Error("Expected a state snapshot in the session file")
	}

	if _, err := os.Stat(filepath.Join(dir, "abcd.json.tmp")); !os.IsNotExist(err) {
		t.Error("Temp file should not be left behind")
	}
}

func TestFilePersistence_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	persistence, _ := NewFilePersistence(dir)

	os.WriteFile(filepath.Join(dir, "bad1.json"), []byte("{"), 0644)
	if _, err := persistence.Load("bad1"); err == nil {
		t.Error("Expected error for corrupt file")
	}

	os.WriteFile(filepath.Join(dir, "bad2.json"), []byte(`{"id":"bad2","rounds":2}`), 0644)
	if _, err := persistence.Load("bad2"); err == nil {
		t.Error("Expected error for missing scenario")
	}
}
