package store

import (
	"errors"
	"testing"
)

type calibrationSetting struct {
	PinchMin float64 `json:"pinch_min"`
	PinchMax float64 `json:"pinch_max"`
}

func TestSettingRepository_SetGet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	if err := repo.Set("calibration", calibrationSetting{PinchMin: 0.04, PinchMax: 0.3}); err != nil {
		t.Fatalf("failed to set: %v", err)
	}

	var got calibrationSetting
	if err := repo.Get("calibration", &got); err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if got.PinchMin != 0.04 || got.PinchMax != 0.3 {
		t.Errorf("got %+v", got)
	}

	t.Run("overwrite", func(t *testing.T) {
		if err := repo.Set("calibration", calibrationSetting{PinchMin: 0.06, PinchMax: 0.2}); err != nil {
			t.Fatalf("failed to overwrite: %v", err)
		}
		var again calibrationSetting
		if err := repo.Get("calibration", &again); err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if again.PinchMin != 0.06 {
			t.Errorf("PinchMin = %v, want 0.06", again.PinchMin)
		}
	})
}

func TestSettingRepository_NotFound(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	var v string
	if err := repo.Get("missing", &v); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get: expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete: expected ErrNotFound, got %v", err)
	}
}

func TestSettingRepository_Delete(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	if err := repo.Set("enabled", true); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	if err := repo.Delete("enabled"); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}

	var v bool
	if err := repo.Get("enabled", &v); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSettingRepository_DecodeError(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	if err := repo.Set("name", "text"); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	var n int
	if err := repo.Get("name", &n); err == nil {
		t.Error("decoding a string into an int should fail")
	}
}
