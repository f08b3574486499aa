package plugin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls map[string]string
}

func (r *recordingObserver) ObservePlugin(name, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string]string)
	}
	r.calls[name] = status
}

func installScript(t *testing.T, root, name, events, script string) {
	t.Helper()

	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	manifest := `{"name":"` + name + `","executable":"run.sh","events":` + events + `}`
	if err := os.WriteFile(filepath.Join(dir, "plugin.json"), []byte(manifest), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "run.sh"), []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	root := t.TempDir()
	installScript(t, root, "recorder", `["color_change"]`, `#!/bin/sh
cat > request.json
echo '{"success":true}'
`)
	installScript(t, root, "refuser", `["color_change"]`, `#!/bin/sh
cat > /dev/null
echo '{"success":false,"error":"nope"}'
`)
	installScript(t, root, "unrelated", `["something_else"]`, `#!/bin/sh
touch ran
echo '{"success":true}'
`)

	manager := NewManager(root, nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	observer := &recordingObserver{}
	d := NewDispatcher(manager, NewExecutor(5*time.Second), observer, nil)

	results, err := d.Dispatch(context.Background(), EventColorChange, ColorChange{
		SessionID: "s1",
		Previous:  "#FF00FF",
		Color:     "#FFFF00",
		X:         0.25,
		Y:         1.5,
	})
	if err != nil {
		t.Fatalf("Dispatch() failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Plugin != "recorder" || results[0].Err != nil {
		t.Errorf("recorder result = %+v", results[0])
	}
	if results[1].Plugin != "refuser" || results[1].Err == nil {
		t.Errorf("refuser should report an error, got %+v", results[1])
	}

	t.Run("request written to stdin", func(t *testing.T) {
		raw, err := os.ReadFile(filepath.Join(root, "recorder", "request.json"))
		if err != nil {
			t.Fatalf("failed to read request: %v", err)
		}
		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.ID == "" || req.Event != EventColorChange {
			t.Errorf("unexpected request header %+v", req)
		}
		var change ColorChange
		if err := json.Unmarshal(req.Data, &change); err != nil {
			t.Fatalf("failed to decode data: %v", err)
		}
		if change.Color != "#FFFF00" || change.SessionID != "s1" {
			t.Errorf("unexpected data %+v", change)
		}
	})

	t.Run("unsubscribed plugin not run", func(t *testing.T) {
		if _, err := os.Stat(filepath.Join(root, "unrelated", "ran")); !os.IsNotExist(err) {
			t.Error("unrelated plugin should not run")
		}
	})

	t.Run("observer", func(t *testing.T) {
		observer.mu.Lock()
		defer observer.mu.Unlock()
		if observer.calls["recorder"] != "ok" || observer.calls["refuser"] != "error" {
			t.Errorf("observer calls = %v", observer.calls)
		}
	})
}

func TestDispatcher_NoSubscribers(t *testing.T) {
	d := NewDispatcher(NewManager(t.TempDir(), nil), NewExecutor(time.Second), nil, nil)

	results, err := d.Dispatch(context.Background(), EventColorChange, ColorChange{})
	if err != nil {
		t.Fatalf("Dispatch() failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}
