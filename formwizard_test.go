package formwizard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goliatone/go-formwizard/pkg/config"
	"github.com/goliatone/go-formwizard/pkg/page"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

const definitionYAML = `
id: newsletter
steps:
  - id: contact
    title: Контакты
    fields:
      - id: email
        kind: email
        required: true
        unique: true
  - id: review
    title: Проверка
`

func writeDefinition(t *testing.T, endpoint string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "newsletter.yaml")
	doc := definitionYAML + "endpoint: " + endpoint + "\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write definition: %v", err)
	}
	return path
}

func TestRuntime_HTTPCollaborators(t *testing.T) {
	var submitted map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/check", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"available": true}`))
	})
	mux.HandleFunc("/subscribe", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "k" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&submitted)
		_, _ = w.Write([]byte(`{"message":"Подписка оформлена"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ctx := context.Background()
	form, err := LoadDefinition(ctx, writeDefinition(t, server.URL+"/subscribe"))
	if err != nil {
		t.Fatalf("LoadDefinition: %v", err)
	}

	cfg := config.Default()
	cfg.Debounce = 10 * time.Millisecond
	cfg.Uniqueness.URL = server.URL + "/check"
	cfg.Submit.Headers = map[string]string{"X-Api-Key": "k"}

	reg := prometheus.NewRegistry()
	rt, err := NewRuntime(cfg, WithRegisterer(reg))
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	defer rt.Close()

	mem := page.NewMemory()
	w, err := rt.NewWizard(form, wizard.WithPage(mem))
	if err != nil {
		t.Fatalf("NewWizard: %v", err)
	}
	defer w.Close()

	if err := w.Input("email", "a@b.com"); err != nil {
		t.Fatalf("Input: %v", err)
	}
	if err := w.Advance(); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	resp, err := w.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.Message != "Подписка оформлена" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if submitted["email"] != "a@b.com" {
		t.Fatalf("unexpected payload %+v", submitted)
	}
	if got := mem.LiveText(page.Polite); got != "Подписка оформлена" {
		t.Fatalf("unexpected announcement %q", got)
	}

	count, err := testutil.GatherAndCount(reg, "formwizard_submission_duration_seconds")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one submission series, got %d", count)
	}
}

func TestRuntime_RedisChecker(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()
	if _, err := mr.SAdd("formwizard:taken:email", "taken@b.com"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cfg := config.Default()
	cfg.Debounce = 10 * time.Millisecond
	cfg.Uniqueness.RedisAddr = mr.Addr()

	rt, err := NewRuntime(cfg)
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	defer rt.Close()

	form, err := LoadDefinition(context.Background(), writeDefinition(t, "https://example.test/subscribe"))
	if err != nil {
		t.Fatalf("LoadDefinition: %v", err)
	}
	mem := page.NewMemory()
	w, err := rt.NewWizard(form, wizard.WithPage(mem))
	if err != nil {
		t.Fatalf("NewWizard: %v", err)
	}
	defer w.Close()

	if err := w.Input("email", "Taken@b.com"); err != nil {
		t.Fatalf("Input: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for !mem.Invalid("email") {
		if time.Now().After(deadline) {
			t.Fatal("taken value was not flagged")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := mem.FieldMessage("email"); got != "Это значение уже занято" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestCheckCard(t *testing.T) {
	if card := CheckCard("4532015112830366"); !card.Valid || card.Type != "visa" {
		t.Fatalf("expected valid visa, got %+v", card)
	}
	if card := CheckCard("1234567890123456"); card.Valid {
		t.Fatalf("expected invalid card, got %+v", card)
	}
}
