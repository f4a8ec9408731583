package submit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestHTTPSubmitter_Success(t *testing.T) {
	var (
		gotBody      Payload
		gotRequestID string
		gotMethod    string
		gotToken     string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotRequestID = r.Header.Get(RequestIDHeader)
		gotToken = r.Header.Get("X-CSRF-Token")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "message": "Спасибо", "data": {"id": 42}}`))
	}))
	defer server.Close()

	sub, err := NewHTTP(server.URL, WithHeader("X-CSRF-Token", "tok"), WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}

	payload := Payload{"email": "a@b.com", "name": "Ann"}
	resp, err := sub.Submit(context.Background(), payload)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if diff := cmp.Diff(payload, gotBody); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
	if gotMethod != http.MethodPost {
		t.Fatalf("expected POST, got %s", gotMethod)
	}
	if gotToken != "tok" {
		t.Fatalf("expected static header to be forwarded, got %q", gotToken)
	}
	if gotRequestID == "" || gotRequestID != resp.RequestID {
		t.Fatalf("request id mismatch: header %q response %q", gotRequestID, resp.RequestID)
	}
	if resp.Message != "Спасибо" || resp.Status != http.StatusOK {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Data["id"] != float64(42) {
		t.Fatalf("expected data to be decoded, got %+v", resp.Data)
	}
}

func TestHTTPSubmitter_RejectedWithFieldErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"Проверьте данные","errors":{"/body/email":"уже занят","phone":["слишком короткий"]}}`))
	}))
	defer server.Close()

	sub, err := NewHTTP(server.URL, WithMethod("put"))
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}

	_, err = sub.Submit(context.Background(), Payload{"email": "a@b.com"})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	var subErr *Error
	if !errors.As(err, &subErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if subErr.Status != http.StatusUnprocessableEntity || subErr.Message != "Проверьте данные" {
		t.Fatalf("unexpected error %+v", subErr)
	}
	want := map[string][]string{
		"/body/email": {"уже занят"},
		"phone":       {"слишком короткий"},
	}
	if diff := cmp.Diff(want, subErr.Fields); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTPSubmitter_SuccessFalseIsRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": false, "error": "quota exceeded"}`))
	}))
	defer server.Close()

	sub, _ := NewHTTP(server.URL)
	_, err := sub.Submit(context.Background(), Payload{})
	var subErr *Error
	if !errors.As(err, &subErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if subErr.Message != "quota exceeded" {
		t.Fatalf("expected error text as message, got %q", subErr.Message)
	}
}

func TestHTTPSubmitter_StatusTextWhenBodyEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sub, _ := NewHTTP(server.URL)
	_, err := sub.Submit(context.Background(), Payload{})
	var subErr *Error
	if !errors.As(err, &subErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if subErr.Message != http.StatusText(http.StatusBadGateway) {
		t.Fatalf("unexpected message %q", subErr.Message)
	}
}

func TestHTTPSubmitter_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	sub, _ := NewHTTP(url)
	_, err := sub.Submit(context.Background(), Payload{})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestHTTPSubmitter_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	sub, _ := NewHTTP(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := sub.Submit(ctx, Payload{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrTransport) {
		t.Fatalf("cancellation must not be reported as transport failure")
	}
}

func TestNewHTTP_RequiresEndpoint(t *testing.T) {
	if _, err := NewHTTP("  "); !errors.Is(err, ErrEndpointMissing) {
		t.Fatalf("expected ErrEndpointMissing, got %v", err)
	}
}

func TestMapFieldErrors(t *testing.T) {
	fields := []string{"email", "phone", "name"}
	payload := map[string][]string{
		"/body/email":       {" уже занят ", "уже занят"},
		"data.Phone":        {"неверный формат"},
		"#/contacts/0/name": {"пусто"},
		"non_field_errors":  {"Попробуйте позже"},
		"unknown":           {"что-то не так"},
		"name":              {""},
	}

	got := MapFieldErrors(fields, payload)
	want := ErrorMapping{
		Fields: map[string][]string{
			"email": {"уже занят"},
			"phone": {"неверный формат"},
			"name":  {"пусто"},
		},
		Form: []string{"Попробуйте позже", "что-то не так"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mapping mismatch (-want +got):\n%s", diff)
	}

	merged := got.Merge("Ошибка отправки")
	if diff := cmp.Diff([]string{"Ошибка отправки", "Попробуйте позже", "что-то не так"}, merged); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMapFieldErrors_Empty(t *testing.T) {
	got := MapFieldErrors([]string{"email"}, nil)
	if got.Fields != nil || got.Form != nil {
		t.Fatalf("expected empty mapping, got %+v", got)
	}
}
