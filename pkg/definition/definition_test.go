package definition

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formwizard/pkg/model"
)

const signupYAML = `
id: signup
title: Регистрация
endpoint: https://example.test/signup
steps:
  - id: account
    title: Аккаунт
    fields:
      - id: email
        kind: email
        label: Email
        required: true
        unique: true
      - id: password
        kind: password
        required: true
        minLength: 8
  - id: profile
    fields:
      - id: age
        kind: integer
        min: 18
      - id: nickname
        pattern: "[a-z]+"
        patternMessage: Только строчные буквы
  - id: review
    title: Проверка
`

const signupOpenAPI = `
openapi: 3.0.3
info:
  title: Signup
  version: "1.0"
servers:
  - url: https://api.example.test/v1
paths:
  /signup:
    post:
      operationId: createAccount
      summary: Create account
      x-formwizard-steps:
        - id: account
          title: Account
        - id: profile
          title: Profile
      requestBody:
        content:
          application/json:
            schema:
              type: object
              required: [email, password]
              properties:
                email:
                  type: string
                  format: email
                  x-formwizard-step: account
                  x-formwizard-order: 1
                  x-formwizard-unique: true
                password:
                  type: string
                  format: password
                  minLength: 8
                  x-formwizard-step: account
                  x-formwizard-order: 2
                age:
                  type: integer
                  minimum: 18
                  maximum: 120
                  x-formwizard-step: profile
                card:
                  type: string
                  x-formwizard-kind: card
                  x-formwizard-label: Номер карты
                  x-formwizard-step: payment
                id:
                  type: string
                  readOnly: true
      responses:
        "201":
          description: created
  /health:
    get:
      responses:
        "200":
          description: ok
`

func TestParseYAML(t *testing.T) {
	form, err := ParseYAML([]byte(signupYAML))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}

	if form.ID != "signup" || len(form.Steps) != 3 || len(form.Steps[2].Fields) != 0 {
		t.Fatalf("unexpected form %+v", form)
	}
	email, _, ok := form.Lookup("email")
	if !ok {
		t.Fatal("email field missing")
	}
	want := model.Field{
		ID:          "email",
		Label:       "Email",
		Kind:        model.KindEmail,
		Constraints: model.Constraints{Required: true},
		Unique:      true,
		Valid:       true,
	}
	if diff := cmp.Diff(want, email); diff != "" {
		t.Fatalf("email mismatch (-want +got):\n%s", diff)
	}

	age, _, _ := form.Lookup("age")
	if age.Kind != model.KindNumber || age.Constraints.Min == nil || *age.Constraints.Min != 18 {
		t.Fatalf("age not normalised: %+v", age)
	}
	nick, _, _ := form.Lookup("nickname")
	if nick.Kind != model.KindText || nick.Label != "Nickname" {
		t.Fatalf("nickname defaults not applied: %+v", nick)
	}
	if form.Steps[1].Title != "Profile" {
		t.Fatalf("expected default step title, got %q", form.Steps[1].Title)
	}
}

func TestParseYAML_RejectsUnknownKeysAndKinds(t *testing.T) {
	cases := map[string]string{
		"unknown key":  "id: f\nsteps:\n  - id: s\n    fields:\n      - id: a\n        requird: true\n",
		"unknown kind": "id: f\nsteps:\n  - id: s\n    fields:\n      - id: a\n        kind: colour\n",
		"empty":        "",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseYAML([]byte(doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParseOpenAPI(t *testing.T) {
	form, err := ParseOpenAPI(context.Background(), []byte(signupOpenAPI), "")
	if err != nil {
		t.Fatalf("ParseOpenAPI: %v", err)
	}

	if form.ID != "createAccount" || form.Method != "POST" {
		t.Fatalf("unexpected form identity %+v", form)
	}
	if form.Endpoint != "https://api.example.test/v1/signup" {
		t.Fatalf("unexpected endpoint %q", form.Endpoint)
	}

	type stepSummary struct {
		ID     string
		Title  string
		Fields []string
	}
	var got []stepSummary
	for _, step := range form.Steps {
		summary := stepSummary{ID: step.ID, Title: step.Title}
		for _, f := range step.Fields {
			summary.Fields = append(summary.Fields, f.ID)
		}
		got = append(got, summary)
	}
	want := []stepSummary{
		{ID: "account", Title: "Account", Fields: []string{"email", "password"}},
		{ID: "profile", Title: "Profile", Fields: []string{"age"}},
		{ID: "payment", Title: "Payment", Fields: []string{"card"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}

	email, _, _ := form.Lookup("email")
	if email.Kind != model.KindEmail || !email.Unique || !email.Constraints.Required {
		t.Fatalf("email not converted: %+v", email)
	}
	password, _, _ := form.Lookup("password")
	if password.Kind != model.KindPassword || *password.Constraints.MinLength != 8 {
		t.Fatalf("password not converted: %+v", password)
	}
	age, _, _ := form.Lookup("age")
	if age.Kind != model.KindNumber || *age.Constraints.Max != 120 || age.Constraints.Required {
		t.Fatalf("age not converted: %+v", age)
	}
	card, _, _ := form.Lookup("card")
	if card.Kind != model.KindCard || card.Label != "Номер карты" {
		t.Fatalf("card not converted: %+v", card)
	}
	if _, _, ok := form.Lookup("id"); ok {
		t.Fatal("readOnly properties must be skipped")
	}
}

func TestParseOpenAPI_OperationSelection(t *testing.T) {
	if _, err := ParseOpenAPI(context.Background(), []byte(signupOpenAPI), "missing"); !errors.Is(err, ErrOperationNotFound) {
		t.Fatalf("expected ErrOperationNotFound, got %v", err)
	}

	twoOps := strings.Replace(signupOpenAPI, "  /health:\n    get:\n", "  /health:\n    put:\n      requestBody:\n        content:\n          application/json:\n            schema:\n              type: object\n              properties:\n                note:\n                  type: string\n", 1)
	if _, err := ParseOpenAPI(context.Background(), []byte(twoOps), ""); !errors.Is(err, ErrAmbiguousOperation) {
		t.Fatalf("expected ErrAmbiguousOperation, got %v", err)
	}
	form, err := ParseOpenAPI(context.Background(), []byte(twoOps), "put:/health")
	if err != nil {
		t.Fatalf("select by derived id: %v", err)
	}
	if form.Method != "PUT" || len(form.Steps) != 1 || form.Steps[0].ID != DefaultStep {
		t.Fatalf("unexpected form %+v", form)
	}
}

func TestLoader_SourcesAndDetection(t *testing.T) {
	valid := "id: contact\nsteps:\n  - id: s1\n    fields:\n      - id: email\n        kind: email\n        required: true\n"

	dir := t.TempDir()
	path := filepath.Join(dir, "contact.yaml")
	if err := os.WriteFile(path, []byte(valid), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/openapi.yaml" {
			_, _ = w.Write([]byte(signupOpenAPI))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	loader := NewLoader(WithFS(fstest.MapFS{"forms/contact.yml": {Data: []byte(valid)}}))
	ctx := context.Background()

	if form, err := loader.Load(ctx, FromFile(path)); err != nil || form.ID != "contact" {
		t.Fatalf("file source: %v %+v", err, form)
	}
	if form, err := loader.Load(ctx, FromFS("forms/contact.yml")); err != nil || form.ID != "contact" {
		t.Fatalf("fs source: %v %+v", err, form)
	}

	src, err := Parse(server.URL + "/openapi.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if src.Kind != SourceKindURL {
		t.Fatalf("expected url source, got %s", src.Kind)
	}
	form, err := loader.Load(ctx, src)
	if err != nil {
		t.Fatalf("url source: %v", err)
	}
	if form.ID != "createAccount" {
		t.Fatalf("expected openapi detection, got %+v", form)
	}

	missing, _ := FromURL(server.URL + "/nope.yaml")
	if _, err := loader.Load(ctx, missing); err == nil {
		t.Fatal("expected error for 404")
	}
	if _, err := NewLoader().Load(ctx, FromFS("x.yaml")); !errors.Is(err, ErrUnsupportedSource) {
		t.Fatalf("expected ErrUnsupportedSource, got %v", err)
	}
	if _, err := FromURL("ftp://example.test/x"); err == nil {
		t.Fatal("expected scheme error")
	}
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"a.yaml":       {Data: []byte("id: a\nsteps:\n  - id: s\n    fields:\n      - id: x\n")},
		"nested/b.yml": {Data: []byte("id: b\nsteps:\n  - id: s\n    fields:\n      - id: y\n")},
		"api.yaml":     {Data: []byte(signupOpenAPI)},
		"README.md":    {Data: []byte("ignored")},
	}
	store, err := LoadFS(fsys)
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, store.IDs()); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	if _, ok := store.Form("b"); !ok {
		t.Fatal("expected form b")
	}

	fsys["dup.yaml"] = &fstest.MapFile{Data: []byte("id: a\nsteps:\n  - id: s\n    fields:\n      - id: z\n")}
	if _, err := LoadFS(fsys); err == nil {
		t.Fatal("expected duplicate form error")
	}
}
