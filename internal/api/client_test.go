package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	logx "findemybot/pkg/logx"
)

func TestLoginInstallsToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "a@b.c" || body["password"] != "rahasia" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": "Login berhasil",
			"token":   "tok123",
			"user":    map[string]any{"id": 1, "name": "Andi", "email": "a@b.c"},
		})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, logx.Nop())
	res, err := c.Login(context.Background(), "a@b.c", "rahasia")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Token != "tok123" || res.User.Name != "Andi" {
		t.Fatalf("result = %+v", res)
	}
	if c.Token() != "tok123" {
		t.Fatal("token not installed on client")
	}
}

func TestLoginBadCredentials(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "Email atau password salah"})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, logx.Nop())
	if _, err := c.Login(context.Background(), "a@b.c", "salah"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestSchedulesUnwrapsEnvelope(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok123" {
			t.Errorf("Authorization = %q", got)
		}
		switch r.URL.Path {
		case "/jadwal":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"message": "ok",
				"data": []map[string]any{{
					"id": 1, "hari": "Senin", "jam_mulai": "08:00", "jam_selesai": "10:00",
					"mata_kuliah": "Algoritma", "dosen": "Budi", "ruangan": "R101",
					"pasang_pengingat": true,
				}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, logx.Nop())
	c.SetToken("tok123")
	list, err := c.Schedules(context.Background())
	if err != nil {
		t.Fatalf("Schedules: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("%d rows, want 1", len(list))
	}
	j := list[0]
	if j.Hari != "Senin" || j.JamMulai != "08:00" || j.MataKuliah != "Algoritma" || !j.PasangPengingat {
		t.Fatalf("row = %+v", j)
	}
}

func TestListRejectedEnvelope(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "Data tidak ditemukan"})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, logx.Nop())
	if _, err := c.Tasks(context.Background()); err == nil {
		t.Fatal("success=false envelope not surfaced as error")
	}
}

func TestExpiredTokenSurfacesUnauthorized(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, logx.Nop())
	c.SetToken("stale")
	if _, err := c.Events(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}
