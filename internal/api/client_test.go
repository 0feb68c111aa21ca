package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmeshcher/worldcup-storefront/internal/model"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()

	c, err := NewClient(url, time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func writeEnvelope(t *testing.T, w http.ResponseWriter, data any) {
	t.Helper()

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: raw}); err != nil {
		t.Fatalf("encode envelope: %v", err)
	}
}

func TestSignIn_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/auth/signin" {
			t.Fatalf("path = %s, want /api/auth/signin", r.URL.Path)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["email"] != "a@b.com" {
			t.Fatalf("email = %s, want a@b.com", body["email"])
		}

		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		writeEnvelope(t, w, profileData{User: model.UserProfile{ID: "u1", Email: "a@b.com"}})
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)

	profile, err := c.SignIn(context.Background(), "a@b.com", "secret")
	if err != nil {
		t.Fatalf("SignIn error: %v", err)
	}
	if profile.ID != "u1" || profile.Email != "a@b.com" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestSignIn_BadCredentials(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(envelope{Success: false, Message: "invalid credentials"})
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)

	_, err := c.SignIn(context.Background(), "a@b.com", "bad")

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", apiErr.Status)
	}
	if apiErr.Message != "invalid credentials" {
		t.Fatalf("message = %q, want server message", apiErr.Message)
	}
}

func TestWhoAmI_NotAuthenticated(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)

	_, err := c.WhoAmI(context.Background())
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestWhoAmI_SendsSessionCookie(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/signin":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
			writeEnvelope(t, w, profileData{User: model.UserProfile{ID: "u1"}})
		case "/api/auth/me":
			cookie, err := r.Cookie("session")
			if err != nil || cookie.Value != "abc" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeEnvelope(t, w, profileData{User: model.UserProfile{ID: "u1"}})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)

	if _, err := c.SignIn(context.Background(), "a@b.com", "secret"); err != nil {
		t.Fatalf("SignIn error: %v", err)
	}

	profile, err := c.WhoAmI(context.Background())
	if err != nil {
		t.Fatalf("WhoAmI error: %v", err)
	}
	if profile.ID != "u1" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestMatchDetails_MergesAvailability(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/matches/42":
			writeEnvelope(t, w, model.Match{
				ID:       42,
				HomeTeam: model.Team{Name: "France"},
				AwayTeam: model.Team{Name: "Brazil"},
			})
		case "/api/matches/42/availability":
			writeEnvelope(t, w, availabilityData{
				Categories: map[model.CategoryName]model.TicketCategory{
					model.CategoryVIP: {Available: true, Price: 250, AvailableSeats: 4},
				},
				TotalAvailableSeats: 4,
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)

	match, err := c.MatchDetails(context.Background(), 42)
	if err != nil {
		t.Fatalf("MatchDetails error: %v", err)
	}
	if match.Label() != "France vs Brazil" {
		t.Fatalf("label = %q, want France vs Brazil", match.Label())
	}
	if match.AvailableSeats != 4 {
		t.Fatalf("availableSeats = %d, want 4", match.AvailableSeats)
	}
	if cat := match.Categories[model.CategoryVIP]; cat.Price != 250 {
		t.Fatalf("vip price = %v, want 250", cat.Price)
	}
}

func TestCategoryStock(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, availabilityData{
			Categories: map[model.CategoryName]model.TicketCategory{
				model.Category1: {Available: true, Price: 120, AvailableSeats: 17},
			},
		})
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)

	seats, err := c.CategoryStock(context.Background(), 7, model.Category1)
	if err != nil {
		t.Fatalf("CategoryStock error: %v", err)
	}
	if seats != 17 {
		t.Fatalf("seats = %d, want 17", seats)
	}

	if _, err := c.CategoryStock(context.Background(), 7, model.CategoryVIP); err == nil {
		t.Fatalf("expected error for unknown category")
	}
}

func TestDo_NetworkErrorIsUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // адрес больше никого не слушает

	c := newTestClient(t, ts.URL)

	_, err := c.Matches(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestNewClient_EmptyAddress(t *testing.T) {
	if _, err := NewClient("", time.Second); err == nil {
		t.Fatalf("expected error for empty address")
	}
}
