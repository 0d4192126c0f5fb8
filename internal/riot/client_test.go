package riot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("key", "europe", "euw1").WithBaseURLs(srv.URL, srv.URL)
}

func TestGetActiveGame(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Riot-Token") != "key" {
			t.Errorf("missing api key header")
		}
		switch r.URL.Path {
		case "/lol/spectator/v5/active-games/by-summoner/in-game":
			w.Write([]byte(`{"gameId":123,"gameMode":"CLASSIC","platformId":"EUW1","gameStartTime":1700000000000}`))
		default:
			http.NotFound(w, r)
		}
	})

	g, err := c.GetActiveGame(context.Background(), "in-game")
	if err != nil {
		t.Fatalf("GetActiveGame: %v", err)
	}
	if g == nil || g.MatchID() != "EUW1_123" {
		t.Fatalf("unexpected game %+v", g)
	}

	g, err = c.GetActiveGame(context.Background(), "idle")
	if err != nil || g != nil {
		t.Fatalf("idle player: got %+v, %v", g, err)
	}
}

func TestGetMatchNotPublished(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	m, err := c.GetMatch(context.Background(), "EUW1_1")
	if err != nil || m != nil {
		t.Fatalf("expected nil, nil; got %+v, %v", m, err)
	}
}

func TestGetMatchServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	if _, err := c.GetMatch(context.Background(), "EUW1_1"); err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestRetryOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"puuid":"p1","gameName":"Faker","tagLine":"KR1"}`))
	})

	acc, err := c.GetAccountByRiotID(context.Background(), "Faker", "KR1")
	if err != nil {
		t.Fatalf("GetAccountByRiotID: %v", err)
	}
	if acc.PUUID != "p1" {
		t.Errorf("expected puuid p1, got %q", acc.PUUID)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}
