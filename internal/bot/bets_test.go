package bot

import "testing"

func TestParseWagers(t *testing.T) {
	wagers, err := parseWagers("100 intfar <@123> & 50 GAME_WIN", 1000)
	if err != nil {
		t.Fatalf("parseWagers: %v", err)
	}
	if len(wagers) != 2 {
		t.Fatalf("wagers = %+v", wagers)
	}
	if w := wagers[0]; w.EventID != "intfar" || w.Amount != 100 || w.TargetID != 123 {
		t.Fatalf("first wager = %+v", w)
	}
	if w := wagers[1]; w.EventID != "game_win" || w.Amount != 50 || w.TargetID != 0 {
		t.Fatalf("second wager = %+v", w)
	}
}

func TestParseWagersAll(t *testing.T) {
	wagers, err := parseWagers("all no_intfar", 740)
	if err != nil || len(wagers) != 1 || wagers[0].Amount != 740 {
		t.Fatalf("parseWagers = %+v, %v", wagers, err)
	}
}

func TestParseWagersErrors(t *testing.T) {
	tests := []string{
		"",
		"intfar",
		"abc intfar",
		"-5 intfar",
		"10 intfar bob",
		"all intfar & 10 game_win",
		"10 intfar <@1> extra",
	}
	for _, input := range tests {
		if _, err := parseWagers(input, 100); err == nil {
			t.Errorf("parseWagers(%q) should fail", input)
		}
	}
}
