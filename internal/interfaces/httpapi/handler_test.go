package httpapi

import (
	"net/http/httptest"
	"testing"
)

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/metrics?videogame_id=1386&bad=abc", nil)

	got, err := queryInt(r, "videogame_id", 0)
	if err != nil || got != 1386 {
		t.Fatalf("queryInt(videogame_id)=%d err=%v", got, err)
	}

	got, err = queryInt(r, "missing", 7)
	if err != nil || got != 7 {
		t.Fatalf("queryInt(missing)=%d err=%v, want fallback 7", got, err)
	}

	if _, err = queryInt(r, "bad", 0); err == nil {
		t.Fatal("expected error for non-integer parameter")
	}
}

func TestQueryTerms(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/tournaments?name_contains=weekly,+the+runback+,", nil)

	got := queryTerms(r, "name_contains")
	want := []string{"weekly", "the runback"}
	if len(got) != len(want) {
		t.Fatalf("terms=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("terms[%d]=%q want=%q", i, got[i], want[i])
		}
	}

	if terms := queryTerms(r, "slug_contains"); terms != nil {
		t.Fatalf("expected nil for absent parameter, got %v", terms)
	}
}
