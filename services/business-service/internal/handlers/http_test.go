package handlers

import (
	"encoding/json"
	"testing"
)

func TestParseTeamSelection(t *testing.T) {
	sel, msg := parseTeamSelection(json.RawMessage(`"all"`))
	if msg != "" || !sel.All {
		t.Fatalf(`"all" should select the whole team, got %+v msg=%q`, sel, msg)
	}

	sel, msg = parseTeamSelection(nil)
	if msg != "" || !sel.All {
		t.Fatalf("omitted team should default to the whole team, got %+v msg=%q", sel, msg)
	}

	ids := `["8e4a9f0c-9a49-4a1d-9f34-cb6ce13c7c1a","1c6a4be8-51e2-4d10-8f0f-0a4c2f9e7b3d"]`
	sel, msg = parseTeamSelection(json.RawMessage(ids))
	if msg != "" || sel.All || len(sel.StaffIDs) != 2 {
		t.Fatalf("explicit list should select those members, got %+v msg=%q", sel, msg)
	}

	if _, msg = parseTeamSelection(json.RawMessage(`"some"`)); msg == "" {
		t.Fatal("unknown string sentinel should be rejected")
	}
	if _, msg = parseTeamSelection(json.RawMessage(`[]`)); msg == "" {
		t.Fatal("empty list should be rejected")
	}
	if _, msg = parseTeamSelection(json.RawMessage(`["not-a-uuid"]`)); msg == "" {
		t.Fatal("non-uuid entries should be rejected")
	}
	if _, msg = parseTeamSelection(json.RawMessage(`42`)); msg == "" {
		t.Fatal("non-string non-array should be rejected")
	}
}
