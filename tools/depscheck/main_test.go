package main

import (
	"strings"
	"testing"
)

func TestCheckFlagsLayerViolations(t *testing.T) {
	input := `{"ImportPath":"project-hunter/server/internal/interact","Imports":["project-hunter/server/internal/vec","project-hunter/server/internal/sim"]}
{"ImportPath":"project-hunter/server/internal/lootdb","Imports":["project-hunter/server/internal/loot","project-hunter/server/internal/ground"]}
{"ImportPath":"project-hunter/server/internal/app","Imports":["project-hunter/server/logging/sinks","project-hunter/server/internal/net/ws"]}
{"ImportPath":"project-hunter/server/internal/net/ws","Imports":["project-hunter/server/internal/net/proto","github.com/gorilla/websocket"]}`

	packages, err := decodePackages(strings.NewReader(input))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(packages) != 4 {
		t.Fatalf("expected 4 packages, got %d", len(packages))
	}

	got := check(packages, rules)
	want := []string{
		"project-hunter/server/internal/interact -> project-hunter/server/internal/sim",
		"project-hunter/server/internal/lootdb -> project-hunter/server/internal/ground",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestMatchesRespectsPathBoundaries(t *testing.T) {
	if matches("internal/lootdb", []string{"internal/loot"}) {
		t.Fatalf("internal/loot must not match internal/lootdb")
	}
	if !matches("internal/net/ws", []string{"internal/net"}) {
		t.Fatalf("expected nested package to match")
	}
	if !matches("internal/sim", []string{"internal/"}) {
		t.Fatalf("expected trailing slash prefix to match")
	}
}
