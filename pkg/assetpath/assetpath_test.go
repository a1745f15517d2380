package assetpath

import "testing"

func TestParseBasic(t *testing.T) {
	p, err := Parse("/engine/Types/StubAssetCharacter.lua")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Domain() != "engine" {
		t.Errorf("Domain() = %q, want \"engine\"", p.Domain())
	}
	if got, want := p.Segments(), []string{"Types"}; len(got) != 1 || got[0] != want[0] {
		t.Errorf("Segments() = %v, want %v", got, want)
	}
	if p.Name() != "StubAssetCharacter" {
		t.Errorf("Name() = %q, want \"StubAssetCharacter\"", p.Name())
	}
	if p.Extension() != "lua" {
		t.Errorf("Extension() = %q, want \"lua\"", p.Extension())
	}
}

func TestParseNoExtension(t *testing.T) {
	p, err := Parse("/engine/Types/StubAssetCharacter")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Name() != "StubAssetCharacter" || p.Extension() != "" {
		t.Errorf("Name/Extension = %q/%q, want \"StubAssetCharacter\"/\"\"", p.Name(), p.Extension())
	}
}

func TestParseNoSegments(t *testing.T) {
	p, err := Parse("/engine/root.tex")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Segments()) != 0 {
		t.Errorf("Segments() = %v, want empty", p.Segments())
	}
}

func TestParseRejectsMissingLeadingSlash(t *testing.T) {
	if _, err := Parse("engine/root.tex"); err == nil {
		t.Fatal("expected error for path without leading slash")
	}
}

func TestParseRejectsEmptyDomain(t *testing.T) {
	if _, err := Parse("//root.tex"); err == nil {
		t.Fatal("expected error for empty domain")
	}
}

func TestEqualDomainAndExtensionAreCaseInsensitive(t *testing.T) {
	p, err := Parse("/Engine/root.TEX")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !p.EqualDomain("engine") {
		t.Error("EqualDomain should be case-insensitive")
	}
	if !p.EqualExtension("tex") {
		t.Error("EqualExtension should be case-insensitive")
	}
}

func TestEqualRequiresExactSegmentsAndName(t *testing.T) {
	a, _ := Parse("/engine/Types/Foo.lua")
	b, _ := Parse("/ENGINE/types/Foo.LUA")
	if a.Equal(b) {
		t.Fatal("Equal must compare segments and name exactly, case-sensitively")
	}
	c, _ := Parse("/ENGINE/Types/Foo.LUA")
	if !a.Equal(c) {
		t.Fatal("Equal should accept differing case only in domain and extension")
	}
}
