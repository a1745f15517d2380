// Package assetpath parses the asset naming grammar used throughout the
// cache: `/domain/segment*/name[.ext]`. Domain and extension compare
// case-insensitively; every other segment compares exactly.
//
// No parser file for AssetPath was retrieved from the original engine
// source (only naming helpers in AssetCommon.h survive), so the grammar
// here is authored directly from spec §6's grammar description.
//
// © 2025 arena-cache authors. MIT License.
package assetpath

import (
	"fmt"
	"strings"

	"github.com/Voskan/assetcache/internal/unsafehelpers"
)

// Path is a parsed asset path: /domain/segment*/name[.ext].
type Path struct {
	raw       string
	domain    string
	segments  []string
	name      string
	extension string // without the leading dot; empty if none
}

// Parse splits raw into its domain, intermediate segments, base name, and
// extension. raw must begin with '/' and name a non-empty domain and a
// non-empty base name; everything else may be empty.
func Parse(raw string) (Path, error) {
	if raw == "" || raw[0] != '/' {
		return Path{}, fmt.Errorf("assetpath: %q must start with '/'", raw)
	}
	trimmed := raw[1:]
	if trimmed == "" {
		return Path{}, fmt.Errorf("assetpath: %q has no domain", raw)
	}

	parts := strings.Split(trimmed, "/")
	domain := parts[0]
	if domain == "" {
		return Path{}, fmt.Errorf("assetpath: %q has an empty domain", raw)
	}

	last := parts[len(parts)-1]
	if last == "" {
		return Path{}, fmt.Errorf("assetpath: %q has no name component", raw)
	}

	name := last
	extension := ""
	if dot := strings.LastIndexByte(last, '.'); dot > 0 {
		name = last[:dot]
		extension = last[dot+1:]
	}

	var segments []string
	if len(parts) > 2 {
		segments = append([]string(nil), parts[1:len(parts)-1]...)
	}

	return Path{
		raw:       raw,
		domain:    domain,
		segments:  segments,
		name:      name,
		extension: extension,
	}, nil
}

// String returns the original path text the Path was parsed from.
func (p Path) String() string { return p.raw }

// Domain returns the path's domain segment, e.g. "engine" or a mod id.
func (p Path) Domain() string { return p.domain }

// Segments returns the path's intermediate segments, excluding the
// domain and the base name.
func (p Path) Segments() []string { return p.segments }

// Name returns the base name component, without its extension.
func (p Path) Name() string { return p.name }

// Extension returns the base name's extension without the leading dot,
// or "" if the name has none.
func (p Path) Extension() string { return p.extension }

// EqualDomain compares this path's domain against other, case-insensitively.
// Domain and extension names are ASCII by construction (spec §6's
// grammar), so this runs a byte-wise ASCII fold over unsafehelpers'
// zero-copy string views rather than strings.EqualFold's full Unicode
// case-folding, avoiding an allocation on every lookup.
func (p Path) EqualDomain(other string) bool {
	return asciiEqualFold(p.domain, other)
}

// EqualExtension compares this path's extension against other (without a
// leading dot), case-insensitively.
func (p Path) EqualExtension(other string) bool {
	return asciiEqualFold(p.extension, other)
}

// asciiEqualFold compares a and b byte-for-byte, ignoring ASCII case.
func asciiEqualFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	ab := unsafehelpers.StringToBytes(a)
	bb := unsafehelpers.StringToBytes(b)
	for i := range ab {
		ca, cb := ab[i], bb[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Equal compares two paths using the grammar's compare rules: domain and
// extension case-insensitively, segments and name exactly.
func (p Path) Equal(other Path) bool {
	if !p.EqualDomain(other.domain) {
		return false
	}
	if p.name != other.name {
		return false
	}
	if !p.EqualExtension(other.extension) {
		return false
	}
	if len(p.segments) != len(other.segments) {
		return false
	}
	for i := range p.segments {
		if p.segments[i] != other.segments[i] {
			return false
		}
	}
	return true
}
