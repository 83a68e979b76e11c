package utils

import "testing"

func TestShouldIncludeNoPatterns(t *testing.T) {
	m := NewPatternMatcher(nil, nil)
	if !m.ShouldInclude("/any/path/file.go") {
		t.Error("no patterns should include everything")
	}
	var nilMatcher *PatternMatcher
	if !nilMatcher.ShouldInclude("/any/path") {
		t.Error("nil matcher should include everything")
	}
}

func TestShouldIncludeGlobs(t *testing.T) {
	m := NewPatternMatcher([]string{"*.go"}, nil)
	if !m.ShouldInclude("/src/main.go") {
		t.Error("expected *.go include to match")
	}
	if m.ShouldInclude("/src/main.java") {
		t.Error("expected non-matching file to be excluded")
	}
}

func TestExcludeWinsOverInclude(t *testing.T) {
	m := NewPatternMatcher([]string{"*.go"}, []string{"*_test.go"})
	if !m.ShouldInclude("/src/main.go") {
		t.Error("main.go should pass")
	}
	if m.ShouldInclude("/src/main_test.go") {
		t.Error("excluded pattern must win")
	}
}

func TestRegexPatternsMatchFullPath(t *testing.T) {
	m := NewPatternMatcher(nil, []string{`/vendor/`})
	if m.ShouldInclude("/repo/vendor/lib/a.go") {
		t.Error("regex exclude should match full path")
	}
	if !m.ShouldInclude("/repo/src/a.go") {
		t.Error("non-vendor path should pass")
	}
}
