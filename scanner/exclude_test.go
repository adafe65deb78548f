package scanner

import "testing"

func TestMatcher(t *testing.T) {
	m, err := NewMatcher([]string{"bower_components", "*.spec.js", "app/vendor", "build/**", " ", "./tmp/"})
	if err != nil {
		t.Fatalf("NewMatcher failed: %v", err)
	}

	tests := []struct {
		name string
		rel  string
		want bool
	}{
		{"bower_components", "bower_components", true},
		{"bower_components", "lib/bower_components", true},
		{"bower_components_backup", "bower_components_backup", false},
		{"my_bower_components", "my_bower_components", false},
		{"user.spec.js", "test/user.spec.js", true},
		{"user.js", "test/user.js", false},
		{"vendor", "app/vendor", true},
		{"vendor", "vendor", false},
		{"out.js", "build/out.js", true},
		{"tmp", "tmp", true},
	}

	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			if got := m.Match(tt.name, tt.rel); got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.name, tt.rel, got, tt.want)
			}
		})
	}
}

func TestMatcherEmpty(t *testing.T) {
	var nilMatcher *Matcher
	if nilMatcher.Match("a", "a") {
		t.Error("nil matcher should never match")
	}

	m, err := NewMatcher(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !m.Empty() {
		t.Error("matcher without patterns should be empty")
	}
}

func TestMatcherInvalidPattern(t *testing.T) {
	if _, err := NewMatcher([]string{"[a-"}); err == nil {
		t.Error("Expected an error for an unterminated character class")
	}
}
