package limits

import "testing"

func TestParseCacheSize(t *testing.T) {
	tests := []struct {
		files int
		want  int
	}{
		{0, DefaultParseCacheEntries},
		{-3, DefaultParseCacheEntries},
		{10, DefaultParseCacheEntries},
		{DefaultParseCacheEntries + 1, DefaultParseCacheEntries + 1},
		{8000, 10000},
	}

	for _, tt := range tests {
		if got := ParseCacheSize(tt.files); got != tt.want {
			t.Errorf("ParseCacheSize(%d) = %d, want %d", tt.files, got, tt.want)
		}
	}
}

func TestWorkers(t *testing.T) {
	if got := Workers(3, 8); got != 3 {
		t.Errorf("explicit worker count should win, got %d", got)
	}
	if got := Workers(0, 8); got != 8 {
		t.Errorf("expected one worker per cpu, got %d", got)
	}
	if got := Workers(-1, 0); got != 1 {
		t.Errorf("expected at least one worker, got %d", got)
	}
}
