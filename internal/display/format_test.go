package display

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/backmassage/nifbatch/internal/config"
	"github.com/backmassage/nifbatch/internal/term"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{"zero", 0, "0 B"},
		{"small bytes", 512, "512 B"},
		{"exactly 1 KiB", 1024, "1.0 KiB"},
		{"1.5 KiB", 1536, "1.5 KiB"},
		{"1 MiB", 1024 * 1024, "1.0 MiB"},
		{"1 GiB", 1024 * 1024 * 1024, "1.0 GiB"},
		{"typical nif 3.2 MiB", 3355443, "3.2 MiB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatBytes(tt.bytes)
			if got != tt.want {
				t.Errorf("FormatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"negative", -time.Second, "0ms"},
		{"sub-second", 850 * time.Millisecond, "850ms"},
		{"seconds", 1200 * time.Millisecond, "1.2s"},
		{"minutes", 3*time.Minute + 5*time.Second, "3m05s"},
		{"hours", time.Hour + 2*time.Minute, "1h02m"},
		{"seconds round up to minute", 59960 * time.Millisecond, "1m00s"},
		{"minutes round up to hour", 59*time.Minute + 59600*time.Millisecond, "1h00m"},
		{"just under a minute", 59940 * time.Millisecond, "59.9s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.d); got != tt.want {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestPlural(t *testing.T) {
	if got := Plural(1, "file"); got != "1 file" {
		t.Errorf("Plural(1) = %q", got)
	}
	if got := Plural(3, "file"); got != "3 files" {
		t.Errorf("Plural(3) = %q", got)
	}
}

func TestPrintBanner(t *testing.T) {
	term.Configure(config.ColorNever)
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3")
	if !strings.Contains(buf.String(), "1.2.3") {
		t.Errorf("banner missing version: %q", buf.String())
	}
	if strings.Contains(buf.String(), "\033[") {
		t.Errorf("banner has escape codes with colors disabled")
	}
}
