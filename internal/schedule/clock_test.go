package schedule

import (
	"errors"
	"testing"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantHour   int
		wantMinute int
		wantErr    bool
	}{
		{name: "morning", input: "8:00 AM", wantHour: 8, wantMinute: 0},
		{name: "leading zero", input: "08:00 AM", wantHour: 8, wantMinute: 0},
		{name: "evening lowercase", input: "8:05 pm", wantHour: 20, wantMinute: 5},
		{name: "noon", input: "12:00 PM", wantHour: 12, wantMinute: 0},
		{name: "midnight", input: "12:30 AM", wantHour: 0, wantMinute: 30},
		{name: "no space", input: "9:15PM", wantHour: 21, wantMinute: 15},
		{name: "24h form", input: "20:45", wantHour: 20, wantMinute: 45},
		{name: "24h midnight", input: "00:00", wantHour: 0, wantMinute: 0},
		{name: "surrounding whitespace", input: "  7:30 am ", wantHour: 7, wantMinute: 30},
		{name: "hour 13 with AM", input: "13:00 AM", wantErr: true},
		{name: "hour 0 with AM", input: "0:30 AM", wantErr: true},
		{name: "minute 60", input: "8:60 PM", wantErr: true},
		{name: "garbage", input: "abc", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "24h hour out of range", input: "24:00", wantErr: true},
		{name: "single digit minute", input: "8:5 AM", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, m, err := ParseClock(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseClock(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTime) {
					t.Errorf("error %v does not wrap ErrInvalidTime", err)
				}
				return
			}
			if h != tt.wantHour || m != tt.wantMinute {
				t.Errorf("ParseClock(%q) = %d:%02d, want %d:%02d", tt.input, h, m, tt.wantHour, tt.wantMinute)
			}
		})
	}
}

func TestValidateTimes(t *testing.T) {
	if err := ValidateTimes([]string{"8:00 AM", "8:00 PM"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateTimes(nil); err == nil {
		t.Error("expected error for empty batch")
	}

	err := ValidateTimes([]string{"8:00 AM", "13:00 AM", "abc"})
	if err == nil {
		t.Fatal("expected error for batch containing bad entries")
	}
	if !errors.Is(err, ErrInvalidTime) {
		t.Errorf("error %v does not wrap ErrInvalidTime", err)
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		hour, minute int
		want         string
	}{
		{0, 5, "12:05 AM"},
		{8, 0, "8:00 AM"},
		{12, 0, "12:00 PM"},
		{20, 30, "8:30 PM"},
	}
	for _, tt := range tests {
		if got := FormatClock(tt.hour, tt.minute); got != tt.want {
			t.Errorf("FormatClock(%d, %d) = %q, want %q", tt.hour, tt.minute, got, tt.want)
		}
	}
}
