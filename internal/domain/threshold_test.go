package domain

import (
	"encoding/json"
	"testing"
)

// ─── Percent Tests ──────────────────────────────────────────────────────────

func TestParsePercent(t *testing.T) {
	tests := []struct {
		in   string
		want Percent
	}{
		{"0.51", 5100},
		{"1", PercentScale},
		{"1.0", PercentScale},
		{"0", 0},
		{".5", 5000},
		{"51%", 5100},
		{"33.33%", 3333},
		{"100%", PercentScale},
		{" 0.3333 ", 3333},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePercent(tt.in)
			if err != nil {
				t.Fatalf("ParsePercent(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParsePercent(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestParsePercent_Invalid(t *testing.T) {
	for _, in := range []string{"", "1.5", "101%", "-0.1", "0.12345", "33.333%", "abc", "%"} {
		if _, err := ParsePercent(in); err == nil {
			t.Errorf("ParsePercent(%q) should fail", in)
		}
	}
}

func TestPercent_String(t *testing.T) {
	tests := map[Percent]string{
		0:            "0",
		5000:         "0.5",
		5100:         "0.51",
		3333:         "0.3333",
		1:            "0.0001",
		PercentScale: "1",
	}
	for p, want := range tests {
		if got := p.String(); got != want {
			t.Errorf("Percent(%d).String() = %q, want %q", p, got, want)
		}
		back, err := ParsePercent(want)
		if err != nil || back != p {
			t.Errorf("ParsePercent(%q) = %d, %v; want %d", want, back, err, p)
		}
	}
}

// ─── Threshold Tests ────────────────────────────────────────────────────────

func TestThreshold_JSON(t *testing.T) {
	tests := []struct {
		th   Threshold
		wire string
	}{
		{Threshold{Kind: AbsoluteCount, Weight: 3}, `{"absolute_count":{"weight":3}}`},
		{Threshold{Kind: AbsolutePercentage, Percentage: 5100}, `{"absolute_percentage":{"percentage":"0.51"}}`},
		{Threshold{Kind: ThresholdQuorum, Percentage: 5000, Quorum: 3000}, `{"threshold_quorum":{"threshold":"0.5","quorum":"0.3"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.th.Kind.String(), func(t *testing.T) {
			b, err := json.Marshal(tt.th)
			if err != nil {
				t.Fatal(err)
			}
			if string(b) != tt.wire {
				t.Errorf("Marshal = %s, want %s", b, tt.wire)
			}
			var back Threshold
			if err := json.Unmarshal([]byte(tt.wire), &back); err != nil {
				t.Fatal(err)
			}
			if back != tt.th {
				t.Errorf("Unmarshal = %+v, want %+v", back, tt.th)
			}
		})
	}
}

func TestThreshold_UnmarshalRejectsAmbiguous(t *testing.T) {
	for _, in := range []string{
		`{}`,
		`{"absolute_count":{"weight":1},"absolute_percentage":{"percentage":"0.5"}}`,
		`{"absolute_percentage":{"percentage":"2"}}`,
	} {
		var th Threshold
		if err := json.Unmarshal([]byte(in), &th); err == nil {
			t.Errorf("Unmarshal(%s) should fail, got %+v", in, th)
		}
	}
}

func TestThresholdKind_Unknown(t *testing.T) {
	if _, err := json.Marshal(Threshold{Kind: 7}); err == nil {
		t.Error("marshal of unknown kind should fail")
	}
	if s := ThresholdKind(7).String(); s != "unknown" {
		t.Errorf("String() = %q", s)
	}
}
