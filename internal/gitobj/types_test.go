package gitobj

import "testing"

func TestNewSignature_Timezone(t *testing.T) {
	tests := []struct {
		name           string
		line           string
		wantName       string
		wantTZ         string
		wantOffsetSecs int
	}{
		{
			name:           "positive offset",
			line:           "John Doe <john@example.com> 1234567890 +0530",
			wantName:       "John Doe",
			wantTZ:         "+0530",
			wantOffsetSecs: 5*3600 + 30*60,
		},
		{
			name:           "negative offset",
			line:           "Jane Doe <jane@example.com> 1234567890 -0800",
			wantName:       "Jane Doe",
			wantTZ:         "-0800",
			wantOffsetSecs: -8 * 3600,
		},
		{
			name:           "UTC offset",
			line:           "Test User <test@example.com> 1234567890 +0000",
			wantName:       "Test User",
			wantTZ:         "+0000",
			wantOffsetSecs: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := NewSignature(tt.line)
			if err != nil {
				t.Fatalf("NewSignature() error: %v", err)
			}
			if sig.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", sig.Name, tt.wantName)
			}
			zoneName, offset := sig.When.Zone()
			if offset != tt.wantOffsetSecs {
				t.Errorf("timezone offset = %d, want %d", offset, tt.wantOffsetSecs)
			}
			if zoneName != tt.wantTZ {
				t.Errorf("timezone name = %q, want %q", zoneName, tt.wantTZ)
			}
		})
	}
}

func TestHash_Short(t *testing.T) {
	h := Hash("0123456789abcdef0123456789abcdef01234567")
	if got := h.Short(); got != "0123456" {
		t.Errorf("Short() = %q, want %q", got, "0123456")
	}
}

func TestNewHash_InvalidLength(t *testing.T) {
	if _, err := NewHash("abc"); err == nil {
		t.Fatal("expected error for short hash")
	}
}

func TestHashRoundTrip(t *testing.T) {
	want := hashFromHex("0a0b0c0d0e0f1011121314151617181920212223")
	hash, err := NewHashFromBytes(want)
	if err != nil {
		t.Fatalf("NewHashFromBytes failed: %v", err)
	}
	if hash.Bytes() != want {
		t.Errorf("round trip mismatch: got %v, want %v", hash.Bytes(), want)
	}
}
