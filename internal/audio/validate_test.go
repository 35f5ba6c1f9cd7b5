package audio

import (
	"strings"
	"testing"

	"codeberg.org/snonux/toolbelt/internal/apperr"
)

func TestValidateText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		max     int
		wantErr bool
	}{
		{"korean sentence", "안녕하세요", MaxRequestChars, false},
		{"english sentence", "Hello there", MaxRequestChars, false},
		{"empty text", "", MaxRequestChars, true},
		{"whitespace only", " \n\t ", MaxRequestChars, true},
		{"exactly at limit", strings.Repeat("가", MaxRequestChars), MaxRequestChars, false},
		{"over request limit", strings.Repeat("a", MaxRequestChars+1), MaxRequestChars, true},
		{"within engine limit", strings.Repeat("a", MaxRequestChars+1), MaxEngineChars, false},
		{"over engine limit", strings.Repeat("a", MaxEngineChars+1), MaxEngineChars, true},
		{"no limit", strings.Repeat("a", MaxEngineChars+1), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateText(tt.text, tt.max)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateText() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperr.IsKind(err, apperr.KindInvalid) {
				t.Errorf("Expected invalid kind, got %v", err)
			}
		})
	}
}
