package cli

import (
	"reflect"
	"testing"
)

func TestNewFlags(t *testing.T) {
	flags := NewFlags()

	// Test default values
	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"Addr", flags.Addr, ":5000"},
		{"LogLevel", flags.LogLevel, "info"},
		{"To", flags.To, "ko"},
		{"Pages", flags.Pages, 2},
		{"Encoding", flags.Encoding, "cp949"},
		{"QRSize", flags.QRSize, 256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.expected) {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}

	// Test string defaults (should be empty)
	stringTests := []struct {
		name  string
		value string
	}{
		{"CfgFile", flags.CfgFile},
		{"OutputDir", flags.OutputDir},
		{"Output", flags.Output},
		{"Input", flags.Input},
		{"BatchFile", flags.BatchFile},
		{"XLSXOut", flags.XLSXOut},
		{"CSVOut", flags.CSVOut},
		{"URL", flags.URL},
	}

	for _, tt := range stringTests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Errorf("%s = %v, want empty string", tt.name, tt.value)
			}
		})
	}

	if flags.Open {
		t.Error("Open should default to false")
	}
}

func TestFlagsStructure(t *testing.T) {
	// Test that Flags struct has all expected fields
	flags := &Flags{}
	flagsType := reflect.TypeOf(*flags)

	expectedFields := []string{
		"CfgFile", "OutputDir", "LogLevel", "LogFormat",
		"Addr", "Open", "Output", "Input",
		"From", "To", "BatchFile",
		"AudioProvider", "OpenAIVoice", "XLSXOut",
		"Pages", "CSVOut", "Encoding",
		"TextFile", "URL", "FontPath",
		"Lat", "Lon", "Name", "QRSize",
	}

	for _, fieldName := range expectedFields {
		t.Run("has_field_"+fieldName, func(t *testing.T) {
			if _, ok := flagsType.FieldByName(fieldName); !ok {
				t.Errorf("Flags struct missing field: %s", fieldName)
			}
		})
	}
}
