package cmd

import (
	"testing"

	"github.com/spf13/pflag"
)

// TestAnalyzeQuery 测试 analyze 命令参数按接口同样的规则校验.
func TestAnalyzeQuery(t *testing.T) {
	cases := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"defaults", nil, false},
		{"explicit values", []string{"--date", "2024-03-05", "--channel", "Beta", "--product", "Firefox", "--max-days", "5", "--limit", "100", "--threshold", "2"}, false},
		{"zero limit", []string{"--limit", "0"}, true},
		{"negative max days", []string{"--max-days", "-1"}, true},
		{"too many max days", []string{"--max-days", "61"}, true},
		{"negative threshold", []string{"--threshold", "-3"}, true},
		{"unknown channel", []string{"--channel", "esr"}, true},
		{"unknown product", []string{"--product", "Thunderbird"}, true},
		{"bad date", []string{"--date", "03/05/2024"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			flags := analyzeCmd.Flags()
			flags.VisitAll(func(f *pflag.Flag) {
				if f.Value.Type() != "stringSlice" {
					_ = f.Value.Set(f.DefValue)
				}

				f.Changed = false
			})

			analyzeFlags.channels, analyzeFlags.products = nil, nil

			if err := flags.Parse(tc.args); err != nil {
				t.Fatalf("parse: %v", err)
			}

			_, err := analyzeQuery(flags)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
