package main

import (
	"testing"

	"github.com/dvloznov/txn-features/internal/tableio"
)

func TestUses(t *testing.T) {
	tests := []struct {
		name   string
		kind   tableio.Kind
		input  string
		output string
		want   bool
	}{
		{"gcs input", tableio.KindGCS, "gs://b/in.csv", "-", true},
		{"gcs output", tableio.KindGCS, "in.csv", "gs://b/out.csv", true},
		{"no gcs", tableio.KindGCS, "in.csv", "bq://p.d.t", false},
		{"bigquery output", tableio.KindBigQuery, "-", "bq://p.d.t", true},
		{"stdio only", tableio.KindBigQuery, "-", "-", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := uses(tt.kind, tt.input, tt.output); got != tt.want {
				t.Errorf("uses(%v, %q, %q) = %v, want %v", tt.kind, tt.input, tt.output, got, tt.want)
			}
		})
	}
}
