package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/tierprobe/internal/ir"
)

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		constraint string
		version    string
		wantErr    string
	}{
		{"", "0.1.0", ""},
		{">=0.1.0 <1.0.0", "0.1.0", ""},
		{"^0.1", "0.1.5", ""},
		{"~0.1.0", "0.2.0", "does not satisfy"},
		{">=1.0.0", "0.1.0", "does not satisfy"},
		{"not a constraint", "0.1.0", "invalid engine constraint"},
		{">=0.1.0", "banana", "invalid engine version"},
	}

	for _, tt := range tests {
		t.Run(tt.constraint+"/"+tt.version, func(t *testing.T) {
			err := checkVersion(tt.constraint, tt.version)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestCheckEngineVersionCurrent(t *testing.T) {
	assert.NoError(t, CheckEngineVersion(">="+ir.EngineVersion))
	assert.Error(t, CheckEngineVersion("<"+ir.EngineVersion))
}
