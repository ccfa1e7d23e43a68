package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netdev-tools/ctbench/internal/bench"
)

func TestParseBenchmarkArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    bench.Params
		wantErr bool
	}{
		{
			name: "three arguments",
			args: []string{"2", "1000", "10"},
			want: bench.Params{NumThreads: 2, PktsPerThread: 1000, BatchSize: 10},
		},
		{
			name: "change connection enabled",
			args: []string{"4", "100", "8", "1"},
			want: bench.Params{NumThreads: 4, PktsPerThread: 100, BatchSize: 8, ChangeConnection: true},
		},
		{
			name: "change connection zero stays disabled",
			args: []string{"4", "100", "8", "0"},
			want: bench.Params{NumThreads: 4, PktsPerThread: 100, BatchSize: 8},
		},
		{
			name:    "zero threads",
			args:    []string{"0", "1000", "10"},
			wantErr: true,
		},
		{
			name:    "batch size over burst",
			args:    []string{"1", "1000", "33"},
			wantErr: true,
		},
		{
			name:    "non-numeric argument",
			args:    []string{"two", "1000", "10"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBenchmarkArgs(tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
