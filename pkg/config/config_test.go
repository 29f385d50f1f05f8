package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLanguages(t *testing.T) {
	tests := []struct {
		raw     string
		want    []int
		wantErr bool
	}{
		{raw: "1", want: []int{1}},
		{raw: "1, 2,3", want: []int{1, 2, 3}},
		{raw: "", want: nil},
		{raw: "en", wantErr: true},
		{raw: "0", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseLanguages(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse(t *testing.T) {
	Languages = "1,2"
	MinCycle = "30s"
	ResyncPeriod = "0"
	MaxRetryDelay = "2m"
	WaitForServices = ""
	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, Config{
		Languages:     []int{1, 2},
		MinCycle:      30 * time.Second,
		MaxRetryDelay: 2 * time.Minute,
	}, cfg)

	MinCycle = "soon"
	_, err = Parse()
	require.ErrorContains(t, err, "min-cycle")
}
