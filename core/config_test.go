package core

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
)

func TestReportsConfig_LoadLocation(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		want     string
		wantErr  bool
	}{
		{name: "empty is UTC", timezone: "", want: "UTC"},
		{name: "UTC", timezone: "UTC", want: "UTC"},
		{name: "IANA name", timezone: "Africa/Lagos", want: "Africa/Lagos"},
		{name: "unknown", timezone: "Mars/Olympus", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := ReportsConfig{Timezone: tt.timezone}
			loc, err := rc.LoadLocation()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.timezone)
				assert.Equal(t, time.UTC, rc.Location())
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, loc.String())
		})
	}
}
