package session

import (
	"testing"
	"time"

	"github.com/BerryBytes/portalctl/models"
	"github.com/stretchr/testify/assert"
)

func TestDecodeExpiry(t *testing.T) {
	want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		raw   string
		valid bool
	}{
		{name: "Millis", raw: "1772366400000", valid: true},
		{name: "Seconds", raw: "1772366400", valid: true},
		{name: "Quoted", raw: `"1772366400000"`, valid: true},
		{name: "RFC3339", raw: "2026-03-01T12:00:00Z", valid: true},
		{name: "Empty", raw: ""},
		{name: "Zero", raw: "0"},
		{name: "Negative", raw: "-5"},
		{name: "Garbage", raw: "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := decodeExpiry(tt.raw)
			assert.Equal(t, tt.valid, ok)
			if tt.valid {
				assert.True(t, want.Equal(got), "got %s", got)
			}
		})
	}

	got, ok := decodeExpiry(encodeExpiry(want))
	assert.True(t, ok)
	assert.True(t, want.Equal(got))
}

func TestSetRecord(t *testing.T) {
	id := &models.Identity{}

	assert.True(t, setRecord(id, models.ProfileUser, `{"id":"u1","username":"alice","balance":12.5}`))
	assert.Equal(t, 12.5, id.User.Balance)

	assert.True(t, setRecord(id, models.ProfileAdminServers, `{"maintenance":true}`))
	assert.True(t, id.Servers.Maintenance)

	assert.False(t, setRecord(id, models.ProfileApplication, `[]`))
	assert.False(t, setRecord(id, models.ProfileApplication, `{"id":`))
	assert.False(t, setRecord(id, models.ProfileKind("unknown"), `{}`))
	assert.Nil(t, id.Application)
}
