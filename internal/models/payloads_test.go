package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHistoryPayload(t *testing.T) {
	raw := []byte(`{
		"teams": [{"id": 1, "name": "A", "net_number": 11, "checks": [0, 1, -1]}],
		"min-tick": 0, "max-tick": 2,
		"service-name": "Web", "service-slug": "web",
		"status-descriptions": {"-1": "not checked", "0": "up", "1": "down"},
		"graylog-search-url": "http://logs/search"
	}`)

	payload, err := Decode[HistoryPayload](raw)
	require.NoError(t, err)
	assert.Equal(t, 0, *payload.MinTick)
	assert.Equal(t, 2, *payload.MaxTick)
	assert.Equal(t, "http://logs/search", payload.LogSearchURL)
	require.Len(t, payload.Teams, 1)
	assert.Equal(t, 11, payload.Teams[0].NetNumber)
	assert.Equal(t, []CheckStatus{Checked(StatusOK), Checked(StatusDown), Checked(StatusNotChecked)}, payload.Teams[0].Checks)
}

func TestHistoryPayloadValidation(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing ticks", `{"teams": [], "service-slug": "web", "status-descriptions": {}}`},
		{"link without slug", `{"teams": [], "min-tick": 0, "max-tick": 1, "graylog-search-url": "http://logs"}`},
		{"inverted range", `{"teams": [], "min-tick": 5, "max-tick": 1}`},
		{"nameless team", `{"teams": [{"id": 1, "checks": [0, 0]}], "min-tick": 0, "max-tick": 1}`},
		{"short checks", `{"teams": [{"id": 1, "name": "A", "checks": [0]}], "min-tick": 0, "max-tick": 1,
			"service-slug": "web", "status-descriptions": {}}`},
		{"unknown status", `{"teams": [{"id": 1, "name": "A", "checks": [17]}], "min-tick": 0, "max-tick": 0,
			"service-slug": "web", "status-descriptions": {}}`},
		{"not json", `{"teams": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode[HistoryPayload]([]byte(tt.raw))
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestDecodeMissingChecksPayload(t *testing.T) {
	raw := []byte(`{
		"checks": [{"tick": 5, "teams": [[2, false], [3, true]]}],
		"all-teams": {"2": {"name": "B", "net-number": 12}, "3": {"name": "C", "net-number": 13}},
		"min-tick": 0, "max-tick": 5, "service-name": "Web", "service-slug": "web"
	}`)

	payload, err := Decode[MissingChecksPayload](raw)
	require.NoError(t, err)
	require.Len(t, payload.Checks, 1)
	assert.Equal(t, []MissingTeam{{TeamID: 2}, {TeamID: 3, Timeout: true}}, payload.Checks[0].Teams)

	ref, ok := payload.Team(3)
	require.True(t, ok)
	assert.Equal(t, MissingTeamRef{Name: "C", NetNumber: 13}, ref)
}

func TestHistoryPayloadWithoutOptionalFields(t *testing.T) {
	payload, err := Decode[HistoryPayload]([]byte(`{"min-tick": 0, "max-tick": 2,
		"teams": [{"name": "A", "checks": [0, 1, -1]}]}`))
	require.NoError(t, err)
	assert.Empty(t, payload.ServiceSlug)
	assert.Nil(t, payload.StatusDescriptions)
}

func TestMissingChecksRejectsUnknownTeam(t *testing.T) {
	raw := []byte(`{"checks": [{"tick": 5, "teams": [[9, false]]}], "all-teams": {},
		"min-tick": 0, "max-tick": 5, "service-slug": "web"}`)

	_, err := Decode[MissingChecksPayload](raw)
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.Contains(t, err.Error(), "unknown team 9")
}

func TestStatusPayloadValidation(t *testing.T) {
	ok := []byte(`{"ticks": [3, 4], "services": ["web", "db"],
		"teams": [{"id": 1, "nop": true, "name": "NOP", "ticks": [[0, ""], [1, 2]]}],
		"status-descriptions": {"-1": "not checked"}}`)
	payload, err := Decode[StatusPayload](ok)
	require.NoError(t, err)
	assert.True(t, payload.Teams[0].Ticks[0][1].Unset)

	bad := []byte(`{"ticks": [3, 4], "services": ["web", "db"],
		"teams": [{"id": 1, "name": "NOP", "ticks": [[0, ""], [1]]}],
		"status-descriptions": {}}`)
	_, err = Decode[StatusPayload](bad)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestDecodeScoreboardPayload(t *testing.T) {
	raw := []byte(`{"tick": 7, "teams": [{"rank": 1, "id": 4, "name": "D",
		"services": [{"status": 0, "offense": 1.5, "defense": 2, "sla": 3.25,
			"flagstores": [[0, ""], [3, "flag missing"]]}],
		"offense": 1.5, "defense": 2, "sla": 3.25, "total": 6.75}],
		"status-descriptions": {"0": "up"}}`)

	payload, err := Decode[ScoreboardPayload](raw)
	require.NoError(t, err)
	service := payload.Teams[0].Services[0]
	assert.Equal(t, []Flagstore{
		{Status: Checked(StatusOK)},
		{Status: Checked(StatusFlagNotFound), Message: "flag missing"},
	}, service.Flagstores)

	_, err = Decode[ScoreboardPayload]([]byte(`{"teams": []}`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestUnknownStatusCodesRejected(t *testing.T) {
	_, err := Decode[StatusPayload]([]byte(`{"ticks": [1], "services": ["web"],
		"teams": [{"id": 1, "name": "A", "ticks": [[9]]}]}`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.Contains(t, err.Error(), "unknown status 9")

	_, err = Decode[ScoreboardPayload]([]byte(`{"tick": 1, "teams": [{"rank": 1, "id": 1, "name": "A",
		"services": [{"status": 0, "flagstores": [[77, ""]]}]}]}`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.Contains(t, err.Error(), "flagstore 0 has unknown status 77")

	assert.True(t, Unchecked().Known())
	assert.False(t, Checked(Status(6)).Known())
}
