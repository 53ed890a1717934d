package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yodateam/faceit-backend/internal/domain"
	"github.com/yodateam/faceit-backend/internal/testutil"
)

func doRequest(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealthAndAuthGates(t *testing.T) {
	ts := testutil.NewTestServer(t)

	resp := doRequest(t, http.MethodGet, ts.BaseURL()+"/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// protected routes refuse anonymous and malformed credentials
	resp = doRequest(t, http.MethodGet, ts.APIURL("/profile"), "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = doRequest(t, http.MethodGet, ts.APIURL("/profile"), "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// leaderboard is public
	resp = doRequest(t, http.MethodGet, ts.APIURL("/leaderboard"), "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterAndProfile(t *testing.T) {
	ts := testutil.NewTestServer(t)
	token := ts.Token(t, 501, false)

	resp := doRequest(t, http.MethodPost, ts.APIURL("/profile/register"), token, map[string]string{
		"displayName": "neo",
		"gameId":      "neo#1999",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var profile struct {
		ID     int64  `json:"id"`
		Rating int    `json:"rating"`
		Level  int    `json:"level"`
		Name   string `json:"displayName"`
	}
	decode(t, resp, &profile)
	assert.Equal(t, int64(501), profile.ID)
	assert.Equal(t, 1000, profile.Rating)
	assert.Equal(t, 4, profile.Level)

	// retry returns the stored record
	resp = doRequest(t, http.MethodPost, ts.APIURL("/profile/register"), token, map[string]string{
		"displayName": "other",
		"gameId":      "other#1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &profile)
	assert.Equal(t, "neo", profile.Name)

	resp = doRequest(t, http.MethodGet, ts.APIURL("/profile"), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// unknown player id is a 400
	resp = doRequest(t, http.MethodGet, ts.APIURL("/players/98765"), "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLobbyEndpoints(t *testing.T) {
	ts := testutil.NewTestServer(t)
	players := testutil.CreatePlayers(t, ts.Env.DB.DB, 2)
	token0 := ts.Token(t, players[0].ID, false)
	token1 := ts.Token(t, players[1].ID, false)

	resp := doRequest(t, http.MethodGet, ts.APIURL("/lobbies/1x1"), token0, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var board []struct {
		Index    int `json:"index"`
		Capacity int `json:"capacity"`
		Players  []domain.PlayerSnapshot
	}
	decode(t, resp, &board)
	require.Len(t, board, domain.SlotsPerMode)
	assert.Equal(t, 2, board[0].Capacity)

	resp = doRequest(t, http.MethodGet, ts.APIURL("/lobbies/3x3"), token0, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, http.MethodPost, ts.APIURL("/lobbies/1x1/2/join"), token0, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// double join conflicts
	resp = doRequest(t, http.MethodPost, ts.APIURL("/lobbies/1x1/2/join"), token0, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// second player fills the duel slot and the accept window opens
	resp = doRequest(t, http.MethodPost, ts.APIURL("/lobbies/1x1/2/join"), token1, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var match domain.Match
	require.NoError(t, ts.Env.DB.DB.First(&match).Error)

	resp = doRequest(t, http.MethodGet, ts.APIURL("/matches/"+match.ID.String()), token0, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pending struct {
		Status string  `json:"status"`
		Roster []any   `json:"roster"`
		Acc    []int64 `json:"accepted"`
	}
	decode(t, resp, &pending)
	assert.Equal(t, "accepting", pending.Status)
	assert.Len(t, pending.Roster, 2)
}

func TestMatchFlowOverHTTP(t *testing.T) {
	ts := testutil.NewTestServer(t)
	players := testutil.CreatePlayers(t, ts.Env.DB.DB, 2)
	tokens := map[int64]string{
		players[0].ID: ts.Token(t, players[0].ID, false),
		players[1].ID: ts.Token(t, players[1].ID, false),
	}

	for _, p := range players {
		resp := doRequest(t, http.MethodPost, ts.APIURL("/lobbies/1x1/0/join"), tokens[p.ID], nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	var match domain.Match
	require.NoError(t, ts.Env.DB.DB.First(&match).Error)
	base := ts.APIURL("/matches/" + match.ID.String())

	for _, p := range players {
		resp := doRequest(t, http.MethodPost, base+"/accept", tokens[p.ID], nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := doRequest(t, http.MethodGet, base, tokens[players[0].ID], nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var draft struct {
		Phase      domain.Phase `json:"phase"`
		TurnHolder int64        `json:"turnHolder"`
		Available  []string     `json:"available"`
	}
	decode(t, resp, &draft)
	require.Equal(t, domain.PhaseBan, draft.Phase)
	require.Len(t, draft.Available, 7)

	// out-of-turn ban conflicts, unknown map is a 400
	other := players[0].ID
	if draft.TurnHolder == other {
		other = players[1].ID
	}
	resp = doRequest(t, http.MethodPost, base+"/ban", tokens[other], map[string]string{"map": draft.Available[0]})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp = doRequest(t, http.MethodPost, base+"/ban", tokens[draft.TurnHolder], map[string]string{"map": "Atlantis"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// ban the pool down on alternating turns
	for i := 0; i < 6; i++ {
		resp = doRequest(t, http.MethodGet, base, tokens[players[0].ID], nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		decode(t, resp, &draft)
		resp = doRequest(t, http.MethodPost, base+"/ban", tokens[draft.TurnHolder], map[string]string{"map": draft.Available[0]})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	var final struct {
		Phase    domain.Phase `json:"phase"`
		FinalMap string       `json:"finalMap"`
	}
	resp = doRequest(t, http.MethodGet, base, tokens[players[0].ID], nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &final)
	assert.Equal(t, domain.PhaseDone, final.Phase)
	assert.NotEmpty(t, final.FinalMap)

	// evidence from a rostered player
	resp = doRequest(t, http.MethodPost, base+"/evidence", tokens[players[0].ID], map[string]string{"ref": "shot-1"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// settlement requires the adjudicator claim
	resp = doRequest(t, http.MethodPost, base+"/confirm", tokens[players[0].ID], map[string]string{"winner": "ct"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	adjToken := ts.Token(t, ts.Env.Config.Adjudicators[0], true)
	resp = doRequest(t, http.MethodPost, base+"/confirm", adjToken, map[string]string{"winner": "dust"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = doRequest(t, http.MethodPost, base+"/confirm", adjToken, map[string]string{"winner": "ct"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// terminal: the record is gone
	resp = doRequest(t, http.MethodGet, base, tokens[players[0].ID], nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

}
