package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	resultsengine "agora/contexts/governance/results-engine"
	resultshttp "agora/contexts/governance/results-engine/transport/http"
)

func newTestServer(t *testing.T, enablePreview bool) *httptest.Server {
	t.Helper()
	module := resultsengine.NewInMemoryModule(nil, nil)
	server := New(module, nil, ":0", enablePreview)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path string, body any, out any) int {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			t.Fatalf("encode request failed: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &payload)
	if err != nil {
		t.Fatalf("build request failed: %v", err)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response for %s %s failed: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestElectionAPILifecycle(t *testing.T) {
	ts := newTestServer(t, true)

	var election resultshttp.ElectionResponse
	status := doJSON(t, ts, http.MethodPost, "/api/elections/v1/elections", resultshttp.CreateElectionRequest{
		Name: "Board Elections 2026",
		Positions: []resultshttp.PositionRequest{
			{Name: "President", SeatCount: 1},
		},
	}, &election)
	if status != http.StatusCreated {
		t.Fatalf("create returned %d", status)
	}
	if election.Status != "draft" || len(election.Positions) != 1 {
		t.Fatalf("unexpected election response: %+v", election)
	}
	base := "/api/elections/v1/elections/" + election.ElectionID
	positionID := election.Positions[0].PositionID

	var opened resultshttp.ElectionResponse
	if status := doJSON(t, ts, http.MethodPost, base+"/open", nil, &opened); status != http.StatusOK {
		t.Fatalf("open returned %d", status)
	}
	if opened.Status != "open" || opened.OpensAt == "" {
		t.Fatalf("unexpected opened election: %+v", opened)
	}

	var registration resultshttp.RegistrationResponse
	if status := doJSON(t, ts, http.MethodPost, base+"/registrations", resultshttp.RegisterCandidateRequest{
		UserID:                "alice",
		DisplayName:           "Alice",
		FirstChoicePositionID: positionID,
	}, &registration); status != http.StatusCreated {
		t.Fatalf("register returned %d", status)
	}

	ballotPath := base + "/positions/" + positionID + "/ballots"
	var ballot resultshttp.BallotResponse
	if status := doJSON(t, ts, http.MethodPost, ballotPath, resultshttp.CastBallotRequest{
		VoterID:    "v1",
		Selections: []string{"alice"},
	}, &ballot); status != http.StatusCreated {
		t.Fatalf("cast returned %d", status)
	}
	var recast resultshttp.BallotResponse
	if status := doJSON(t, ts, http.MethodPost, ballotPath, resultshttp.CastBallotRequest{
		VoterID:    "v1",
		Selections: []string{"alice"},
	}, &recast); status != http.StatusOK {
		t.Fatalf("recast returned %d", status)
	}
	if !recast.WasUpdate || recast.BallotID != ballot.BallotID {
		t.Fatalf("recast must update the same ballot: %+v", recast)
	}

	var preview resultshttp.ReportResponse
	if status := doJSON(t, ts, http.MethodGet, base+"/results/preview", nil, &preview); status != http.StatusOK {
		t.Fatalf("preview returned %d", status)
	}
	if len(preview.Positions) != 1 || preview.Positions[0].Candidates[0].Status != "winner" {
		t.Fatalf("unexpected preview: %+v", preview)
	}

	// The final report is not available until close.
	var notReady resultshttp.ErrorResponse
	if status := doJSON(t, ts, http.MethodGet, base+"/results", nil, &notReady); status != http.StatusNotFound {
		t.Fatalf("results before close returned %d", status)
	}
	if notReady.Code != "report_not_ready" {
		t.Fatalf("unexpected error code: %+v", notReady)
	}

	var report resultshttp.ReportResponse
	if status := doJSON(t, ts, http.MethodPost, base+"/close", nil, &report); status != http.StatusOK {
		t.Fatalf("close returned %d", status)
	}
	if report.ElectionID != election.ElectionID || report.GeneratedAt == "" {
		t.Fatalf("unexpected close report: %+v", report)
	}

	var final resultshttp.ReportResponse
	if status := doJSON(t, ts, http.MethodGet, base+"/results", nil, &final); status != http.StatusOK {
		t.Fatalf("results returned %d", status)
	}
	if final.GeneratedAt != report.GeneratedAt {
		t.Fatalf("final report must be the close-time snapshot")
	}

	var list resultshttp.ElectionListResponse
	if status := doJSON(t, ts, http.MethodGet, "/api/elections/v1/elections", nil, &list); status != http.StatusOK {
		t.Fatalf("list returned %d", status)
	}
	if len(list.Items) != 1 || list.Items[0].Status != "closed" {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestElectionAPIErrorMapping(t *testing.T) {
	ts := newTestServer(t, true)

	var errResp resultshttp.ErrorResponse
	if status := doJSON(t, ts, http.MethodGet, "/api/elections/v1/elections/missing", nil, &errResp); status != http.StatusNotFound {
		t.Fatalf("unknown election returned %d", status)
	}
	if errResp.Code != "election_not_found" {
		t.Fatalf("unexpected error code: %+v", errResp)
	}

	if status := doJSON(t, ts, http.MethodPost, "/api/elections/v1/elections", resultshttp.CreateElectionRequest{
		Name: "No Positions",
	}, &errResp); status != http.StatusBadRequest {
		t.Fatalf("create without positions returned %d", status)
	}

	var election resultshttp.ElectionResponse
	if status := doJSON(t, ts, http.MethodPost, "/api/elections/v1/elections", resultshttp.CreateElectionRequest{
		Name:      "Guard",
		Positions: []resultshttp.PositionRequest{{Name: "Chair", SeatCount: 1}},
	}, &election); status != http.StatusCreated {
		t.Fatalf("create returned %d", status)
	}
	base := "/api/elections/v1/elections/" + election.ElectionID

	if status := doJSON(t, ts, http.MethodPost, base+"/registrations", resultshttp.RegisterCandidateRequest{
		UserID:                "alice",
		DisplayName:           "Alice",
		FirstChoicePositionID: election.Positions[0].PositionID,
	}, &errResp); status != http.StatusConflict {
		t.Fatalf("registration on draft returned %d", status)
	}
	if errResp.Code != "invalid_state" {
		t.Fatalf("unexpected error code: %+v", errResp)
	}
}

func TestPreviewDisabledReturnsNotFound(t *testing.T) {
	ts := newTestServer(t, false)

	var election resultshttp.ElectionResponse
	if status := doJSON(t, ts, http.MethodPost, "/api/elections/v1/elections", resultshttp.CreateElectionRequest{
		Name:      "No Preview",
		Positions: []resultshttp.PositionRequest{{Name: "Chair", SeatCount: 1}},
	}, &election); status != http.StatusCreated {
		t.Fatalf("create returned %d", status)
	}

	var errResp resultshttp.ErrorResponse
	path := "/api/elections/v1/elections/" + election.ElectionID + "/results/preview"
	if status := doJSON(t, ts, http.MethodGet, path, nil, &errResp); status != http.StatusNotFound {
		t.Fatalf("disabled preview returned %d", status)
	}
	if errResp.Code != "preview_disabled" {
		t.Fatalf("unexpected error code: %+v", errResp)
	}
}
