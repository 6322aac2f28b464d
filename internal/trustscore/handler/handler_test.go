package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"civic/internal/trustscore/service"
	"civic/internal/trustscore/store"
	id "civic/pkg/domain"
	"civic/pkg/testutil"
)

func newRouter(evidence *store.InMemory) chi.Router {
	r := chi.NewRouter()
	New(service.New(evidence), slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func TestGetTrustScore(t *testing.T) {
	evidence := store.NewInMemory()
	pid := id.PoliticianID(uuid.New())
	evidence.RecordVote(pid, store.DecisionYes)

	rr := testutil.DoRequest(newRouter(evidence),
		testutil.NewJSONRequest(t, http.MethodGet, "/politicians/"+pid.String()+"/trust-score", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	body := testutil.DecodeJSON[map[string]any](t, rr)
	assert.Equal(t, pid.String(), body["politicianId"])
	// 60 + 50*0.6 - 0 - 2
	assert.Equal(t, float64(88), body["score"])
	inputs := body["inputs"].(map[string]any)
	assert.Nil(t, inputs["campaignFinance"])
	assert.Equal(t, float64(1), inputs["votes"].(map[string]any)["total"])
}

func TestGetTrustScore_BadID(t *testing.T) {
	rr := testutil.DoRequest(newRouter(store.NewInMemory()),
		testutil.NewJSONRequest(t, http.MethodGet, "/politicians/abc/trust-score", nil))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
}
