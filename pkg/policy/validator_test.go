package policy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newslens/newslens/pkg/config"
	"github.com/newslens/newslens/pkg/models"
)

func newTestValidator() *Validator {
	return NewValidator(config.PolicyConfig{
		DomainWhitelist: []string{"reuters.com"},
		DomainBlacklist: []string{"fakenews.example"},
	})
}

func validResponse() *models.AnalysisResponse {
	return &models.AnalysisResponse{
		Header: "Trends for 24h",
		TLDR:   "Rate policy dominated coverage over the last day.",
		Insights: []models.Insight{
			{
				Type: models.InsightFact,
				Text: "The central bank held rates steady.",
				EvidenceRefs: []models.EvidenceRef{
					{ArticleID: "a1", Date: "2026-08-25"},
				},
			},
		},
		Evidence: []models.Evidence{
			{
				Title:   "Bank holds rates",
				URL:     "https://reuters.com/markets/a1",
				Date:    "2026-08-25",
				Snippet: "The bank kept its benchmark rate unchanged.",
			},
		},
		Meta: models.Meta{Confidence: 0.8},
	}
}

func TestEnforce_ValidResponsePasses(t *testing.T) {
	v := newTestValidator()
	resp := validResponse()

	require.NoError(t, v.Enforce(resp, "en", false))
	assert.Empty(t, resp.Warnings)
	assert.Equal(t, 0.8, resp.Meta.Confidence)
}

func TestEnforce_CollectsAllViolations(t *testing.T) {
	v := newTestValidator()
	resp := validResponse()
	resp.Header = strings.Repeat("x", models.MaxHeaderLen+1)
	resp.Meta.Confidence = 1.4
	resp.Insights[0].EvidenceRefs = nil

	err := v.Enforce(resp, "en", false)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Violations, 3)
}

func TestEnforce_RejectsBadEvidenceRef(t *testing.T) {
	v := newTestValidator()

	resp := validResponse()
	resp.Insights[0].EvidenceRefs = []models.EvidenceRef{{Date: "2026-08-25"}}
	assert.Error(t, v.Enforce(resp, "en", false))

	resp = validResponse()
	resp.Insights[0].EvidenceRefs[0].Date = "25.08.2026"
	assert.Error(t, v.Enforce(resp, "en", false))
}

func TestEnforce_RejectsUnknownInsightType(t *testing.T) {
	v := newTestValidator()
	resp := validResponse()
	resp.Insights[0].Type = "speculation"

	err := v.Enforce(resp, "en", false)
	assert.ErrorContains(t, err, "unknown type")
}

func TestEnforce_LanguageMismatch(t *testing.T) {
	v := newTestValidator()

	resp := validResponse()
	assert.Error(t, v.Enforce(resp, "ru", false))

	resp = validResponse()
	resp.Header = "Тренды за 24 часа"
	resp.TLDR = "Ставки остались без изменений."
	require.NoError(t, v.Enforce(resp, "ru", false))
}

func TestEnforce_MasksPIIAndWarns(t *testing.T) {
	v := newTestValidator()
	resp := validResponse()
	resp.TLDR = "Contact leaked as jane@example.com in the filings."

	require.NoError(t, v.Enforce(resp, "en", false))
	assert.Contains(t, resp.TLDR, "[REDACTED_EMAIL]")
	assert.Contains(t, resp.Warnings, "pii_masked:email")
}

func TestEnforce_DropsBlacklistedEvidence(t *testing.T) {
	v := newTestValidator()
	resp := validResponse()
	resp.Evidence = append(resp.Evidence, models.Evidence{
		Title:   "Fabricated story",
		URL:     "https://fakenews.example/hoax",
		Date:    "2026-08-25",
		Snippet: "Entirely made up.",
	})

	require.NoError(t, v.Enforce(resp, "en", false))
	require.Len(t, resp.Evidence, 1)
	assert.Equal(t, "Bank holds rates", resp.Evidence[0].Title)
	assert.Contains(t, resp.Warnings, "evidence_dropped_blacklisted")
}

func TestEnforce_BlacklistedRefsDroppedFromInsights(t *testing.T) {
	v := newTestValidator()
	resp := validResponse()
	resp.Insights[0].EvidenceRefs = []models.EvidenceRef{
		{URL: "https://reuters.com/markets/a1", Date: "2026-08-25"},
		{URL: "https://fakenews.example/story", Date: "2026-08-25"},
	}

	require.NoError(t, v.Enforce(resp, "en", false))
	require.Len(t, resp.Insights[0].EvidenceRefs, 1)
	assert.Equal(t, "https://reuters.com/markets/a1", resp.Insights[0].EvidenceRefs[0].URL)
	assert.Contains(t, resp.Warnings, "evidence_dropped_blacklisted")
}

func TestEnforce_BlacklistEmptyingRefsFailsValidation(t *testing.T) {
	v := newTestValidator()
	resp := validResponse()
	resp.Insights[0].EvidenceRefs = []models.EvidenceRef{
		{URL: "https://fakenews.example/story", Date: "2026-08-25"},
	}

	err := v.Enforce(resp, "en", false)
	assert.ErrorContains(t, err, "no evidence refs")
}

func TestEnforce_BareArticleEvidenceUnscored(t *testing.T) {
	v := newTestValidator()
	resp := validResponse()
	resp.Evidence[0].URL = ""
	resp.Evidence[0].ArticleID = "a1"

	require.NoError(t, v.Enforce(resp, "en", false))
	require.Len(t, resp.Evidence, 1)
	assert.Equal(t, 0.8, resp.Meta.Confidence)
}

func TestEnforce_RefCheckRelaxedWithoutRetrieval(t *testing.T) {
	v := newTestValidator()
	resp := validResponse()
	resp.Evidence = nil
	resp.Insights[0].EvidenceRefs = nil

	require.NoError(t, v.Enforce(resp, "en", true))
}

func TestEnforce_ConfidenceScaledByTrust(t *testing.T) {
	v := newTestValidator()
	resp := validResponse()
	resp.Evidence = append(resp.Evidence, models.Evidence{
		Title:   "Local coverage",
		URL:     "https://some-local-paper.net/a2",
		Date:    "2026-08-25",
		Snippet: "Additional reporting.",
	})

	require.NoError(t, v.Enforce(resp, "en", false))
	assert.InDelta(t, 0.8*0.7, resp.Meta.Confidence, 1e-9)
}

func TestCheckUnknownFields(t *testing.T) {
	valid := []byte(`{"header":"h","tldr":"t","insights":[],"evidence":[],"result":null,"meta":{},"warnings":[]}`)
	assert.NoError(t, CheckUnknownFields(valid))

	extra := []byte(`{"header":"h","teaser":"nope"}`)
	err := CheckUnknownFields(extra)
	assert.ErrorContains(t, err, "teaser")

	assert.Error(t, CheckUnknownFields([]byte(`[1,2,3]`)))
}
