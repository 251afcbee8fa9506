package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleIncidentResponse = `===ANALYSIS START===
INCIDENT_TITLE: Temperature excursion in cold storage unit B
WHO: Warehouse operator John, QA supervisor Mary
WHAT: Cold storage unit B exceeded 8 degrees for 45 minutes
during the night shift due to a compressor fault.
WHERE: Warehouse B, cold storage area
IMMEDIATE_ACTION: Product quarantined and unit serviced
QUALITY_CONCERNS: Potential impact on temperature-sensitive batches
QUALITY_CONTROLS: Continuous temperature monitoring alarm
RCA_TOOL: 5 Whys
EXPECTED_INTERIM_ACTION: Hourly manual temperature checks
CAPA: Replace compressor and validate alarm escalation

DEVIATION_TRIAGE: Yes
PRODUCT_QUALITY: {"yes_no": "Yes", "level": "High"}
PATIENT_SAFETY: {"yes_no": "No", "level": null}
REGULATORY_IMPACT: {"yes_no": "Yes", "level": "Medium"}
VALIDATION_IMPACT: No
CUSTOMER_NOTIFICATION: Yes
REVIEW_QTA: Customer notification required per QTA section 4.2
CRITICALITY: Major
===ANALYSIS END===`

func TestParseIncidentResponse(t *testing.T) {
	result := parseIncidentResponse(sampleIncidentResponse)

	assert.Equal(t, "Temperature excursion in cold storage unit B", result.Title)
	assert.Equal(t, "Warehouse operator John, QA supervisor Mary", result.Who)
	assert.Equal(t,
		"Cold storage unit B exceeded 8 degrees for 45 minutes during the night shift due to a compressor fault.",
		result.What, "跨行的字段值应折叠为单行")
	assert.Equal(t, "Warehouse B, cold storage area", result.Where)
	assert.Equal(t, "5 Whys", result.RCATool)
	assert.Equal(t, "Yes", result.DeviationTriage)
	assert.Equal(t, "Major", result.Criticality)

	require.NotNil(t, result.ProductQuality)
	assert.Equal(t, "Yes", result.ProductQuality.YesNo)
	require.NotNil(t, result.ProductQuality.Level)
	assert.Equal(t, "High", *result.ProductQuality.Level)

	require.NotNil(t, result.PatientSafety)
	assert.Equal(t, "No", result.PatientSafety.YesNo)
	assert.Nil(t, result.PatientSafety.Level, "No的影响评估level应为空")

	require.NotNil(t, result.RegulatoryImpact)
	assert.Equal(t, "Medium", *result.RegulatoryImpact.Level)
}

func TestParseIncidentResponseWithoutMarkers(t *testing.T) {
	// 缺少起止标记时按原文解析
	text := "INCIDENT_TITLE: Labeling mix-up on line 3\nWHO: Line operator\nWHAT: Two label rolls were swapped during changeover on the line.\nWHERE: Packaging line 3"
	result := parseIncidentResponse(text)
	assert.Equal(t, "Labeling mix-up on line 3", result.Title)
	assert.Equal(t, "Packaging line 3", result.Where)
}

func TestParseImpactInvalidJSON(t *testing.T) {
	assert.Nil(t, parseImpact("Yes, high impact"), "非JSON的影响评估值应解析为nil")
	assert.Nil(t, parseImpact(""))
}

func TestValidIncidentText(t *testing.T) {
	assert.True(t, validIncidentText(sampleIncidentResponse))
	assert.False(t, validIncidentText("too short"))
	assert.False(t, validIncidentText(
		"INCIDENT_TITLE: something happened but nothing else was provided in this response at all"),
		"必需标记不足3个时应判定无效")
}

func TestValidIncident(t *testing.T) {
	valid := &IncidentAnalysis{
		Title: "Temperature excursion",
		What:  "Unit exceeded limits during the night shift",
	}
	assert.True(t, validIncident(valid))

	assert.False(t, validIncident(nil))
	assert.False(t, validIncident(&IncidentAnalysis{Title: "N/A", What: valid.What}))
	assert.False(t, validIncident(&IncidentAnalysis{Title: "abc", What: valid.What}), "过短的标题应判定无效")
	assert.False(t, validIncident(&IncidentAnalysis{Title: valid.Title, What: "short"}))
}

const sampleQualityResponse = `Here is my assessment:
===QUALITY REVIEW START===
OVERALL_ASSESSMENT: Needs Improvement - investigation lacks depth

INVESTIGATION_COMPLETENESS:
Investigation Status: Partially Complete
Completeness Score: 6
Missing Elements: Interview records, equipment logs
Adequacy Assessment: Moderate thoroughness with gaps

ROOT_CAUSE_ANALYSIS:
Root Cause Identified: Partially
Analysis Method Used: Fishbone diagram

CAPA_ASSESSMENT:
CAPA Adequacy: Needs Enhancement

RISK_EVALUATION:
Risks Discussed: Yes

QUALITY_CONCERNS:
Patient Safety: Considered

RECOMMENDATIONS:
Follow-up Required: Verify compressor replacement
===QUALITY REVIEW END===`

func TestParseQualityReviewResponse(t *testing.T) {
	result := parseQualityReviewResponse(sampleQualityResponse)

	assert.Equal(t, "Needs Improvement - investigation lacks depth", result.OverallAssessment)
	assert.Equal(t, "Partially Complete", result.InvestigationCompleteness["investigation_status"],
		"小节键应转为小写下划线形式")
	assert.Equal(t, "6", result.InvestigationCompleteness["completeness_score"])
	assert.Equal(t, "Fishbone diagram", result.RootCauseAnalysis["analysis_method_used"])
	assert.Equal(t, "Needs Enhancement", result.CAPAAssessment["capa_adequacy"])
	assert.Equal(t, "Considered", result.QualityConcerns["patient_safety"])
	assert.Equal(t, "Verify compressor replacement", result.Recommendations["follow-up_required"])
}

const sampleSMEResponse = `===SME REVIEW START===
SME_OVERALL_ASSESSMENT: Satisfactory - technically sound approach

TECHNICAL_INVESTIGATION_REVIEW:
Investigation Methodology: Appropriate
Technical Depth: Comprehensive

TECHNICAL_ROOT_CAUSE_ASSESSMENT:
Root Cause Technical Validity: Valid

TECHNICAL_CAPA_EVALUATION:
Technical Feasibility: High

PROCESS_AND_SYSTEM_ANALYSIS:
Process Understanding: Demonstrated

TECHNICAL_RISK_ASSESSMENT:
Technical Risk Identification: Comprehensive

SME_TECHNICAL_RECOMMENDATIONS:
Expert Consultation Needed: No
===SME REVIEW END===`

func TestParseSMEReviewResponse(t *testing.T) {
	result := parseSMEReviewResponse(sampleSMEResponse)

	assert.Equal(t, "Satisfactory - technically sound approach", result.OverallAssessment)
	assert.Equal(t, "Appropriate", result.TechnicalInvestigation["investigation_methodology"])
	assert.Equal(t, "Valid", result.TechnicalRootCause["root_cause_technical_validity"])
	assert.Equal(t, "High", result.TechnicalCAPAEvaluation["technical_feasibility"])
	assert.Equal(t, "No", result.TechnicalRecommendations["expert_consultation_needed"])
}

func TestParseAttachmentResponse(t *testing.T) {
	t.Run("CompleteJSON", func(t *testing.T) {
		response := `Here is the analysis:
{
  "AI suggested Title": "Batch Production Record Review",
  "Batch records": ["BR-2024-001", "BR-2024-002"],
  "SOP's": "SOP-QA-101",
  "Forms": "Not found in document",
  "Interviews": "Operator interview dated 2024-03-01",
  "Logbooks": "Equipment logbook EQ-12",
  "Email references": "Not found in document",
  "Certificates": "CoA 20240215"
}`
		result := parseAttachmentResponse(response)
		assert.Equal(t, "Batch Production Record Review", result.SuggestedTitle)
		assert.Equal(t, "BR-2024-001; BR-2024-002", result.BatchRecords, "列表值应以分号拼接")
		assert.Equal(t, "SOP-QA-101", result.SOPs)
		assert.Equal(t, NotFoundInDocument, result.Forms)
	})

	t.Run("MissingFieldsGetDefaults", func(t *testing.T) {
		result := parseAttachmentResponse(`{"AI suggested Title": "Short memo"}`)
		assert.Equal(t, "Short memo", result.SuggestedTitle)
		assert.Equal(t, NotFoundInDocument, result.BatchRecords)
		assert.Equal(t, NotFoundInDocument, result.Certificates)
	})

	t.Run("UnparseableResponse", func(t *testing.T) {
		result := parseAttachmentResponse("no json here at all")
		assert.Equal(t, NotFoundInDocument, result.SuggestedTitle, "无法解析时所有字段应为缺省文案")
	})
}

func TestParseEmailResponse(t *testing.T) {
	t.Run("SubjectAndBody", func(t *testing.T) {
		response := `Subject: Deviation DEV-2024-015 status update

Body:
Dear team,

The investigation is on track for closure by Friday.

Best regards`
		result := parseEmailResponse(response)
		assert.Equal(t, "Deviation DEV-2024-015 status update", result.Subject)
		assert.Contains(t, result.Body, "Dear team,")
		assert.NotContains(t, result.Body, "Body:", "Body:标记行不应进入正文")
	})

	t.Run("NoSubjectLine", func(t *testing.T) {
		result := parseEmailResponse("Just a plain reply without structure.")
		assert.Equal(t, "", result.Subject)
		assert.Equal(t, "Just a plain reply without structure.", result.Body)
	})
}

func TestParseTodoResponse(t *testing.T) {
	t.Run("JSONArray", func(t *testing.T) {
		items := parseTodoResponse(`["Review batch record", "Schedule CAPA meeting", "Update SOP"]`)
		require.Len(t, items, 3)
		assert.Equal(t, "Review batch record", items[0])
	})

	t.Run("LineFallback", func(t *testing.T) {
		response := `1. Review batch record
2) Schedule CAPA meeting
- Update SOP
* Notify customer`
		items := parseTodoResponse(response)
		require.Len(t, items, 4, "JSON解析失败时应按行切分")
		assert.Equal(t, "Review batch record", items[0])
		assert.Equal(t, "Schedule CAPA meeting", items[1])
		assert.Equal(t, "Update SOP", items[2])
		assert.Equal(t, "Notify customer", items[3])
	})

	t.Run("BracketLinesSkipped", func(t *testing.T) {
		response := "[\n\"Review record\",\n]"
		items := parseTodoResponse(response)
		require.Len(t, items, 1)
		assert.Equal(t, "Review record", items[0], "引号和尾逗号应被清理")
	})
}

func TestParseBulletPoints(t *testing.T) {
	response := `• Update section 3.1 notification window to 5 days
• Add supplier audit requirement
- Remove obsolete appendix B`
	points := parseBulletPoints(response)
	require.Len(t, points, 3)
	assert.Equal(t, "Update section 3.1 notification window to 5 days", points[0])
	assert.Equal(t, "Remove obsolete appendix B", points[2])
}

func TestExtractJSONBlock(t *testing.T) {
	block, ok := extractJSONBlock(`prefix {"a": 1} suffix`)
	require.True(t, ok)
	assert.Equal(t, `{"a": 1}`, block)

	_, ok = extractJSONBlock("no braces")
	assert.False(t, ok)
}
