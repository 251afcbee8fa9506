package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartqms/ai-analysis-api/internal/llm"
)

// scriptedClient 按预设响应回答的模拟大模型客户端
type scriptedClient struct {
	response string
	err      error
	prompts  []string
}

func (c *scriptedClient) Generate(ctx context.Context, prompt string, options ...llm.GenerateOption) (*llm.Response, error) {
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return nil, c.err
	}
	return &llm.Response{Text: c.response, ModelName: "scripted", FinishTime: time.Now()}, nil
}

func (c *scriptedClient) Chat(ctx context.Context, messages []llm.Message, options ...llm.ChatOption) (*llm.Response, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &llm.Response{Text: c.response}, nil
}

func (c *scriptedClient) Name() string {
	return "scripted"
}

func TestNewAnalyzer(t *testing.T) {
	_, err := NewAnalyzer(nil)
	require.Error(t, err, "缺少模型客户端应返回错误")

	analyzer, err := NewAnalyzer(&scriptedClient{})
	require.NoError(t, err)
	assert.NotNil(t, analyzer)
}

func TestAnalyzeIncident(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client := &scriptedClient{response: sampleIncidentResponse}
		analyzer, err := NewAnalyzer(client)
		require.NoError(t, err)

		result, err := analyzer.AnalyzeIncident(context.Background(), "operator reported a temperature excursion")
		require.NoError(t, err)
		assert.Equal(t, "Temperature excursion in cold storage unit B", result.Title)
		assert.Equal(t, "Major", result.Criticality)

		require.Len(t, client.prompts, 1)
		assert.Contains(t, client.prompts[0], "operator reported a temperature excursion",
			"转写文本应进入提示词")
	})

	t.Run("EmptyTranscript", func(t *testing.T) {
		analyzer, err := NewAnalyzer(&scriptedClient{})
		require.NoError(t, err)

		_, err = analyzer.AnalyzeIncident(context.Background(), "  ")
		require.Error(t, err)
	})

	t.Run("MalformedResponse", func(t *testing.T) {
		client := &scriptedClient{response: "I cannot analyze this."}
		analyzer, err := NewAnalyzer(client)
		require.NoError(t, err)

		_, err = analyzer.AnalyzeIncident(context.Background(), "some transcript")
		require.Error(t, err, "缺少必需标记的响应应返回错误")
	})

	t.Run("ClientError", func(t *testing.T) {
		client := &scriptedClient{err: errors.New("model unavailable")}
		analyzer, err := NewAnalyzer(client)
		require.NoError(t, err)

		_, err = analyzer.AnalyzeIncident(context.Background(), "some transcript")
		require.Error(t, err)
	})

	t.Run("LongTranscriptTruncated", func(t *testing.T) {
		client := &scriptedClient{response: sampleIncidentResponse}
		analyzer, err := NewAnalyzer(client)
		require.NoError(t, err)

		long := make([]byte, 10000)
		for i := range long {
			long[i] = 'a'
		}
		_, err = analyzer.AnalyzeIncident(context.Background(), string(long))
		require.NoError(t, err)
		assert.Less(t, len(client.prompts[0]), 8000, "超长转写文本应被截断后再进入提示词")
	})
}

func TestAnalyzeInvestigation(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client := &scriptedClient{response: `Analysis follows:
{
  "background_summary": "Filter integrity failure during media fill",
  "discussion": {
    "timeline": "Detected at 02:15 during routine check",
    "affected_systems": ["Filtration skid A", "Media prep tank"],
    "initial_findings": "Pre-use integrity test was skipped"
  },
  "root_cause_analysis": {
    "primary_cause": "Procedure step omitted under time pressure",
    "contributing_factors": ["Inadequate staffing", "Unclear SOP step"],
    "methodology": "5 Whys",
    "evidence": ["Batch record entry", "Interview notes"]
  },
  "final_assessment": {
    "impact_analysis": "Single batch affected",
    "risk_evaluation": "Medium",
    "compliance_implications": "Annex 1 media fill requirements",
    "recurrence_probability": "Low after CAPA"
  },
  "capa_recommendations": {
    "immediate_actions": ["Quarantine batch"],
    "long_term_actions": ["Revise SOP", "Add checklist"],
    "responsible_parties": ["QA", "Production"],
    "timeline": "30 days"
  },
  "ai_generated_insights": {
    "pattern_analysis": "Second similar event this year",
    "risk_mitigation": "Electronic batch record enforcement",
    "process_improvements": ["Barcode-verified steps"],
    "monitoring_recommendations": ["Trend integrity test failures"]
  }
}`}
		analyzer, err := NewAnalyzer(client)
		require.NoError(t, err)

		report, err := analyzer.AnalyzeInvestigation(context.Background(), "media fill deviation context")
		require.NoError(t, err)
		assert.Equal(t, "Filter integrity failure during media fill", report.BackgroundSummary)
		assert.Equal(t, []string{"Filtration skid A", "Media prep tank"}, report.Discussion.AffectedSystems)
		assert.Equal(t, "5 Whys", report.RootCauseAnalysis.Methodology)
		assert.Equal(t, "30 days", report.CAPARecommendations.Timeline)
	})

	t.Run("NoJSONInResponse", func(t *testing.T) {
		client := &scriptedClient{response: "plain text analysis without structure"}
		analyzer, err := NewAnalyzer(client)
		require.NoError(t, err)

		_, err = analyzer.AnalyzeInvestigation(context.Background(), "context")
		require.Error(t, err, "响应中无JSON对象时应返回错误")
	})
}

func TestQualityAndSMEReview(t *testing.T) {
	t.Run("QualityReview", func(t *testing.T) {
		client := &scriptedClient{response: sampleQualityResponse}
		analyzer, err := NewAnalyzer(client)
		require.NoError(t, err)

		review, err := analyzer.QualityReview(context.Background(), "investigation transcript")
		require.NoError(t, err)
		assert.Equal(t, "Needs Improvement - investigation lacks depth", review.OverallAssessment)
	})

	t.Run("SMEReview", func(t *testing.T) {
		client := &scriptedClient{response: sampleSMEResponse}
		analyzer, err := NewAnalyzer(client)
		require.NoError(t, err)

		review, err := analyzer.SMEReview(context.Background(), "investigation transcript")
		require.NoError(t, err)
		assert.Equal(t, "Satisfactory - technically sound approach", review.OverallAssessment)
	})
}

func TestGenerateEmail(t *testing.T) {
	client := &scriptedClient{response: "Subject: Meeting follow-up\n\nBody:\nThanks for the discussion today."}
	analyzer, err := NewAnalyzer(client)
	require.NoError(t, err)

	email, err := analyzer.GenerateEmail(context.Background(),
		"remind the team about friday deadline", "general", "professional", "QA team")
	require.NoError(t, err)
	assert.Equal(t, "Meeting follow-up", email.Subject)
	assert.Equal(t, "Thanks for the discussion today.", email.Body)
	assert.Contains(t, client.prompts[0], "The recipient is: QA team.", "收件人上下文应进入提示词")
}

func TestGenerateTodoList(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client := &scriptedClient{response: `["Call supplier", "File deviation report"]`}
		analyzer, err := NewAnalyzer(client)
		require.NoError(t, err)

		items, err := analyzer.GenerateTodoList(context.Background(), "call the supplier and file the report")
		require.NoError(t, err)
		assert.Equal(t, []string{"Call supplier", "File deviation report"}, items)
	})

	t.Run("EmptyResult", func(t *testing.T) {
		client := &scriptedClient{response: "   "}
		analyzer, err := NewAnalyzer(client)
		require.NoError(t, err)

		_, err = analyzer.GenerateTodoList(context.Background(), "something")
		require.Error(t, err, "解析不出任何条目时应返回错误")
	})
}

func TestBulletPointsAndRevisionSummary(t *testing.T) {
	t.Run("BulletPoints", func(t *testing.T) {
		client := &scriptedClient{response: "• Change notification window\n• Add audit clause"}
		analyzer, err := NewAnalyzer(client)
		require.NoError(t, err)

		points, err := analyzer.BulletPoints(context.Background(), "please change the notification window and add an audit clause")
		require.NoError(t, err)
		assert.Equal(t, []string{"Change notification window", "Add audit clause"}, points)
	})

	t.Run("RevisionSummary", func(t *testing.T) {
		client := &scriptedClient{response: "The revision updates notification and audit requirements."}
		analyzer, err := NewAnalyzer(client)
		require.NoError(t, err)

		summary, err := analyzer.SummarizeRevision(context.Background(), []string{"point one", "point two"})
		require.NoError(t, err)
		assert.Equal(t, "The revision updates notification and audit requirements.", summary)
	})

	t.Run("EmptyBulletPoints", func(t *testing.T) {
		analyzer, err := NewAnalyzer(&scriptedClient{})
		require.NoError(t, err)

		_, err = analyzer.SummarizeRevision(context.Background(), nil)
		require.Error(t, err)
	})
}

func TestAnalyzeAttachment(t *testing.T) {
	client := &scriptedClient{response: `{"AI suggested Title": "Cleaning validation protocol", "SOP's": ["SOP-001", "SOP-002"]}`}
	analyzer, err := NewAnalyzer(client)
	require.NoError(t, err)

	result, err := analyzer.AnalyzeAttachment(context.Background(), "extracted document text")
	require.NoError(t, err)
	assert.Equal(t, "Cleaning validation protocol", result.SuggestedTitle)
	assert.Equal(t, "SOP-001; SOP-002", result.SOPs)
	assert.Equal(t, NotFoundInDocument, result.BatchRecords)
}

func TestApplyRevision(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client := &scriptedClient{response: "Updated agreement text with new notification window."}
		analyzer, err := NewAnalyzer(client)
		require.NoError(t, err)

		updated, err := analyzer.ApplyRevision(context.Background(), "change the notification window to 48 hours", "Original agreement text.")
		require.NoError(t, err)
		assert.Equal(t, "Updated agreement text with new notification window.", updated)

		require.Len(t, client.prompts, 1)
		assert.Contains(t, client.prompts[0], "change the notification window to 48 hours")
		assert.Contains(t, client.prompts[0], "Original agreement text.")
	})

	t.Run("EmptyInputs", func(t *testing.T) {
		analyzer, err := NewAnalyzer(&scriptedClient{})
		require.NoError(t, err)

		_, err = analyzer.ApplyRevision(context.Background(), "", "document")
		require.Error(t, err, "缺少修订摘要应返回错误")

		_, err = analyzer.ApplyRevision(context.Background(), "summary", "")
		require.Error(t, err, "缺少文档文本应返回错误")
	})

	t.Run("EmptyModelOutput", func(t *testing.T) {
		analyzer, err := NewAnalyzer(&scriptedClient{response: "  "})
		require.NoError(t, err)

		_, err = analyzer.ApplyRevision(context.Background(), "summary", "document")
		require.Error(t, err)
	})
}
