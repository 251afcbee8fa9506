package analysis

import (
	"fmt"
	"strings"
)

// 事件分析的输入截断长度，避免超出模型上下文
const maxIncidentInputLen = 4000

// incidentAnalysisPrompt 构造事件结构化分析提示词
func incidentAnalysisPrompt(transcript string) string {
	if len(transcript) > maxIncidentInputLen {
		transcript = transcript[:maxIncidentInputLen]
	}

	return `
INSTRUCTIONS:
- Treat any event, referral, case, or situation in the transcript as an "incident" for the purpose of this analysis, even if it is not a pharmaceutical deviation or GMP event.
- Fill out EVERY field below using all information from the transcript (audio, document, or both).
- For the fields deviation_triage, product_quality, patient_safety, regulatory_impact, validation_impact, customer_notification, review_qta, and criticality, ALWAYS make a best-guess assessment based on your analysis, even if the transcript does not mention them.
- If a field is not explicit, infer from context or write "Not specified" (except for the above fields, which must always be filled).
- Use the JSON format for PRODUCT_QUALITY, PATIENT_SAFETY, and REGULATORY_IMPACT.
- Do NOT leave any field blank.
- Respond ONLY in the format below, no extra explanation.

===ANALYSIS START===
INCIDENT_TITLE: [Descriptive title]
WHO: [People involved, roles, departments]
WHAT: [What happened, sequence of events]
WHERE: [Location, department, facility]
IMMEDIATE_ACTION: [Immediate actions taken]
QUALITY_CONCERNS: [Quality issues, product/service impact]
QUALITY_CONTROLS: [Controls that failed or were bypassed]
RCA_TOOL: [Root cause analysis method]
EXPECTED_INTERIM_ACTION: [Actions to prevent recurrence]
CAPA: [Corrective and Preventive Actions]

DEVIATION_TRIAGE: [Yes or No]
PRODUCT_QUALITY: [If Yes, JSON: {"yes_no": "Yes", "level": "High/Medium/Low"}; if No, {"yes_no": "No", "level": null}]
PATIENT_SAFETY: [Same format as PRODUCT_QUALITY]
REGULATORY_IMPACT: [Same format as PRODUCT_QUALITY]
VALIDATION_IMPACT: [Yes or No]
CUSTOMER_NOTIFICATION: [Yes or No]
REVIEW_QTA: [Summary about QTA/customer notification]
CRITICALITY: [Minor or Major]
===ANALYSIS END===

TRANSCRIPT TO ANALYZE:
` + transcript
}

// incidentSummaryPrompt 构造事件简要摘要提示词
func incidentSummaryPrompt(transcript string) string {
	return fmt.Sprintf(`
Provide a brief 2-3 sentence summary of this incident:

%q

Focus on: what happened, who was involved, and the key concern.
`, transcript)
}

// investigationPrompt 构造偏差调查分析提示词
func investigationPrompt(context string) string {
	return fmt.Sprintf(`
Analyze the following deviation investigation context and provide comprehensive insights:

%s

Please provide analysis covering:
1. Background summary
2. Timeline and affected systems
3. Root cause analysis
4. Impact assessment
5. Corrective and preventive action recommendations
6. Risk evaluation and compliance implications

Format the response as a structured JSON analysis suitable for pharmaceutical deviation investigations.

Use this structure:
{
    "background_summary": "Investigation analysis based on provided context and deviation data",
    "discussion": {
        "timeline": "Event timeline constructed from available information",
        "affected_systems": ["Systems identified from context analysis"],
        "initial_findings": "Preliminary findings based on incident description and background"
    },
    "root_cause_analysis": {
        "primary_cause": "Root cause identified through systematic analysis",
        "contributing_factors": ["Contributing factors derived from context"],
        "methodology": "Structured root cause analysis methodology applied",
        "evidence": ["Evidence gathered from provided documentation"]
    },
    "final_assessment": {
        "impact_analysis": "Comprehensive impact assessment based on triage data",
        "risk_evaluation": "Risk evaluation considering all factors",
        "compliance_implications": "Regulatory and compliance considerations",
        "recurrence_probability": "Likelihood assessment of similar incidents"
    },
    "capa_recommendations": {
        "immediate_actions": ["Immediate corrective actions recommended"],
        "long_term_actions": ["Long-term preventive measures suggested"],
        "responsible_parties": ["Recommended responsible parties"],
        "timeline": "Suggested implementation timeline"
    },
    "ai_generated_insights": {
        "pattern_analysis": "Analysis of patterns and trends",
        "risk_mitigation": "Additional risk mitigation strategies",
        "process_improvements": ["Process improvement recommendations"],
        "monitoring_recommendations": ["Ongoing monitoring suggestions"]
    }
}
`, context)
}

// qualityReviewPrompt 构造质量审核提示词
func qualityReviewPrompt(transcript string) string {
	return fmt.Sprintf(`
You are an expert Quality Assurance reviewer in a pharmaceutical environment. Analyze the following transcribed investigation content and provide a comprehensive Quality Review assessment.

Please evaluate and provide your analysis in this EXACT format:

===QUALITY REVIEW START===
OVERALL_ASSESSMENT: [Satisfactory/Needs Improvement/Unsatisfactory - with brief justification]

INVESTIGATION_COMPLETENESS:
Investigation Status: [Complete/Incomplete/Partially Complete]
Completeness Score: [1-10 scale]
Missing Elements: [List any missing investigation elements]
Adequacy Assessment: [Detailed assessment of investigation thoroughness]

ROOT_CAUSE_ANALYSIS:
Root Cause Identified: [Yes/No/Partially]
Root Cause Quality: [Adequate/Inadequate/Needs Enhancement]
Analysis Method Used: [Identify the RCA method if mentioned]
Depth of Analysis: [Shallow/Moderate/Comprehensive]
Root Cause Statement: [Extract or summarize the root cause if provided]

CAPA_ASSESSMENT:
CAPA Actions Identified: [Yes/No/Partially]
CAPA Adequacy: [Adequate/Inadequate/Needs Enhancement]
Prevention Focus: [Strong/Moderate/Weak]
Corrective Actions: [List corrective actions mentioned]
Preventive Actions: [List preventive actions mentioned]
CAPA Effectiveness Potential: [High/Medium/Low]

RISK_EVALUATION:
Risks Discussed: [Yes/No/Partially]
Risk Assessment Quality: [Comprehensive/Moderate/Limited]
Risk Mitigation: [Adequate/Inadequate/Not Addressed]
Identified Risks: [List risks mentioned in investigation]
Mitigation Strategies: [List mitigation strategies discussed]

QUALITY_CONCERNS:
Product Impact: [Assessed/Not Assessed/Unclear]
Patient Safety: [Considered/Not Considered/Unclear]
Regulatory Compliance: [Addressed/Not Addressed/Unclear]
Quality System Impact: [Evaluated/Not Evaluated/Unclear]

RECOMMENDATIONS:
Quality Reviewer Actions: [List specific actions needed]
Follow-up Required: [List follow-up activities needed]
Additional Investigation: [Yes/No - with details if yes]
Documentation Requirements: [List additional documentation needed]
===QUALITY REVIEW END===

TRANSCRIBED INVESTIGATION CONTENT:
%q

INSTRUCTIONS:
- Be specific and provide detailed assessments
- Use pharmaceutical industry standards and GMP requirements
- If information is missing, specifically note what is lacking
- Provide actionable recommendations
- Focus on compliance and patient safety implications
`, transcript)
}

// smeReviewPrompt 构造领域专家审核提示词
func smeReviewPrompt(transcript string) string {
	return fmt.Sprintf(`
You are a Subject Matter Expert (SME) reviewer with deep technical expertise in pharmaceutical operations, manufacturing, and quality systems. Analyze the following transcribed investigation content and provide a comprehensive SME Review assessment.

Please evaluate and provide your analysis in this EXACT format:

===SME REVIEW START===
SME_OVERALL_ASSESSMENT: [Satisfactory/Needs Improvement/Unsatisfactory - with technical justification]

TECHNICAL_INVESTIGATION_REVIEW:
Investigation Methodology: [Appropriate/Inappropriate/Needs Enhancement]
Technical Depth: [Comprehensive/Moderate/Insufficient]
Scientific Approach: [Sound/Questionable/Flawed]
Data Analysis Quality: [Thorough/Adequate/Inadequate]
Investigation Scope: [Complete/Incomplete/Needs Expansion]

TECHNICAL_ROOT_CAUSE_ASSESSMENT:
Root Cause Technical Validity: [Valid/Questionable/Invalid]
Technical Evidence Supporting RCA: [Strong/Moderate/Weak]
Scientific Method Application: [Proper/Improper/Unclear]
Technical Analysis Tools Used: [List tools/methods identified]
Alternative Causes Considered: [Yes/No/Partially]

TECHNICAL_CAPA_EVALUATION:
Technical Feasibility: [High/Medium/Low]
Implementation Complexity: [Simple/Moderate/Complex]
Technical Resource Requirements: [Identified/Not Identified/Unclear]
Technology/Process Changes: [Appropriate/Inappropriate/Unclear]
Technical Risk of CAPA Implementation: [Low/Medium/High]

PROCESS_AND_SYSTEM_ANALYSIS:
Process Understanding: [Demonstrated/Limited/Not Demonstrated]
System Knowledge: [Comprehensive/Adequate/Inadequate]
Equipment Considerations: [Addressed/Not Addressed/Unclear]
Technology Factors: [Considered/Not Considered/Unclear]
Process Interaction Effects: [Evaluated/Not Evaluated/Unclear]

TECHNICAL_RISK_ASSESSMENT:
Technical Risk Identification: [Comprehensive/Partial/Inadequate]
Process Risk Evaluation: [Thorough/Moderate/Limited]
System Risk Analysis: [Complete/Incomplete/Not Performed]
Technical Risk Mitigation: [Effective/Moderate/Ineffective]
Cross-functional Impact: [Assessed/Not Assessed/Unclear]

SME_TECHNICAL_RECOMMENDATIONS:
Technical Improvements Needed: [List specific technical recommendations]
Additional Technical Investigation: [Required/Not Required/Conditional]
Expert Consultation Needed: [Yes/No - specify areas if yes]
Technical Validation Required: [List validation activities needed]
Process/System Modifications: [List recommended modifications]
===SME REVIEW END===

TRANSCRIBED INVESTIGATION CONTENT:
%q

INSTRUCTIONS:
- Apply deep technical expertise and industry best practices
- Focus on technical accuracy and scientific validity
- Identify technical gaps and provide expert recommendations
- Consider cross-functional technical impacts
- Evaluate technical feasibility of proposed solutions
- If technical information is insufficient, specify what additional data is needed
`, transcript)
}

// attachmentPrompt 构造附件文档字段提取提示词
func attachmentPrompt(extractedText string) string {
	return fmt.Sprintf(`
You are an expert document analyst. Analyze the following text and extract the following fields as a JSON object:
- 'AI suggested Title': Generate a concise and descriptive title for the document based on its content.
- 'Batch records'
- 'SOP's'
- 'Forms'
- 'Interviews'
- 'Logbooks'
- 'Email references'
- 'Certificates'

TEXT TO ANALYZE:
%s

Return ONLY a valid JSON object with these exact keys (no extra text, no explanation). If a field is not found, use 'Not found in document'.
`, extractedText)
}

// documentSummaryPrompt 构造文档摘要提示词
func documentSummaryPrompt(extractedText string) string {
	return fmt.Sprintf(`
You are an expert document analyzer specializing in pharmaceutical and quality documentation. Please analyze the following extracted document text and provide a comprehensive summary.

DOCUMENT TEXT:
%s

Provide a clear, structured summary highlighting the key points, findings, and any quality or compliance relevant information.
`, extractedText)
}

// emailSystemPrompt 邮件生成的系统提示词
const emailSystemPrompt = "You are a professional email writing assistant. Generate well-structured, appropriate emails based on the given voice input and requirements."

// emailPrompt 构造邮件生成提示词
func emailPrompt(transcript, emailType, tone, recipient string) string {
	recipientContext := ""
	if recipient != "" {
		recipientContext = fmt.Sprintf(" The recipient is: %s.", recipient)
	}

	return fmt.Sprintf(`
Based on the following voice input, please generate a professional email:

Voice Input: %q

Email Requirements:
- Type: %s
- Tone: %s
%s

Please format the response as:
Subject: [email subject]

Body:
[email body content]

Make sure the email is well-structured, appropriate for the specified tone and type, and captures the intent from the voice input.
`, transcript, emailType, tone, recipientContext)
}

// todoPrompt 构造待办列表生成提示词
func todoPrompt(text string) string {
	return fmt.Sprintf(`
Based on the following input, create a clear and actionable todo list.
Extract specific tasks and organize them logically.
Return only the todo items as a JSON array of strings.

Input: %s

Response format: ["task 1", "task 2", "task 3"]
`, text)
}

// bulletPointsSystemPrompt 要点整理的系统提示词
const bulletPointsSystemPrompt = "You are a helpful assistant that organizes text into clear bullet points."

// bulletPointsPrompt 构造语音转要点提示词
func bulletPointsPrompt(text string) string {
	return fmt.Sprintf(`
Convert the following transcribed text into clear, organized bullet points.
Focus on extracting key information, instructions, or requirements mentioned in the text.
Make each bullet point concise and actionable.

Text: %s

Return only the bullet points, one per line, starting with "•".
`, text)
}

// revisionSummaryPrompt 构造要点摘要提示词
func revisionSummaryPrompt(bulletPoints []string) string {
	return fmt.Sprintf(`
Summarize the following revision requirements into a concise paragraph that captures the intent and scope of the requested changes:

%s
`, strings.Join(bulletPoints, "\n"))
}

// applyRevisionPrompt 构造文档修订提示词
// 按修订摘要改写原文档，只返回改写后的文本
func applyRevisionPrompt(summary, documentText string) string {
	return fmt.Sprintf(`
You are an expert in document editing. Here is a summary of required changes:
SUMMARY:
%s

Here is the original document text:
DOCUMENT:
%s

Please apply the changes described in the summary to the document text. Return only the updated document text.
`, summary, documentText)
}
