package analysis

// ImpactAssessment 影响评估的三态字段
// YesNo为"Yes"时Level给出影响级别，为"No"时Level为空
type ImpactAssessment struct {
	YesNo string  `json:"yes_no"`
	Level *string `json:"level"`
}

// IncidentAnalysis 事件结构化分析结果
type IncidentAnalysis struct {
	Title                 string `json:"title"`
	Who                   string `json:"who"`
	What                  string `json:"what"`
	Where                 string `json:"where"`
	ImmediateAction       string `json:"immediate_action"`
	QualityConcerns       string `json:"quality_concerns"`
	QualityControls       string `json:"quality_controls"`
	RCATool               string `json:"rca_tool"`
	ExpectedInterimAction string `json:"expected_interim_action"`
	CAPA                  string `json:"capa"`

	DeviationTriage      string            `json:"deviation_triage"`
	ProductQuality       *ImpactAssessment `json:"product_quality"`
	PatientSafety        *ImpactAssessment `json:"patient_safety"`
	RegulatoryImpact     *ImpactAssessment `json:"regulatory_impact"`
	ValidationImpact     string            `json:"validation_impact"`
	CustomerNotification string            `json:"customer_notification"`
	ReviewQTA            string            `json:"review_qta"`
	Criticality          string            `json:"criticality"`
}

// InvestigationDiscussion 调查讨论部分
type InvestigationDiscussion struct {
	Timeline        string   `json:"timeline"`
	AffectedSystems []string `json:"affected_systems"`
	InitialFindings string   `json:"initial_findings"`
}

// InvestigationRootCause 根本原因分析部分
type InvestigationRootCause struct {
	PrimaryCause        string   `json:"primary_cause"`
	ContributingFactors []string `json:"contributing_factors"`
	Methodology         string   `json:"methodology"`
	Evidence            []string `json:"evidence"`
}

// InvestigationAssessment 最终评估部分
type InvestigationAssessment struct {
	ImpactAnalysis         string `json:"impact_analysis"`
	RiskEvaluation         string `json:"risk_evaluation"`
	ComplianceImplications string `json:"compliance_implications"`
	RecurrenceProbability  string `json:"recurrence_probability"`
}

// InvestigationCAPA 纠正预防措施建议部分
type InvestigationCAPA struct {
	ImmediateActions   []string `json:"immediate_actions"`
	LongTermActions    []string `json:"long_term_actions"`
	ResponsibleParties []string `json:"responsible_parties"`
	Timeline           string   `json:"timeline"`
}

// InvestigationInsights AI生成的附加洞察部分
type InvestigationInsights struct {
	PatternAnalysis           string   `json:"pattern_analysis"`
	RiskMitigation            string   `json:"risk_mitigation"`
	ProcessImprovements       []string `json:"process_improvements"`
	MonitoringRecommendations []string `json:"monitoring_recommendations"`
}

// InvestigationReport 偏差调查分析报告
type InvestigationReport struct {
	BackgroundSummary   string                  `json:"background_summary"`
	Discussion          InvestigationDiscussion `json:"discussion"`
	RootCauseAnalysis   InvestigationRootCause  `json:"root_cause_analysis"`
	FinalAssessment     InvestigationAssessment `json:"final_assessment"`
	CAPARecommendations InvestigationCAPA       `json:"capa_recommendations"`
	AIGeneratedInsights InvestigationInsights   `json:"ai_generated_insights"`
}

// QualityReview 质量审核分析结果
// 除总体评估外，各部分均为小节内的键值对
type QualityReview struct {
	OverallAssessment         string            `json:"overall_assessment"`
	InvestigationCompleteness map[string]string `json:"investigation_completeness"`
	RootCauseAnalysis         map[string]string `json:"root_cause_analysis"`
	CAPAAssessment            map[string]string `json:"capa_assessment"`
	RiskEvaluation            map[string]string `json:"risk_evaluation"`
	QualityConcerns           map[string]string `json:"quality_concerns"`
	Recommendations           map[string]string `json:"recommendations"`
}

// SMEReview 领域专家审核分析结果
type SMEReview struct {
	OverallAssessment        string            `json:"sme_overall_assessment"`
	TechnicalInvestigation   map[string]string `json:"technical_investigation_review"`
	TechnicalRootCause       map[string]string `json:"technical_root_cause_assessment"`
	TechnicalCAPAEvaluation  map[string]string `json:"technical_capa_evaluation"`
	ProcessSystemAnalysis    map[string]string `json:"process_and_system_analysis"`
	TechnicalRiskAssessment  map[string]string `json:"technical_risk_assessment"`
	TechnicalRecommendations map[string]string `json:"sme_technical_recommendations"`
}

// 附件分析字段的缺省值
const NotFoundInDocument = "Not found in document"

// AttachmentAnalysis 附件文档分析结果
type AttachmentAnalysis struct {
	SuggestedTitle  string `json:"AI suggested Title"`
	BatchRecords    string `json:"Batch records"`
	SOPs            string `json:"SOP's"`
	Forms           string `json:"Forms"`
	Interviews      string `json:"Interviews"`
	Logbooks        string `json:"Logbooks"`
	EmailReferences string `json:"Email references"`
	Certificates    string `json:"Certificates"`
}

// EmailContent 生成的邮件内容
type EmailContent struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
