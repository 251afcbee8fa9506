package analysis

import (
	"encoding/json"
	"regexp"
	"strings"
)

// 结构化响应的分隔标记
const (
	incidentStartMarker = "===ANALYSIS START==="
	incidentEndMarker   = "===ANALYSIS END==="
	qualityStartMarker  = "===QUALITY REVIEW START==="
	qualityEndMarker    = "===QUALITY REVIEW END==="
	smeStartMarker      = "===SME REVIEW START==="
	smeEndMarker        = "===SME REVIEW END==="
)

// 全大写字段键的行首模式，如 INCIDENT_TITLE:
var fieldKeyPattern = regexp.MustCompile(`^([A-Z][A-Z_]+):\s*(.*)$`)

// markerContent 截取起止标记之间的内容
// 缺少任一标记时返回原文本
func markerContent(text, start, end string) string {
	if strings.Contains(text, start) && strings.Contains(text, end) {
		after := strings.SplitN(text, start, 2)[1]
		return strings.SplitN(after, end, 2)[0]
	}
	return text
}

// collapseWhitespace 将连续空白折叠为单个空格
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// parseFieldLines 按行扫描"KEY: value"格式的字段
// 不以全大写键开头的行视为上一字段的续行
func parseFieldLines(content string) map[string]string {
	fields := make(map[string]string)
	var currentKey string
	var currentValue []string

	flush := func() {
		if currentKey != "" {
			fields[currentKey] = collapseWhitespace(strings.Join(currentValue, " "))
		}
		currentKey = ""
		currentValue = nil
	}

	for _, line := range strings.Split(content, "\n") {
		if m := fieldKeyPattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			flush()
			currentKey = m[1]
			if m[2] != "" {
				currentValue = append(currentValue, m[2])
			}
			continue
		}
		if currentKey != "" && strings.TrimSpace(line) != "" {
			currentValue = append(currentValue, strings.TrimSpace(line))
		}
	}
	flush()

	return fields
}

// parseImpact 解析三态影响评估的JSON值
// 无法解析时返回nil，表示字段缺失
func parseImpact(value string) *ImpactAssessment {
	var impact ImpactAssessment
	if err := json.Unmarshal([]byte(value), &impact); err != nil {
		return nil
	}
	return &impact
}

// validIncidentText 校验响应文本是否包含有效的分析内容
// 至少命中3个必需字段标记
func validIncidentText(text string) bool {
	if len(text) < 50 {
		return false
	}
	required := []string{"INCIDENT_TITLE:", "WHO:", "WHAT:", "WHERE:"}
	found := 0
	for _, marker := range required {
		if strings.Contains(text, marker) {
			found++
		}
	}
	return found >= 3
}

// parseIncidentResponse 解析事件分析响应为结构化结果
func parseIncidentResponse(text string) *IncidentAnalysis {
	content := markerContent(text, incidentStartMarker, incidentEndMarker)
	fields := parseFieldLines(content)

	return &IncidentAnalysis{
		Title:                 fields["INCIDENT_TITLE"],
		Who:                   fields["WHO"],
		What:                  fields["WHAT"],
		Where:                 fields["WHERE"],
		ImmediateAction:       fields["IMMEDIATE_ACTION"],
		QualityConcerns:       fields["QUALITY_CONCERNS"],
		QualityControls:       fields["QUALITY_CONTROLS"],
		RCATool:               fields["RCA_TOOL"],
		ExpectedInterimAction: fields["EXPECTED_INTERIM_ACTION"],
		CAPA:                  fields["CAPA"],
		DeviationTriage:       fields["DEVIATION_TRIAGE"],
		ProductQuality:        parseImpact(fields["PRODUCT_QUALITY"]),
		PatientSafety:         parseImpact(fields["PATIENT_SAFETY"]),
		RegulatoryImpact:      parseImpact(fields["REGULATORY_IMPACT"]),
		ValidationImpact:      fields["VALIDATION_IMPACT"],
		CustomerNotification:  fields["CUSTOMER_NOTIFICATION"],
		ReviewQTA:             fields["REVIEW_QTA"],
		Criticality:           fields["CRITICALITY"],
	}
}

// validIncident 校验解析结果是否包含有意义的信息
func validIncident(a *IncidentAnalysis) bool {
	if a == nil {
		return false
	}
	title := strings.TrimSpace(a.Title)
	what := strings.TrimSpace(a.What)
	if title == "" || title == "N/A" || len(title) < 5 {
		return false
	}
	if what == "" || what == "N/A" || len(what) < 10 {
		return false
	}
	return true
}

// parseSections 按全大写小节标题切分内容
// 返回小节键到原始小节文本的映射
func parseSections(content string) map[string]string {
	sections := make(map[string]string)
	var currentKey string
	var currentLines []string

	flush := func() {
		if currentKey != "" {
			sections[currentKey] = strings.TrimSpace(strings.Join(currentLines, "\n"))
		}
		currentKey = ""
		currentLines = nil
	}

	for _, line := range strings.Split(content, "\n") {
		if m := fieldKeyPattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			flush()
			currentKey = m[1]
			if m[2] != "" {
				currentLines = append(currentLines, m[2])
			}
			continue
		}
		if currentKey != "" {
			currentLines = append(currentLines, line)
		}
	}
	flush()

	return sections
}

// parseSectionKV 将小节内容解析为键值对
// 键转为小写下划线形式
func parseSectionKV(section string) map[string]string {
	result := make(map[string]string)
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:idx]))
		key = strings.ReplaceAll(key, " ", "_")
		result[key] = strings.TrimSpace(line[idx+1:])
	}
	return result
}

// parseQualityReviewResponse 解析质量审核响应
func parseQualityReviewResponse(text string) *QualityReview {
	content := markerContent(text, qualityStartMarker, qualityEndMarker)
	sections := parseSections(content)

	return &QualityReview{
		OverallAssessment:         collapseWhitespace(sections["OVERALL_ASSESSMENT"]),
		InvestigationCompleteness: parseSectionKV(sections["INVESTIGATION_COMPLETENESS"]),
		RootCauseAnalysis:         parseSectionKV(sections["ROOT_CAUSE_ANALYSIS"]),
		CAPAAssessment:            parseSectionKV(sections["CAPA_ASSESSMENT"]),
		RiskEvaluation:            parseSectionKV(sections["RISK_EVALUATION"]),
		QualityConcerns:           parseSectionKV(sections["QUALITY_CONCERNS"]),
		Recommendations:           parseSectionKV(sections["RECOMMENDATIONS"]),
	}
}

// parseSMEReviewResponse 解析领域专家审核响应
func parseSMEReviewResponse(text string) *SMEReview {
	content := markerContent(text, smeStartMarker, smeEndMarker)
	sections := parseSections(content)

	return &SMEReview{
		OverallAssessment:        collapseWhitespace(sections["SME_OVERALL_ASSESSMENT"]),
		TechnicalInvestigation:   parseSectionKV(sections["TECHNICAL_INVESTIGATION_REVIEW"]),
		TechnicalRootCause:       parseSectionKV(sections["TECHNICAL_ROOT_CAUSE_ASSESSMENT"]),
		TechnicalCAPAEvaluation:  parseSectionKV(sections["TECHNICAL_CAPA_EVALUATION"]),
		ProcessSystemAnalysis:    parseSectionKV(sections["PROCESS_AND_SYSTEM_ANALYSIS"]),
		TechnicalRiskAssessment:  parseSectionKV(sections["TECHNICAL_RISK_ASSESSMENT"]),
		TechnicalRecommendations: parseSectionKV(sections["SME_TECHNICAL_RECOMMENDATIONS"]),
	}
}

// extractJSONBlock 提取文本中最外层的JSON对象
func extractJSONBlock(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// ensureString 将任意JSON值规整为字符串
// 列表值以分号拼接，空值回退为缺省文案
func ensureString(value any) string {
	switch v := value.(type) {
	case nil:
		return NotFoundInDocument
	case string:
		if strings.TrimSpace(v) == "" {
			return NotFoundInDocument
		}
		return v
	case []any:
		var parts []string
		for _, item := range v {
			parts = append(parts, ensureString(item))
		}
		return strings.Join(parts, "; ")
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return NotFoundInDocument
		}
		return string(data)
	}
}

// parseAttachmentResponse 解析附件分析响应
// 缺失字段填充缺省文案
func parseAttachmentResponse(text string) *AttachmentAnalysis {
	raw := make(map[string]any)
	if block, ok := extractJSONBlock(text); ok {
		json.Unmarshal([]byte(block), &raw)
	}

	get := func(key string) string {
		value, ok := raw[key]
		if !ok {
			return NotFoundInDocument
		}
		return ensureString(value)
	}

	return &AttachmentAnalysis{
		SuggestedTitle:  get("AI suggested Title"),
		BatchRecords:    get("Batch records"),
		SOPs:            get("SOP's"),
		Forms:           get("Forms"),
		Interviews:      get("Interviews"),
		Logbooks:        get("Logbooks"),
		EmailReferences: get("Email references"),
		Certificates:    get("Certificates"),
	}
}

// parseEmailResponse 解析生成的邮件内容
// 逐行扫描Subject行，其后的内容归入Body
func parseEmailResponse(text string) *EmailContent {
	var subject string
	var bodyLines []string
	subjectFound := false

	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "subject:") {
			subject = strings.TrimSpace(line[len("subject:"):])
			subjectFound = true
			continue
		}
		if subjectFound {
			if strings.ToLower(strings.TrimSpace(line)) == "body:" {
				continue
			}
			bodyLines = append(bodyLines, line)
		}
	}

	body := strings.TrimSpace(strings.Join(bodyLines, "\n"))
	if !subjectFound {
		// 无法识别格式时整体作为正文返回
		return &EmailContent{Subject: "", Body: strings.TrimSpace(text)}
	}
	return &EmailContent{Subject: subject, Body: body}
}

// 待办条目行首的编号和项目符号
var todoPrefixPattern = regexp.MustCompile(`^(\d+[.)]|[-*•])\s*`)

// parseTodoResponse 解析待办列表响应
// 优先按JSON数组解析，失败时按行切分并清理标记
func parseTodoResponse(text string) []string {
	text = strings.TrimSpace(text)

	var items []string
	if err := json.Unmarshal([]byte(text), &items); err == nil {
		return items
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "[") || strings.HasPrefix(line, "]") {
			continue
		}
		line = strings.Trim(line, `"'`)
		line = todoPrefixPattern.ReplaceAllString(line, "")
		line = strings.TrimSuffix(strings.TrimSpace(line), ",")
		line = strings.Trim(line, `"'`)
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}

// parseBulletPoints 解析要点列表响应
// 保留以项目符号开头的行，去除符号本身
func parseBulletPoints(text string) []string {
	var points []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, "•"), "-"))
		if line != "" {
			points = append(points, line)
		}
	}
	return points
}
