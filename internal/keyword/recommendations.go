package keyword

import (
	"strings"

	"resume-gap-go/pkg/types"
)

const (
	lowCoverageThreshold      = 60.0
	moderateCoverageThreshold = 80.0

	msgLowCoverage      = "Your resume has low keyword coverage. Consider adding more relevant skills and experiences."
	msgModerateCoverage = "Your resume has moderate keyword coverage. Focus on adding missing high-priority skills."
	msgGreatCoverage    = "Great keyword coverage! Focus on optimizing your existing content."

	msgNoExperience   = "Add relevant work experience or internships to your resume"
	msgNoProjects     = "Include personal or academic projects that demonstrate relevant skills"
	msgNotQuantified  = "Add quantified achievements (numbers, percentages, metrics) to your work experience"
	msgOrganizeSkills = "Consider organizing skills by category (Programming Languages, Frameworks, Tools, etc.)"
	msgAddProjects    = "Add personal or academic projects that demonstrate relevant technical skills"
)

// categoryPrefix 分类缺失建议的前缀
var categoryPrefix = map[types.Category]string{
	types.CategoryTechnicalSkill: "Add these technical skills: ",
	types.CategorySoftSkill:      "Add these soft skills: ",
	types.CategoryToolTechnology: "Add these tools/technologies: ",
}

// CoverageMessage 根据覆盖率返回对应档位的提示
func CoverageMessage(percentage float64) string {
	switch {
	case percentage < lowCoverageThreshold:
		return msgLowCoverage
	case percentage < moderateCoverageThreshold:
		return msgModerateCoverage
	default:
		return msgGreatCoverage
	}
}

func (a *Analyzer) recommendations(gap types.GapAnalysis, resume types.ResumeData) []string {
	recs := []string{CoverageMessage(gap.CoveragePercentage)}

	for _, category := range types.Categories {
		missing := gap.MissingIn(category)
		if len(missing) == 0 {
			continue
		}
		top := topByRelevance(missing, a.topMissing)
		recs = append(recs, categoryPrefix[category]+joinKeywords(top))
	}

	if len(resume.WorkExperience) == 0 {
		recs = append(recs, msgNoExperience)
	}
	if len(resume.Projects) == 0 {
		recs = append(recs, msgNoProjects)
	}
	if len(resume.WorkExperience) > 0 && !resume.HasQuantifiedAchievements() {
		recs = append(recs, msgNotQuantified)
	}
	return recs
}

func joinKeywords(matches []types.KeywordMatch) string {
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m.Keyword)
	}
	return strings.Join(names, ", ")
}
