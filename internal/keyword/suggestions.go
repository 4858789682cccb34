package keyword

import (
	"fmt"
	"strings"

	"resume-gap-go/pkg/types"
)

const (
	skillSuggestionLimit      = 5
	experienceKeywordLimit    = 5
	projectToolLimit          = 3
	organizeSkillsThreshold   = 10
	quantifiedShareOfRoleGoal = 0.5
)

// Suggest 基于差距分析结果，生成按简历章节划分的改进建议
func Suggest(gap types.GapAnalysis, resume types.ResumeData) types.SectionSuggestions {
	resume = resume.Normalize()
	out := types.SectionSuggestions{
		SkillsSection:       suggestSkills(gap, resume),
		ExperienceSection:   suggestExperience(gap, resume),
		ProjectsSection:     suggestProjects(gap, resume),
		OverallImprovements: append([]string{}, gap.Recommendations...),
	}
	return out
}

func suggestSkills(gap types.GapAnalysis, resume types.ResumeData) []string {
	out := make([]string, 0, 2)
	if missing := gap.MissingIn(types.CategoryTechnicalSkill); len(missing) > 0 {
		top := topByRelevance(missing, skillSuggestionLimit)
		out = append(out, categoryPrefix[types.CategoryTechnicalSkill]+joinKeywords(top))
	}
	if len(resume.TechnicalSkills) > organizeSkillsThreshold {
		out = append(out, msgOrganizeSkills)
	}
	return out
}

func suggestExperience(gap types.GapAnalysis, resume types.ResumeData) []string {
	out := make([]string, 0)
	for _, exp := range resume.WorkExperience {
		quantified := 0
		for _, a := range exp.Achievements {
			if types.ContainsDigit(a) {
				quantified++
			}
		}
		if float64(quantified) < float64(len(exp.Achievements))*quantifiedShareOfRoleGoal {
			company := exp.Company
			if strings.TrimSpace(company) == "" {
				company = "Unknown"
			}
			out = append(out, fmt.Sprintf("Add more quantified achievements to your role at %s", company))
		}
	}

	if len(resume.WorkExperience) > 0 && len(gap.MissingKeywords) > 0 {
		n := len(gap.MissingKeywords)
		if n > experienceKeywordLimit {
			n = experienceKeywordLimit
		}
		out = append(out, "Incorporate these keywords into your work experience: "+joinKeywords(gap.MissingKeywords[:n]))
	}
	return out
}

func suggestProjects(gap types.GapAnalysis, resume types.ResumeData) []string {
	if len(resume.Projects) == 0 {
		return []string{msgAddProjects}
	}
	tools := gap.MissingIn(types.CategoryToolTechnology)
	if len(tools) == 0 {
		return []string{}
	}
	if len(tools) > projectToolLimit {
		tools = tools[:projectToolLimit]
	}
	return []string{"Consider adding projects that use: " + joinKeywords(tools)}
}
