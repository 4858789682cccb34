package types

import (
	"strings"
	"unicode"
)

// WorkExperience 表示一段工作经历
type WorkExperience struct {
	Title        string   `json:"title,omitempty" yaml:"title,omitempty"`
	Company      string   `json:"company,omitempty" yaml:"company,omitempty"`
	Achievements []string `json:"achievements" yaml:"achievements"`
}

// Project 表示一个项目经历
type Project struct {
	Name         string   `json:"name,omitempty" yaml:"name,omitempty"`
	Technologies []string `json:"technologies" yaml:"technologies"`
}

// ResumeData 表示解析后的结构化简历数据
type ResumeData struct {
	TechnicalSkills   []string         `json:"technical_skills" yaml:"technical_skills"`
	SoftSkills        []string         `json:"soft_skills" yaml:"soft_skills"`
	ExtractedKeywords []string         `json:"extracted_keywords" yaml:"extracted_keywords"`
	WorkExperience    []WorkExperience `json:"work_experience" yaml:"work_experience"`
	Projects          []Project        `json:"projects" yaml:"projects"`
}

// Normalize 为缺失字段填充空值，返回新的副本，不修改接收者
func (r ResumeData) Normalize() ResumeData {
	out := ResumeData{
		TechnicalSkills:   cloneStrings(r.TechnicalSkills),
		SoftSkills:        cloneStrings(r.SoftSkills),
		ExtractedKeywords: cloneStrings(r.ExtractedKeywords),
		WorkExperience:    make([]WorkExperience, 0, len(r.WorkExperience)),
		Projects:          make([]Project, 0, len(r.Projects)),
	}
	for _, exp := range r.WorkExperience {
		out.WorkExperience = append(out.WorkExperience, WorkExperience{
			Title:        exp.Title,
			Company:      exp.Company,
			Achievements: cloneStrings(exp.Achievements),
		})
	}
	for _, p := range r.Projects {
		out.Projects = append(out.Projects, Project{
			Name:         p.Name,
			Technologies: cloneStrings(p.Technologies),
		})
	}
	return out
}

// HasQuantifiedAchievements 任意一条成就描述中是否包含数字
func (r ResumeData) HasQuantifiedAchievements() bool {
	for _, exp := range r.WorkExperience {
		for _, a := range exp.Achievements {
			if ContainsDigit(a) {
				return true
			}
		}
	}
	return false
}

// ContainsDigit 判断文本中是否包含数字字符
func ContainsDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func cloneStrings(in []string) []string {
	out := make([]string, 0, len(in))
	return append(out, in...)
}
