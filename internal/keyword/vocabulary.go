package keyword

import "strings"

// TechVocabulary 从成就描述中扫描的封闭技术词表
var TechVocabulary = []string{
	"python", "java", "javascript", "sql", "html", "css", "react", "angular",
	"node.js", "django", "flask", "tensorflow", "pytorch", "scikit-learn",
	"pandas", "numpy", "matplotlib", "seaborn", "aws", "azure", "gcp",
	"docker", "kubernetes", "git", "jenkins", "agile", "scrum",
}

// ExtractTerms 返回 text 中以子串形式出现的词表条目，按词表顺序。
// 这是封闭词表查找，不做任何语义推断。
func ExtractTerms(text string, vocabulary []string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, term := range vocabulary {
		if strings.Contains(lower, term) {
			found = append(found, term)
		}
	}
	return found
}
