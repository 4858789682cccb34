package keyword

// DefaultSaturation 频次达到该值时相关度饱和为 1.0。
// 这是一个可调的归一化常数。
const DefaultSaturation = 5.0

// DefaultFrequency 岗位关键词在频次表中缺失时使用的频次
const DefaultFrequency = 1

// Scorer 根据关键词在岗位描述中的出现频次计算相关度
type Scorer struct {
	Saturation float64
}

// NewScorer 创建评分器，saturation <= 0 时使用默认值
func NewScorer(saturation float64) Scorer {
	if saturation <= 0 {
		saturation = DefaultSaturation
	}
	return Scorer{Saturation: saturation}
}

// Score 返回 min(freq/saturation, 1.0)，负频次按 0 处理
func (s Scorer) Score(frequencyInJD int) float64 {
	sat := s.Saturation
	if sat <= 0 {
		sat = DefaultSaturation
	}
	if frequencyInJD <= 0 {
		return 0
	}
	score := float64(frequencyInJD) / sat
	if score > 1.0 {
		return 1.0
	}
	return score
}

// RelevanceScore 使用默认饱和值计算相关度
func RelevanceScore(frequencyInJD int) float64 {
	return NewScorer(DefaultSaturation).Score(frequencyInJD)
}
