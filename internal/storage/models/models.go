package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"resume-gap-go/pkg/types"
)

// 参考文档类别
const (
	DocumentKindJob    = "job"
	DocumentKindResume = "resume"
)

// ReferenceDocument 参考语料表：历史岗位与成功简历
type ReferenceDocument struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement"`
	Kind      string         `gorm:"type:varchar(16);not null;uniqueIndex:uk_kind_doc,priority:1;index:idx_kind_position,priority:1"`
	DocID     string         `gorm:"column:doc_id;type:varchar(128);not null;uniqueIndex:uk_kind_doc,priority:2"`
	Position  int            `gorm:"not null;default:0;index:idx_kind_position,priority:2"` // 语料内顺序，相似度同分时按此排序
	Title     string         `gorm:"type:varchar(255)"`
	Body      string         `gorm:"type:text;not null"`
	Tags      datatypes.JSON `gorm:"type:json"`
	CreatedAt time.Time      `gorm:"type:datetime(6)"`
	UpdatedAt time.Time      `gorm:"type:datetime(6)"`
}

// TableName 指定表名
func (ReferenceDocument) TableName() string {
	return "reference_documents"
}

// NewReferenceDocument 从领域类型构造数据库记录
func NewReferenceDocument(kind string, position int, doc types.ReferenceDocument) (ReferenceDocument, error) {
	tags := doc.Tags
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return ReferenceDocument{}, err
	}
	return ReferenceDocument{
		Kind:     kind,
		DocID:    doc.ID,
		Position: position,
		Title:    doc.Title,
		Body:     doc.Text,
		Tags:     datatypes.JSON(raw),
	}, nil
}

// ToType 转换为领域类型
func (r ReferenceDocument) ToType() (types.ReferenceDocument, error) {
	doc := types.ReferenceDocument{ID: r.DocID, Title: r.Title, Text: r.Body, Tags: []string{}}
	if len(r.Tags) > 0 {
		if err := json.Unmarshal(r.Tags, &doc.Tags); err != nil {
			return types.ReferenceDocument{}, err
		}
	}
	return doc, nil
}

// GapAnalysisRecord 差距分析记录
type GapAnalysisRecord struct {
	AnalysisID         string         `gorm:"primaryKey;type:char(36)"`
	Status             string         `gorm:"type:varchar(20);not null;index"`
	Fingerprint        string         `gorm:"type:char(64);index"`
	Request            datatypes.JSON `gorm:"type:json"`
	Result             datatypes.JSON `gorm:"type:json"`
	CoveragePercentage float64        `gorm:"type:decimal(6,2);default:0"`
	ErrorMessage       string         `gorm:"type:text"`
	CreatedAt          time.Time      `gorm:"type:datetime(6)"`
	UpdatedAt          time.Time      `gorm:"type:datetime(6)"`
}

// TableName 指定表名
func (GapAnalysisRecord) TableName() string {
	return "gap_analyses"
}

// DecodeResult 解析结果列
func (r GapAnalysisRecord) DecodeResult() (*types.AnalysisResult, error) {
	res := &types.AnalysisResult{
		AnalysisID:  r.AnalysisID,
		Status:      types.AnalysisStatus(r.Status),
		Fingerprint: r.Fingerprint,
		Error:       r.ErrorMessage,
		CreatedAt:   r.CreatedAt,
	}
	if len(r.Result) > 0 {
		if err := json.Unmarshal(r.Result, res); err != nil {
			return nil, err
		}
		res.Status = types.AnalysisStatus(r.Status)
	}
	return res, nil
}
