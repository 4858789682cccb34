package service

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gofrs/uuid/v5"
	"gopkg.in/yaml.v3"

	"resume-gap-go/internal/config"
	"resume-gap-go/pkg/types"
)

// 文档缺少 ID 时按内容生成确定性的 V5 UUID
var documentNamespace = uuid.NewV5(uuid.NamespaceURL, "resume-gap-go/reference-document")

// CorpusLoader 参考语料来源
type CorpusLoader interface {
	Load(ctx context.Context) (types.Corpus, error)
	Source() string
}

// FileCorpusLoader 从 YAML 或 JSON 文件加载语料
type FileCorpusLoader struct {
	Path string
}

// Source 来源描述
func (l FileCorpusLoader) Source() string { return "file:" + l.Path }

// Load 读取并解析文件。yaml.v3 同样能解析 JSON。
func (l FileCorpusLoader) Load(_ context.Context) (types.Corpus, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return types.Corpus{}, fmt.Errorf("读取语料文件 %s 失败: %w", l.Path, err)
	}
	corpus, err := ParseCorpus(data)
	if err != nil {
		return types.Corpus{}, fmt.Errorf("解析语料文件 %s 失败: %w", l.Path, err)
	}
	return corpus, nil
}

// ParseCorpus 解析 YAML/JSON 语料并补齐文档 ID
func ParseCorpus(data []byte) (types.Corpus, error) {
	var corpus types.Corpus
	if err := yaml.Unmarshal(data, &corpus); err != nil {
		return types.Corpus{}, err
	}
	return NormalizeCorpus(corpus), nil
}

// NormalizeCorpus 补齐空 ID 与空标签，返回新的副本
func NormalizeCorpus(c types.Corpus) types.Corpus {
	return types.Corpus{
		Jobs:    normalizeDocuments("job", c.Jobs),
		Resumes: normalizeDocuments("resume", c.Resumes),
	}
}

func normalizeDocuments(kind string, docs []types.ReferenceDocument) []types.ReferenceDocument {
	out := make([]types.ReferenceDocument, 0, len(docs))
	for _, d := range docs {
		if strings.TrimSpace(d.ID) == "" {
			d.ID = uuid.NewV5(documentNamespace, kind+"\x00"+d.Title+"\x00"+d.Text).String()
		}
		if d.Tags == nil {
			d.Tags = []string{}
		} else {
			d.Tags = append([]string(nil), d.Tags...)
		}
		out = append(out, d)
	}
	return out
}

// CorpusRepository 数据库中的语料
type CorpusRepository interface {
	LoadCorpus(ctx context.Context) (types.Corpus, error)
}

// MySQLCorpusLoader 从数据库加载
type MySQLCorpusLoader struct {
	Repo CorpusRepository
}

// Source 来源描述
func (l MySQLCorpusLoader) Source() string { return "mysql" }

// Load 读取语料
func (l MySQLCorpusLoader) Load(ctx context.Context) (types.Corpus, error) {
	c, err := l.Repo.LoadCorpus(ctx)
	if err != nil {
		return types.Corpus{}, err
	}
	return NormalizeCorpus(c), nil
}

// CorpusSnapshotStore 对象存储中的语料快照
type CorpusSnapshotStore interface {
	GetCorpus(ctx context.Context, objectName string) (types.Corpus, error)
}

// SnapshotCorpusLoader 从对象存储快照加载
type SnapshotCorpusLoader struct {
	Store     CorpusSnapshotStore
	ObjectKey string
}

// Source 来源描述
func (l SnapshotCorpusLoader) Source() string { return "minio:" + l.ObjectKey }

// Load 读取快照
func (l SnapshotCorpusLoader) Load(ctx context.Context) (types.Corpus, error) {
	c, err := l.Store.GetCorpus(ctx, l.ObjectKey)
	if err != nil {
		return types.Corpus{}, err
	}
	return NormalizeCorpus(c), nil
}

// NewCorpusLoader 按配置选择语料来源，所需的存储未初始化时返回错误
func NewCorpusLoader(cfg config.CorpusConfig, repo CorpusRepository, snapshots CorpusSnapshotStore) (CorpusLoader, error) {
	switch strings.ToLower(cfg.Source) {
	case "", "file":
		if cfg.Path == "" {
			return nil, fmt.Errorf("语料来源为 file 时必须配置 path")
		}
		return FileCorpusLoader{Path: cfg.Path}, nil
	case "mysql":
		if repo == nil {
			return nil, fmt.Errorf("语料来源为 mysql 但 MySQL 未初始化")
		}
		return MySQLCorpusLoader{Repo: repo}, nil
	case "minio":
		if snapshots == nil {
			return nil, fmt.Errorf("语料来源为 minio 但 MinIO 未初始化")
		}
		return SnapshotCorpusLoader{Store: snapshots, ObjectKey: cfg.ObjectKey}, nil
	}
	return nil, fmt.Errorf("未知的语料来源: %s", cfg.Source)
}
