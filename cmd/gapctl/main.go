package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"resume-gap-go/internal/config"
	"resume-gap-go/internal/llm"
	"resume-gap-go/internal/logger"
	"resume-gap-go/internal/parser"
	"resume-gap-go/internal/service"
	"resume-gap-go/internal/storage"
	"resume-gap-go/pkg/types"
)

const usage = `gapctl - resume keyword gap analysis

Usage:
  gapctl analyze       --jd FILE --resume FILE [--keywords FILE] [--corpus FILE]
  gapctl query         --corpus FILE (--text TEXT | --jd FILE) [--k N] [--examples N]
  gapctl import-corpus --corpus FILE [--to mysql|minio|all] [--object-key KEY]
  gapctl sample-config --out FILE

Global flags:
  -c, --config FILE    config file
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case "analyze":
		err = runAnalyze(args)
	case "query":
		err = runQuery(args)
	case "import-corpus":
		err = runImport(args)
	case "sample-config":
		err = runSampleConfig(args)
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		err = fmt.Errorf("未知命令: %s", cmd)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}

// loadConfig 解析公共参数并初始化日志，CLI 默认只输出告警
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	level := "warn"
	if os.Getenv("GAPCTL_DEBUG") != "" {
		level = "debug"
	}
	logger.InitWithWriter(logger.Config{Level: level, Format: "pretty", TimeFormat: "15:04:05"}, os.Stderr)
	return cfg, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runAnalyze(args []string) error {
	fs := pflag.NewFlagSet("analyze", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "config file")
	jdPath := fs.String("jd", "", "job description text file")
	resumePath := fs.String("resume", "", "resume file: .json (ResumeData) or .pdf/.txt/.md (extracted by LLM)")
	keywordsPath := fs.String("keywords", "", "JobKeywords JSON file; extracted from --jd by LLM when omitted")
	corpusPath := fs.String("corpus", "", "reference corpus (yaml/json) for similar jobs and example resumes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *resumePath == "" {
		return errors.New("必须提供 --resume")
	}
	if *keywordsPath == "" && *jdPath == "" {
		return errors.New("必须提供 --keywords 或 --jd")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	ctx := context.Background()
	extraction := newExtraction(ctx, cfg)

	req := &types.AnalysisRequest{}
	if *jdPath != "" {
		jd, err := os.ReadFile(*jdPath)
		if err != nil {
			return fmt.Errorf("读取岗位描述失败: %w", err)
		}
		req.JobDescription = string(jd)
	}
	if *keywordsPath != "" {
		if err := readJSONFile(*keywordsPath, &req.JobKeywords); err != nil {
			return err
		}
	}
	resume, err := loadResume(ctx, extraction, *resumePath)
	if err != nil {
		return err
	}
	req.Resume = resume

	opts := []service.AnalysisOption{}
	if ks := extraction.KeywordSource(); ks != nil {
		opts = append(opts, service.WithKeywordSource(ks))
	}
	if *corpusPath != "" {
		retr := service.NewRetrievalService(service.FileCorpusLoader{Path: *corpusPath},
			service.RetrievalOptionsFromConfig(cfg.Engine)...)
		if _, err := retr.Reload(ctx); err != nil {
			return err
		}
		opts = append(opts, service.WithRetrieval(retr))
	}

	svc := service.NewAnalysisService(service.AnalyzerFromConfig(cfg.Engine), opts...)
	res, err := svc.Analyze(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func loadResume(ctx context.Context, extraction *service.ExtractionService, path string) (types.ResumeData, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		var r types.ResumeData
		if err := readJSONFile(path, &r); err != nil {
			return types.ResumeData{}, err
		}
		return r.Normalize(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ResumeData{}, fmt.Errorf("读取简历失败: %w", err)
	}
	res, err := extraction.ExtractResumeFile(ctx, data, path)
	if err != nil {
		return types.ResumeData{}, err
	}
	if res.Partial {
		logger.Warn().Str("file", path).Msg("简历抽取结果不完整")
	}
	return res.Resume, nil
}

func runQuery(args []string) error {
	fs := pflag.NewFlagSet("query", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "config file")
	corpusPath := fs.String("corpus", "", "reference corpus (yaml/json)")
	text := fs.String("text", "", "query text")
	jdPath := fs.String("jd", "", "job description file used as query text")
	k := fs.Int("k", 0, "number of similar jobs (default from config)")
	examples := fs.Int("examples", 0, "number of example resumes; 0 skips the example lookup")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *corpusPath == "" {
		return errors.New("必须提供 --corpus")
	}
	query := *text
	if *jdPath != "" {
		data, err := os.ReadFile(*jdPath)
		if err != nil {
			return fmt.Errorf("读取岗位描述失败: %w", err)
		}
		query = string(data)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	ctx := context.Background()
	retr := service.NewRetrievalService(service.FileCorpusLoader{Path: *corpusPath},
		service.RetrievalOptionsFromConfig(cfg.Engine)...)
	if _, err := retr.Reload(ctx); err != nil {
		return err
	}

	if fs.Changed("k") && *k < 1 {
		return errors.New("--k 必须大于等于 1")
	}
	if *examples > 0 {
		jobs, resumes, err := retr.ExampleResumes(ctx, query, *k, *examples)
		if err != nil {
			return err
		}
		return printJSON(map[string]interface{}{"similar_jobs": jobs, "example_resumes": resumes})
	}
	jobs, err := retr.SimilarJobs(ctx, query, *k)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{"similar_jobs": jobs})
}

func runImport(args []string) error {
	fs := pflag.NewFlagSet("import-corpus", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "config file")
	corpusPath := fs.String("corpus", "", "reference corpus (yaml/json)")
	target := fs.String("to", "all", "mysql, minio or all")
	objectKey := fs.String("object-key", "", "MinIO object key (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *corpusPath == "" {
		return errors.New("必须提供 --corpus")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	ctx := context.Background()
	corpus, err := service.FileCorpusLoader{Path: *corpusPath}.Load(ctx)
	if err != nil {
		return err
	}
	if len(corpus.Jobs) == 0 {
		return errors.New("语料中没有岗位文档")
	}

	toMySQL := *target == "mysql" || *target == "all"
	toMinIO := *target == "minio" || *target == "all"
	if !toMySQL && !toMinIO {
		return fmt.Errorf("未知的导入目标: %s", *target)
	}

	if toMySQL {
		db, err := storage.NewMySQL(&cfg.MySQL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.ReplaceCorpus(ctx, corpus); err != nil {
			return err
		}
		fmt.Printf("已导入 MySQL: %d 个岗位, %d 份简历\n", len(corpus.Jobs), len(corpus.Resumes))
	}
	if toMinIO {
		key := *objectKey
		if key == "" {
			key = cfg.Corpus.ObjectKey
		}
		store, err := storage.NewMinIO(&cfg.MinIO)
		if err != nil {
			return err
		}
		if err := store.PutCorpus(ctx, key, corpus); err != nil {
			return err
		}
		fmt.Printf("已上传 MinIO: %s/%s\n", store.Bucket(), key)
	}
	return nil
}

func runSampleConfig(args []string) error {
	fs := pflag.NewFlagSet("sample-config", pflag.ContinueOnError)
	out := fs.String("out", "config.yaml", "output path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := config.CreateSampleConfig(*out); err != nil {
		return err
	}
	fmt.Println("示例配置已写入", *out)
	return nil
}

func newExtraction(ctx context.Context, cfg *config.Config) *service.ExtractionService {
	var pdf parser.TextExtractor
	if e, err := parser.NewEinoPDFTextExtractor(ctx); err == nil {
		pdf = e
	} else {
		logger.Warn().Err(err).Msg("创建PDF提取器失败")
	}
	completer, err := llm.New(cfg.LLM)
	if err != nil {
		logger.Warn().Err(err).Msg("大模型不可用")
	}
	return service.NewExtractionService(completer, parser.NewRouter(pdf))
}

func readJSONFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取 %s 失败: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("解析 %s 失败: %w", path, err)
	}
	return nil
}
