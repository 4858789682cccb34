package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"resume-gap-go/internal/config"
	applog "resume-gap-go/internal/logger"
	"resume-gap-go/internal/storage/models"
	"resume-gap-go/internal/tracing"
	"resume-gap-go/pkg/types"
)

var mysqlTracer = otel.Tracer("resume-gap-go/storage/mysql")

type spanContextKey struct{}

// GormTracingPlugin 为每条 GORM 操作创建 OpenTelemetry span
type GormTracingPlugin struct {
	tracer         trace.Tracer
	dbName         string
	disableErrSkip bool
}

// NewGormTracingPlugin 创建追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:         mysqlTracer,
		dbName:         dbName,
		disableErrSkip: true,
	}
}

// WithDisableErrSkip 设置 SkipHooks 的语句是否跳过追踪
func (p *GormTracingPlugin) WithDisableErrSkip(disable bool) *GormTracingPlugin {
	p.disableErrSkip = disable
	return p
}

// Name 插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册 before/after 回调
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("otel:before_row", p.before("ROW")); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("otel:after_row", p.after()); err != nil {
		return err
	}
	if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")); err != nil {
		return err
	}
	return cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after())
}

func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if p.disableErrSkip && db.Statement.SkipHooks {
			return
		}
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		attrs := []attribute.KeyValue{
			semconv.DBSystemMySQL,
			attribute.String("db.name", p.dbName),
			attribute.String("db.operation", operation),
			attribute.String("db.sql.table", tableName),
		}
		if sql := db.Statement.SQL.String(); sql != "" {
			attrs = append(attrs, attribute.String("db.statement", tracing.SafeSQL(sql)))
		}

		newCtx, span := p.tracer.Start(ctx, fmt.Sprintf("%s %s", operation, tableName),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(attrs...))
		db.Statement.Context = context.WithValue(newCtx, spanContextKey{}, span)
	}
}

func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if db.Statement.Context == nil {
			return
		}
		span, ok := db.Statement.Context.Value(spanContextKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		switch {
		case db.Error == nil:
			span.SetStatus(codes.Ok, "")
		case errors.Is(db.Error, gorm.ErrRecordNotFound):
			// 查不到记录属于正常业务分支
			span.SetAttributes(attribute.String("error.type", "record_not_found"))
			span.SetStatus(codes.Ok, "record not found")
		default:
			tracing.RecordError(span, db.Error, tracing.ErrorTypeDB)
		}
	}
}

// MySQL 参考语料、分析记录与发件箱的持久化
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 连接 MySQL，注册追踪插件并迁移表结构
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		PrepareStmt:                              true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	m := &MySQL{db: db, cfg: cfg}
	if err := m.autoMigrateSchema(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	applog.Info().Str("database", cfg.Database).Msg("成功连接到MySQL并完成表结构迁移")
	return m, nil
}

func gormLogLevel(level int) logger.LogLevel {
	switch level {
	case 1:
		return logger.Silent
	case 2:
		return logger.Error
	case 3:
		return logger.Warn
	default:
		return logger.Info
	}
}

func (m *MySQL) autoMigrateSchema() error {
	silentDB := m.db.Session(&gorm.Session{Logger: m.db.Logger.LogMode(logger.Silent)})
	return silentDB.AutoMigrate(
		&models.ReferenceDocument{},
		&models.GapAnalysisRecord{},
		&models.OutboxMessage{},
	)
}

// DB 返回 GORM 连接
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ReplaceCorpus 以事务整体替换参考语料
func (m *MySQL) ReplaceCorpus(ctx context.Context, corpus types.Corpus) error {
	records := make([]models.ReferenceDocument, 0, len(corpus.Jobs)+len(corpus.Resumes))
	for i, doc := range corpus.Jobs {
		rec, err := models.NewReferenceDocument(models.DocumentKindJob, i, doc)
		if err != nil {
			return fmt.Errorf("转换岗位 %s 失败: %w", doc.ID, err)
		}
		records = append(records, rec)
	}
	for i, doc := range corpus.Resumes {
		rec, err := models.NewReferenceDocument(models.DocumentKindResume, i, doc)
		if err != nil {
			return fmt.Errorf("转换简历 %s 失败: %w", doc.ID, err)
		}
		records = append(records, rec)
	}

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.ReferenceDocument{}).Error; err != nil {
			return fmt.Errorf("清空旧语料失败: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(records, 200).Error; err != nil {
			return fmt.Errorf("写入语料失败: %w", err)
		}
		return nil
	})
}

// LoadCorpus 按语料内顺序读取全部参考文档
func (m *MySQL) LoadCorpus(ctx context.Context) (types.Corpus, error) {
	var records []models.ReferenceDocument
	if err := m.db.WithContext(ctx).Order("kind ASC, position ASC").Find(&records).Error; err != nil {
		return types.Corpus{}, fmt.Errorf("读取语料失败: %w", err)
	}

	corpus := types.Corpus{Jobs: []types.ReferenceDocument{}, Resumes: []types.ReferenceDocument{}}
	for _, rec := range records {
		doc, err := rec.ToType()
		if err != nil {
			return types.Corpus{}, fmt.Errorf("解析文档 %s 标签失败: %w", rec.DocID, err)
		}
		switch rec.Kind {
		case models.DocumentKindJob:
			corpus.Jobs = append(corpus.Jobs, doc)
		case models.DocumentKindResume:
			corpus.Resumes = append(corpus.Resumes, doc)
		}
	}
	return corpus, nil
}

// CreatePendingAnalysis 在同一事务中登记待处理的分析记录并写入请求事件
func (m *MySQL) CreatePendingAnalysis(ctx context.Context, analysisID, fingerprint string, req *types.AnalysisRequest, outbox *models.OutboxMessage) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("序列化分析请求失败: %w", err)
	}
	rec := &models.GapAnalysisRecord{
		AnalysisID:  analysisID,
		Status:      string(types.AnalysisStatusPending),
		Fingerprint: fingerprint,
		Request:     datatypes.JSON(payload),
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("登记分析记录失败: %w", err)
		}
		if outbox != nil {
			if err := tx.Create(outbox).Error; err != nil {
				return fmt.Errorf("写入发件箱失败: %w", err)
			}
		}
		return nil
	})
}

// CompleteAnalysis 在同一事务中保存分析结果并写入发件箱事件
func (m *MySQL) CompleteAnalysis(ctx context.Context, result *types.AnalysisResult, outbox *models.OutboxMessage) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("序列化分析结果失败: %w", err)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := models.GapAnalysisRecord{
			AnalysisID:         result.AnalysisID,
			Status:             string(result.Status),
			Fingerprint:        result.Fingerprint,
			Result:             datatypes.JSON(payload),
			CoveragePercentage: result.GapAnalysis.CoveragePercentage,
			ErrorMessage:       result.Error,
		}
		// 同步路径没有预先登记，这里按主键 upsert，保留已有的请求原文
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "analysis_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "result", "coverage_percentage", "error_message", "updated_at"}),
		}).Create(&rec).Error
		if err != nil {
			return fmt.Errorf("保存分析记录失败: %w", err)
		}
		if outbox != nil {
			if err := tx.Create(outbox).Error; err != nil {
				return fmt.Errorf("写入发件箱失败: %w", err)
			}
		}
		return nil
	})
}

// FailAnalysis 将分析标记为失败
func (m *MySQL) FailAnalysis(ctx context.Context, analysisID string, cause error) error {
	return m.db.WithContext(ctx).Model(&models.GapAnalysisRecord{}).
		Where("analysis_id = ?", analysisID).
		Updates(map[string]interface{}{
			"status":        string(types.AnalysisStatusFailed),
			"error_message": cause.Error(),
		}).Error
}

// GetAnalysis 按分析ID读取记录
func (m *MySQL) GetAnalysis(ctx context.Context, analysisID string) (*types.AnalysisResult, error) {
	var rec models.GapAnalysisRecord
	err := m.db.WithContext(ctx).Where("analysis_id = ?", analysisID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取分析记录失败: %w", err)
	}
	return rec.DecodeResult()
}

// GetAnalysisRequest 读取分析请求原文，供消费者处理
func (m *MySQL) GetAnalysisRequest(ctx context.Context, analysisID string) (*types.AnalysisRequest, error) {
	var rec models.GapAnalysisRecord
	err := m.db.WithContext(ctx).Select("analysis_id", "request").Where("analysis_id = ?", analysisID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取分析请求失败: %w", err)
	}
	var req types.AnalysisRequest
	if err := json.Unmarshal(rec.Request, &req); err != nil {
		return nil, fmt.Errorf("解析分析请求失败: %w", err)
	}
	req.AnalysisID = rec.AnalysisID
	return &req, nil
}
