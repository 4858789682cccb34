package constants

import "time"

// Redis Key 前缀和格式常量
// 使用统一的命名规范: gap:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "gap"

	// AnalysisModulePrefix 差距分析模块
	AnalysisModulePrefix = "analysis"
	// CorpusModulePrefix 参考语料模块
	CorpusModulePrefix = "corpus"

	// EntityFingerprint 请求指纹实体
	EntityFingerprint = "fingerprint"
	// EntityResult 分析结果实体
	EntityResult = "id"
	// EntityLock 分布式锁实体
	EntityLock = "lock"

	// KeyAnalysisByFingerprint 请求指纹 -> 分析ID (STRING)
	// 格式: gap:analysis:fingerprint:{sha256}
	KeyAnalysisByFingerprint = AppPrefix + ":" + AnalysisModulePrefix + ":" + EntityFingerprint + ":%s"

	// KeyAnalysisResult 分析结果JSON (STRING)
	// 格式: gap:analysis:id:{analysisID}
	KeyAnalysisResult = AppPrefix + ":" + AnalysisModulePrefix + ":" + EntityResult + ":%s"

	// KeyAnalysisLock 同一分析任务的处理锁，防止重复消费 (STRING)
	// 格式: gap:analysis:lock:{analysisID}
	KeyAnalysisLock = AppPrefix + ":" + AnalysisModulePrefix + ":" + EntityLock + ":%s"

	// KeyCorpusReloadLock 语料重载锁 (STRING)
	// 格式: gap:corpus:lock
	KeyCorpusReloadLock = AppPrefix + ":" + CorpusModulePrefix + ":" + EntityLock
)

const (
	// DefaultAnalysisTTL 分析结果缓存默认有效期
	DefaultAnalysisTTL = 24 * time.Hour
	// AnalysisLockTTL 处理锁有效期
	AnalysisLockTTL = 2 * time.Minute
	// CorpusReloadLockTTL 语料重载锁有效期
	CorpusReloadLockTTL = 5 * time.Minute
)
