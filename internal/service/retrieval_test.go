package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-gap-go/internal/config"
	"resume-gap-go/internal/constants"
	"resume-gap-go/internal/retrieval"
	"resume-gap-go/pkg/types"
)

func TestRetrievalNotReady(t *testing.T) {
	s := NewRetrievalService(&staticLoader{})
	assert.False(t, s.Ready())
	assert.Nil(t, s.Stats())

	_, err := s.SimilarJobs(context.Background(), "golang", 1)
	assert.ErrorIs(t, err, ErrIndexNotReady)
	_, _, err = s.ExampleResumes(context.Background(), "golang", 1, 1)
	assert.ErrorIs(t, err, ErrIndexNotReady)
}

func TestRetrievalReload(t *testing.T) {
	loader := &staticLoader{corpus: testCorpus()}
	s := NewRetrievalService(loader, RetrievalOptionsFromConfig(config.DefaultConfig().Engine)...)

	stats, err := s.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "static", stats.Source)
	assert.Equal(t, 3, stats.Jobs)
	assert.Equal(t, 2, stats.Resumes)
	assert.Greater(t, stats.VocabularySize, 0)
	assert.True(t, s.Ready())

	jobs, err := s.SimilarJobs(context.Background(), "golang kubernetes distributed services", 0)
	require.NoError(t, err)
	require.Len(t, jobs, 3, "k=0 使用默认数量")
	assert.Equal(t, "job-backend", jobs[0].DocumentID)

	_, err = s.SimilarJobs(context.Background(), "golang", -1)
	assert.ErrorIs(t, err, retrieval.ErrInvalidK)

	jobs, examples, err := s.ExampleResumes(context.Background(), "golang kubernetes services", 1, 1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Len(t, examples, 1)
	assert.Equal(t, "cv-go", examples[0].DocumentID)
}

func TestRetrievalFailedReloadKeepsLibrary(t *testing.T) {
	loader := &staticLoader{corpus: testCorpus()}
	s := NewRetrievalService(loader)
	_, err := s.Reload(context.Background())
	require.NoError(t, err)
	before, _ := s.Library()

	loader.corpus = types.Corpus{}
	_, err = s.Reload(context.Background())
	assert.ErrorIs(t, err, retrieval.ErrEmptyCorpus)

	loader.err = errBoom
	_, err = s.Reload(context.Background())
	assert.ErrorIs(t, err, errBoom)

	after, err := s.Library()
	require.NoError(t, err)
	assert.Same(t, before, after)
}

func TestRetrievalReloadLock(t *testing.T) {
	rdb, _ := newTestRedis(t)
	loader := &staticLoader{corpus: testCorpus()}
	s := NewRetrievalService(loader, WithReloadLocker(rdb))

	token, err := rdb.AcquireLock(context.Background(), constants.KeyCorpusReloadLock, constants.CorpusReloadLockTTL)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, err = s.Reload(context.Background())
	assert.ErrorIs(t, err, ErrReloadInProgress)
	assert.Equal(t, 0, loader.calls)

	_, err = rdb.ReleaseLock(context.Background(), constants.KeyCorpusReloadLock, token)
	require.NoError(t, err)

	_, err = s.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, loader.calls)

	// 锁在重载结束后释放
	token, err = rdb.AcquireLock(context.Background(), constants.KeyCorpusReloadLock, constants.CorpusReloadLockTTL)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestRetrievalConcurrentReloadRejected(t *testing.T) {
	loader := newBlockingLoader(testCorpus())
	s := NewRetrievalService(loader)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Reload(context.Background())
		errCh <- err
	}()

	select {
	case <-loader.started:
	case <-time.After(2 * time.Second):
		t.Fatal("第一次重载没有开始加载")
	}

	// 第一次重载未结束时，第二次立即返回而不是等待
	_, err := s.Reload(context.Background())
	assert.ErrorIs(t, err, ErrReloadInProgress)

	close(loader.release)
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("第一次重载没有结束")
	}
	assert.True(t, s.Ready())
	assert.Len(t, loader.started, 0)
}
