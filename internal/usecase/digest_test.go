package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

type fakeSummarizer struct {
	summary string
	err     error
}

func (f fakeSummarizer) Summarize(context.Context, []domain.Article, string) (string, error) {
	return f.summary, f.err
}

type fakeNotifier struct {
	name    string
	err     error
	digests []domain.Digest
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Deliver(_ context.Context, d domain.Digest) error {
	f.digests = append(f.digests, d)
	return f.err
}

type memoryRuns struct {
	mu   sync.Mutex
	runs []domain.RunReport
	err  error
}

func (m *memoryRuns) SaveRun(_ context.Context, r domain.RunReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, r)
	return m.err
}

func (m *memoryRuns) RecentRuns(context.Context, int) ([]domain.RunReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.RunReport(nil), m.runs...), nil
}

func fixedNow() time.Time {
	return time.Date(2025, time.April, 22, 6, 0, 0, 0, time.UTC)
}

func TestDigestRunDelivers(t *testing.T) {
	t.Parallel()

	mail := &fakeNotifier{name: "email"}
	chat := &fakeNotifier{name: "telegram", err: errors.New("chat not found")}
	runs := &memoryRuns{}

	svc := NewDigestService(DigestDeps{
		Pipeline:   NewPipeline(PipelineDeps{Registry: scenarioRegistry(t), Logger: discardLogger()}),
		Summarizer: fakeSummarizer{summary: "<p>Two stories</p>"},
		Notifiers:  []ports.Notifier{mail, chat},
		Runs:       runs,
		Logger:     discardLogger(),
		Now:        fixedNow,
	})

	report, err := svc.Run(context.Background(), Request{Sources: []string{"A", "B"}})
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, domain.RunDelivered, report.Status)
	assert.Equal(t, 2, report.Headlines)
	assert.Equal(t, 2, report.Selected)
	assert.Equal(t, 1, report.Delivered)
	assert.Equal(t, []string{"B"}, report.FailedSources())

	require.Len(t, mail.digests, 1)
	digest := mail.digests[0]
	assert.Equal(t, report.ID, digest.RunID)
	assert.Equal(t, "<p>Two stories</p>", digest.Summary)
	assert.Len(t, digest.Articles, 2)
	assert.Equal(t, fixedNow(), digest.Date)

	var phases []domain.Phase
	for _, f := range report.Failures {
		phases = append(phases, f.Phase)
	}
	assert.Contains(t, phases, domain.PhaseDelivery)

	saved, err := runs.RecentRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, report.ID, saved[0].ID)
}

func TestDigestRunEmptySkipsDelivery(t *testing.T) {
	t.Parallel()

	mail := &fakeNotifier{name: "email"}
	svc := NewDigestService(DigestDeps{
		Pipeline:  NewPipeline(PipelineDeps{Registry: scenarioRegistry(t), Selector: &fakeSelector{}, Logger: discardLogger()}),
		Notifiers: []ports.Notifier{mail},
		Logger:    discardLogger(),
	})

	report, err := svc.Run(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, domain.RunEmpty, report.Status)
	assert.Empty(t, mail.digests)
}

func TestDigestRunSummaryFailureStillDelivers(t *testing.T) {
	t.Parallel()

	mail := &fakeNotifier{name: "email"}
	svc := NewDigestService(DigestDeps{
		Pipeline:   NewPipeline(PipelineDeps{Registry: scenarioRegistry(t), Logger: discardLogger()}),
		Summarizer: fakeSummarizer{err: errors.New("rate limited")},
		Notifiers:  []ports.Notifier{mail},
		Logger:     discardLogger(),
	})

	report, err := svc.Run(context.Background(), Request{Sources: []string{"A"}})
	require.NoError(t, err)
	assert.Equal(t, domain.RunDelivered, report.Status)
	require.Len(t, mail.digests, 1)
	assert.Empty(t, mail.digests[0].Summary)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, domain.PhaseSummary, report.Failures[0].Phase)
}

func TestDigestRunAllNotifiersFail(t *testing.T) {
	t.Parallel()

	runs := &memoryRuns{err: errors.New("db down")}
	svc := NewDigestService(DigestDeps{
		Pipeline:  NewPipeline(PipelineDeps{Registry: scenarioRegistry(t), Logger: discardLogger()}),
		Notifiers: []ports.Notifier{&fakeNotifier{name: "email", err: errors.New("401")}},
		Runs:      runs,
		Logger:    discardLogger(),
	})

	report, err := svc.Run(context.Background(), Request{Sources: []string{"A"}})
	require.ErrorIs(t, err, ErrNotDelivered)
	assert.Equal(t, domain.RunFailed, report.Status)
	assert.Zero(t, report.Delivered)
	assert.False(t, report.FinishedAt.IsZero())
	assert.Len(t, runs.runs, 1)
}

func TestDigestRunSelectorFailure(t *testing.T) {
	t.Parallel()

	svc := NewDigestService(DigestDeps{
		Pipeline: NewPipeline(PipelineDeps{
			Registry: scenarioRegistry(t),
			Selector: &fakeSelector{err: errors.New("bad json")},
			Logger:   discardLogger(),
		}),
		Logger: discardLogger(),
	})

	report, err := svc.Run(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, domain.RunFailed, report.Status)
	assert.Equal(t, 2, report.Headlines)
}
