package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerRunsDigestWithConfiguredRequest(t *testing.T) {
	t.Parallel()

	mail := &fakeNotifier{name: "email"}
	runs := &memoryRuns{}
	svc := NewDigestService(DigestDeps{
		Pipeline:  NewPipeline(PipelineDeps{Registry: scenarioRegistry(t), Logger: discardLogger()}),
		Notifiers: []ports.Notifier{mail},
		Runs:      runs,
		Logger:    discardLogger(),
	})

	driver := &manualDriver{}
	sched := NewScheduler(driver, svc, Request{Sources: []string{"A"}}, discardLogger())
	require.NoError(t, sched.Start(context.Background()))
	require.NotNil(t, driver.job)

	driver.job(time.Now())

	require.Len(t, runs.runs, 1)
	assert.Equal(t, domain.RunDelivered, runs.runs[0].Status)
	require.Len(t, mail.digests, 1)
	assert.Len(t, mail.digests[0].Articles, 2)

	require.NoError(t, sched.Stop(context.Background()))
	assert.True(t, driver.stopped)
}

func TestSchedulerWithoutDriver(t *testing.T) {
	t.Parallel()

	sched := NewScheduler(nil, nil, Request{}, nil)
	assert.NoError(t, sched.Start(context.Background()))
	assert.NoError(t, sched.Stop(context.Background()))
}
