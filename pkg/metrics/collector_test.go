package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type fakeInstanceSource struct{ count int }

func (f fakeInstanceSource) CountActive() (int, error) { return f.count, nil }

type fakeChallengeSource struct{ count int }

func (f fakeChallengeSource) Count() int { return f.count }

func TestCollector_PollsSourcesOnStart(t *testing.T) {
	c := NewCollector(fakeInstanceSource{count: 3}, fakeChallengeSource{count: 7})
	c.interval = time.Hour // don't let the ticker fire again during the test
	c.Start()
	defer c.Stop()

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(ActiveInstances) == 3 && testutil.ToFloat64(ChallengesLoadedTotal) == 7
	}, time.Second, 10*time.Millisecond)
}

func TestCollector_NilSourcesDoNotPanic(t *testing.T) {
	c := NewCollector(nil, nil)
	assert.NotPanics(t, func() {
		c.collect()
	})
}
