package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/trendpilot/trendpilot/internal/config"
	"github.com/trendpilot/trendpilot/internal/metrics"
)

type fakeRatePrune struct {
	calls int
}

func (f *fakeRatePrune) Cleanup() int {
	f.calls++
	return 0
}

type schedulerFixture struct {
	*runnerFixture
	scheduler *AgentScheduler
	ratePrune *fakeRatePrune
	sleeps    []time.Duration
}

func newSchedulerFixture(t *testing.T, agentCount int) *schedulerFixture {
	t.Helper()
	rf := newRunnerFixture(t)
	for i := 0; i < agentCount; i++ {
		rf.agents.due = append(rf.agents.due, testAgent(fmt.Sprintf("a%02d", i)))
	}

	collector, err := metrics.NewCycleCollector()
	if err != nil {
		t.Fatal(err)
	}

	sf := &schedulerFixture{runnerFixture: rf, ratePrune: &fakeRatePrune{}}
	sf.scheduler = NewAgentScheduler(
		config.SchedulerConfig{
			CheckInterval:       5 * time.Minute,
			BatchSize:           10,
			AgentDelay:          3 * time.Second,
			BatchDelay:          10 * time.Second,
			DailyResetInterval:  24 * time.Hour,
			WindowPruneInterval: 24 * time.Hour,
			UsagePruneInterval:  6 * time.Hour,
			UsageRetention:      48 * time.Hour,
		},
		rf.agents, rf.runner, sf.ratePrune, rf.usage, collector, testLogger(),
	)
	sf.scheduler.SetSleep(func(d time.Duration) { sf.sleeps = append(sf.sleeps, d) })
	return sf
}

func TestRunCycleBatchPacing(t *testing.T) {
	// 12 agents with batch size 10: two batches, one batch delay between
	// them, agent delays between neighbours within each batch.
	sf := newSchedulerFixture(t, 12)

	sf.scheduler.RunCycle(context.Background())

	if len(sf.pub.Posts) != 12 {
		t.Fatalf("published %d posts, want 12", len(sf.pub.Posts))
	}

	var want []time.Duration
	for i := 0; i < 9; i++ {
		want = append(want, 3*time.Second)
	}
	want = append(want, 10*time.Second)
	want = append(want, 3*time.Second)

	if len(sf.sleeps) != len(want) {
		t.Fatalf("recorded %d sleeps, want %d: %v", len(sf.sleeps), len(want), sf.sleeps)
	}
	for i := range want {
		if sf.sleeps[i] != want[i] {
			t.Errorf("sleep[%d] = %v, want %v", i, sf.sleeps[i], want[i])
		}
	}
}

func TestRunCycleProcessesInDueOrder(t *testing.T) {
	sf := newSchedulerFixture(t, 3)

	sf.scheduler.RunCycle(context.Background())

	want := []string{"a00", "a01", "a02"}
	if len(sf.agents.recorded) != len(want) {
		t.Fatalf("recorded = %v", sf.agents.recorded)
	}
	for i := range want {
		if sf.agents.recorded[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, sf.agents.recorded[i], want[i])
		}
	}
}

func TestRunCycleSingleFlightGuard(t *testing.T) {
	sf := newSchedulerFixture(t, 2)

	if !sf.scheduler.guard.TryAcquire() {
		t.Fatal("guard should be free before the cycle")
	}
	sf.scheduler.RunCycle(context.Background())

	if sf.agents.listCalls != 0 {
		t.Error("a held guard must make the tick a no-op")
	}

	sf.scheduler.guard.Release()
	sf.scheduler.RunCycle(context.Background())
	if sf.agents.listCalls != 1 {
		t.Errorf("list calls after release = %d, want 1", sf.agents.listCalls)
	}
}

func TestRunCycleReleasesGuardAfterListError(t *testing.T) {
	sf := newSchedulerFixture(t, 2)
	sf.agents.listErr = errors.New("db down")

	sf.scheduler.RunCycle(context.Background())

	if len(sf.pub.Posts) != 0 {
		t.Error("cycle should abort when the due-agents query fails")
	}
	if !sf.scheduler.guard.TryAcquire() {
		t.Error("guard must be released even when the cycle aborts")
	}
}

func TestRunCycleIsolatesAgentFailures(t *testing.T) {
	sf := newSchedulerFixture(t, 3)
	sf.gen.failAgent = "a01"

	sf.scheduler.RunCycle(context.Background())

	if len(sf.pub.Posts) != 2 {
		t.Errorf("published %d posts, want 2 despite one failing agent", len(sf.pub.Posts))
	}
	if len(sf.audit.entries) != 3 {
		t.Errorf("audit entries = %d, want one per agent", len(sf.audit.entries))
	}
}

func TestMaintenanceJobs(t *testing.T) {
	sf := newSchedulerFixture(t, 1)
	ctx := context.Background()

	sf.scheduler.resetDailyCounters(ctx)
	if sf.agents.resetCalls != 1 {
		t.Error("daily reset should hit the agent store")
	}

	sf.scheduler.pruneUsage(ctx)
	if len(sf.usage.pruned) != 1 || sf.usage.pruned[0] != 48*time.Hour {
		t.Errorf("usage prune retention = %v, want 48h", sf.usage.pruned)
	}
}

func TestStartStopsOnStop(t *testing.T) {
	sf := newSchedulerFixture(t, 0)

	done := make(chan struct{})
	go func() {
		sf.scheduler.Start(context.Background())
		close(done)
	}()

	// Let the immediate cycle run, then stop.
	time.Sleep(50 * time.Millisecond)
	sf.scheduler.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
