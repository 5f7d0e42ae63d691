package orchestrator

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	activityservice "github.com/romeda-works/romeda-bot/app/modules/activity/application"
	"github.com/romeda-works/romeda-bot/app/modules/placement"
	"github.com/romeda-works/romeda-bot/app/modules/ranking"
	"github.com/romeda-works/romeda-bot/app/modules/reorg"
)

// fakeBus records published messages per topic.
type fakeBus struct {
	mu        sync.Mutex
	published map[string][]*message.Message
}

func newFakeBus() *fakeBus {
	return &fakeBus{published: make(map[string][]*message.Message)}
}

func (f *fakeBus) Publish(topic string, messages ...*message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[topic] = append(f.published[topic], messages...)
	return nil
}

func (f *fakeBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	ch := make(chan *message.Message)
	close(ch)
	return ch, nil
}

func (f *fakeBus) Close() error { return nil }

func (f *fakeBus) EnsureStream(ctx context.Context, streamName string, subjects []string) error {
	return nil
}

func (f *fakeBus) messagesOn(topic string) []*message.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published[topic]
}

type fakeSweeper struct {
	result reorg.SweepResult
	err    error
	calls  int
}

func (f *fakeSweeper) Run(ctx context.Context, mode activityservice.Mode) (reorg.SweepResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeApplier struct {
	result  reorg.Result
	applied [][]placement.Placement
}

func (f *fakeApplier) Apply(ctx context.Context, placements []placement.Placement) reorg.Result {
	f.applied = append(f.applied, placements)
	return f.result
}

type fakeRankingBuilder struct {
	entries []ranking.Entry
	skipped []string
	err     error
	calls   int
}

func (f *fakeRankingBuilder) BuildRanking(ctx context.Context, mode activityservice.Mode) ([]ranking.Entry, []string, error) {
	f.calls++
	return f.entries, f.skipped, f.err
}
