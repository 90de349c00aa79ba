package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/topicrelay/internal/model"
	"github.com/rickgao/topicrelay/internal/router"
	"github.com/rickgao/topicrelay/internal/routes"
)

const adminGroup int64 = -1001234567890

type sentMessage struct {
	ChatID   int64
	ThreadID int
	Text     string
	Media    *model.Media
}

// fakePlatform records calls and hands out topic ids from 501.
type fakePlatform struct {
	mu        sync.Mutex
	created   []string
	sent      []sentMessage
	nextTopic int
	createErr error
	sendErr   error
	delay     time.Duration
}

func (p *fakePlatform) CreateForumTopic(_ context.Context, chatID int64, name string) (int, error) {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return 0, p.createErr
	}
	if chatID != adminGroup {
		return 0, errors.New("topic created outside the admin group")
	}
	p.created = append(p.created, name)
	if p.nextTopic == 0 {
		p.nextTopic = 501
	}
	id := p.nextTopic
	p.nextTopic++
	return id, nil
}

func (p *fakePlatform) SendText(_ context.Context, chatID int64, threadID int, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return p.sendErr
	}
	p.sent = append(p.sent, sentMessage{ChatID: chatID, ThreadID: threadID, Text: text})
	return nil
}

func (p *fakePlatform) SendMedia(_ context.Context, chatID int64, threadID int, media model.Media) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return p.sendErr
	}
	p.sent = append(p.sent, sentMessage{ChatID: chatID, ThreadID: threadID, Media: &media})
	return nil
}

func (p *fakePlatform) calls() ([]string, []sentMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.created...), append([]sentMessage(nil), p.sent...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRelay builds a relay over a file-backed table seeded with entries.
func newTestRelay(t *testing.T, seed ...routes.Entry) (*Relay, *fakePlatform, *routes.Table) {
	t.Helper()

	store := routes.NewFileStore(afero.NewMemMapFs(), "user_topics.json")
	if len(seed) > 0 {
		require.NoError(t, store.Save(context.Background(), seed))
	}
	table := routes.NewTable(store, testLogger())
	require.NoError(t, table.Load(context.Background()))

	platform := &fakePlatform{}
	r := New(Config{AdminGroupID: adminGroup}, platform, table, testLogger())
	return r, platform, table
}

func userMessage(userID int64, name string, p model.Payload) model.Inbound {
	return model.Inbound{
		TraceID:    uuid.New(),
		SenderID:   userID,
		SenderName: name,
		Chat:       model.Chat{ID: userID, Kind: model.ChatPrivate},
		Payload:    p,
	}
}

func adminMessage(threadID int, p model.Payload) model.Inbound {
	return model.Inbound{
		TraceID:  uuid.New(),
		SenderID: 555,
		Chat:     model.Chat{ID: adminGroup, Kind: model.ChatSupergroup},
		Payload:  p,
		ReplyTo:  &model.ReplyRef{MessageID: 1, ThreadID: threadID},
	}
}

func TestOnUserMessage_FirstContactCreatesTopic(t *testing.T) {
	r, platform, table := newTestRelay(t)
	ctx := context.Background()

	require.NoError(t, r.OnUserMessage(ctx, userMessage(111111, "ann", model.Text{Body: "hello"})))
	require.NoError(t, r.OnUserMessage(ctx, userMessage(111111, "ann", model.Text{Body: "again"})))

	created, sent := platform.calls()
	assert.Equal(t, []string{"ann"}, created)
	assert.Equal(t, []sentMessage{
		{ChatID: adminGroup, ThreadID: 501, Text: "hello"},
		{ChatID: adminGroup, ThreadID: 501, Text: "again"},
	}, sent)

	topicID, ok := table.LookupByUser(111111)
	require.True(t, ok)
	assert.Equal(t, 501, topicID)
	assert.Equal(t, int64(2), r.Stats().Forwarded)
}

func TestOnUserMessage_WrongOrigin(t *testing.T) {
	payloads := []model.Payload{
		model.Text{Body: "hello"},
		model.Sticker{FileID: "stk"},
		model.Photo{FileID: "large", Caption: "receipt"},
		model.Voice{FileID: "vc"},
		model.Video{FileID: "vd"},
		model.Document{FileID: "doc"},
		model.Unsupported{},
	}
	origins := []struct {
		name string
		chat model.Chat
	}{
		{"admin group", model.Chat{ID: adminGroup, Kind: model.ChatSupergroup}},
		{"other group", model.Chat{ID: -42, Kind: model.ChatGroup}},
		{"channel", model.Chat{ID: -1009, Kind: model.ChatChannel}},
	}

	for _, p := range payloads {
		for _, o := range origins {
			t.Run(p.Kind().String()+"/"+o.name, func(t *testing.T) {
				r, platform, table := newTestRelay(t)

				in := userMessage(111111, "ann", p)
				in.Chat = o.chat

				require.NoError(t, r.OnUserMessage(context.Background(), in))

				created, sent := platform.calls()
				assert.Empty(t, created)
				assert.Empty(t, sent)
				assert.Equal(t, 0, table.Len())
				assert.Equal(t, int64(1), r.Stats().WrongOrigin)
			})
		}
	}
}

func TestOnUserMessage_Payloads(t *testing.T) {
	tests := []struct {
		name    string
		payload model.Payload
		want    sentMessage
	}{
		{
			name:    "sticker",
			payload: model.Sticker{FileID: "stk"},
			want:    sentMessage{ChatID: adminGroup, ThreadID: 501, Media: &model.Media{Kind: model.KindSticker, FileID: "stk"}},
		},
		{
			name:    "photo with caption",
			payload: model.Photo{FileID: "large", Caption: "receipt"},
			want:    sentMessage{ChatID: adminGroup, ThreadID: 501, Media: &model.Media{Kind: model.KindPhoto, FileID: "large", Caption: "receipt"}},
		},
		{
			name:    "voice",
			payload: model.Voice{FileID: "vc"},
			want:    sentMessage{ChatID: adminGroup, ThreadID: 501, Media: &model.Media{Kind: model.KindVoice, FileID: "vc"}},
		},
		{
			name:    "video",
			payload: model.Video{FileID: "vd", Caption: "clip"},
			want:    sentMessage{ChatID: adminGroup, ThreadID: 501, Media: &model.Media{Kind: model.KindVideo, FileID: "vd", Caption: "clip"}},
		},
		{
			name:    "document",
			payload: model.Document{FileID: "doc", Caption: "invoice"},
			want:    sentMessage{ChatID: adminGroup, ThreadID: 501, Media: &model.Media{Kind: model.KindDocument, FileID: "doc", Caption: "invoice"}},
		},
		{
			name:    "unsupported",
			payload: model.Unsupported{},
			want:    sentMessage{ChatID: adminGroup, ThreadID: 501, Text: DefaultUnsupportedNotice},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, platform, _ := newTestRelay(t)

			require.NoError(t, r.OnUserMessage(context.Background(), userMessage(111111, "ann", tt.payload)))

			_, sent := platform.calls()
			require.Len(t, sent, 1)
			assert.Equal(t, tt.want, sent[0])
		})
	}
}

func TestOnUserMessage_CustomNotice(t *testing.T) {
	_, platform, table := newTestRelay(t)
	r := New(Config{AdminGroupID: adminGroup, UnsupportedNotice: "Can't show this one."}, platform, table, testLogger())

	require.NoError(t, r.OnUserMessage(context.Background(), userMessage(1, "x", model.Unsupported{})))

	_, sent := platform.calls()
	require.Len(t, sent, 1)
	assert.Equal(t, "Can't show this one.", sent[0].Text)
	assert.Equal(t, int64(1), r.Stats().Fallbacks)
}

func TestOnUserMessage_CreateFailure(t *testing.T) {
	r, platform, table := newTestRelay(t)
	boom := errors.New("not enough rights to create a topic")
	platform.createErr = boom

	err := r.OnUserMessage(context.Background(), userMessage(111111, "ann", model.Text{Body: "hello"}))
	require.ErrorIs(t, err, boom)

	_, sent := platform.calls()
	assert.Empty(t, sent)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, int64(1), r.Stats().Failures)
}

func TestOnUserMessage_SendFailurePropagates(t *testing.T) {
	r, platform, table := newTestRelay(t)
	boom := errors.New("Forbidden: bot was kicked")
	platform.sendErr = boom

	err := r.OnUserMessage(context.Background(), userMessage(111111, "ann", model.Text{Body: "hello"}))
	require.ErrorIs(t, err, boom)

	// The topic exists and stays mapped.
	_, ok := table.LookupByUser(111111)
	assert.True(t, ok)
}

func TestOnUserMessage_ConcurrentFirstContact(t *testing.T) {
	r, platform, _ := newTestRelay(t)
	platform.delay = 20 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.OnUserMessage(context.Background(), userMessage(42, "bob", model.Text{Body: "hi"})))
		}()
	}
	wg.Wait()

	created, sent := platform.calls()
	assert.Len(t, created, 1)
	assert.Len(t, sent, 8)
	for _, m := range sent {
		assert.Equal(t, 501, m.ThreadID)
	}
}

func TestOnAdminReply_RoutesToUser(t *testing.T) {
	r, platform, _ := newTestRelay(t, routes.Entry{UserID: 7, TopicID: 99})

	require.NoError(t, r.OnAdminReply(context.Background(), adminMessage(99, model.Text{Body: "hi"})))

	created, sent := platform.calls()
	assert.Empty(t, created)
	assert.Equal(t, []sentMessage{{ChatID: 7, ThreadID: 0, Text: "hi"}}, sent)
}

func TestOnAdminReply_MediaAndFallback(t *testing.T) {
	r, platform, _ := newTestRelay(t, routes.Entry{UserID: 7, TopicID: 99})
	ctx := context.Background()

	require.NoError(t, r.OnAdminReply(ctx, adminMessage(99, model.Document{FileID: "doc", Caption: "your invoice"})))
	require.NoError(t, r.OnAdminReply(ctx, adminMessage(99, model.Unsupported{})))

	_, sent := platform.calls()
	require.Len(t, sent, 2)
	assert.Equal(t, sentMessage{ChatID: 7, Media: &model.Media{Kind: model.KindDocument, FileID: "doc", Caption: "your invoice"}}, sent[0])
	assert.Equal(t, sentMessage{ChatID: 7, Text: DefaultUnsupportedNotice}, sent[1])
}

func TestOnAdminReply_Skips(t *testing.T) {
	tests := []struct {
		name  string
		in    func() model.Inbound
		stats func(Stats) int64
	}{
		{
			name: "not a reply",
			in: func() model.Inbound {
				in := adminMessage(99, model.Text{Body: "hi"})
				in.ReplyTo = nil
				return in
			},
			stats: func(s Stats) int64 { return s.NotReply },
		},
		{
			name:  "unknown topic",
			in:    func() model.Inbound { return adminMessage(100, model.Text{Body: "hi"}) },
			stats: func(s Stats) int64 { return s.NoRoute },
		},
		{
			name:  "reply outside a topic",
			in:    func() model.Inbound { return adminMessage(0, model.Text{Body: "hi"}) },
			stats: func(s Stats) int64 { return s.NoRoute },
		},
		{
			name: "other group",
			in: func() model.Inbound {
				in := adminMessage(99, model.Text{Body: "hi"})
				in.Chat.ID = -100555
				return in
			},
			stats: func(s Stats) int64 { return s.WrongOrigin },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, platform, _ := newTestRelay(t, routes.Entry{UserID: 7, TopicID: 99})

			require.NoError(t, r.OnAdminReply(context.Background(), tt.in()))

			_, sent := platform.calls()
			assert.Empty(t, sent)
			assert.Equal(t, int64(1), tt.stats(r.Stats()))
		})
	}
}

func TestOnAdminReply_SendFailurePropagates(t *testing.T) {
	r, platform, _ := newTestRelay(t, routes.Entry{UserID: 7, TopicID: 99})
	boom := errors.New("Forbidden: bot was blocked by the user")
	platform.sendErr = boom

	err := r.OnAdminReply(context.Background(), adminMessage(99, model.Text{Body: "hi"}))
	assert.ErrorIs(t, err, boom)
}

func TestRoundTrip_UserThenAdmin(t *testing.T) {
	r, platform, _ := newTestRelay(t)
	ctx := context.Background()

	require.NoError(t, r.OnUserMessage(ctx, userMessage(111111, "ann", model.Text{Body: "help"})))
	require.NoError(t, r.OnAdminReply(ctx, adminMessage(501, model.Text{Body: "on it"})))

	_, sent := platform.calls()
	require.Len(t, sent, 2)
	assert.Equal(t, sentMessage{ChatID: adminGroup, ThreadID: 501, Text: "help"}, sent[0])
	assert.Equal(t, sentMessage{ChatID: 111111, Text: "on it"}, sent[1])
}

func TestHandle(t *testing.T) {
	r, platform, _ := newTestRelay(t, routes.Entry{UserID: 7, TopicID: 99})
	ctx := context.Background()

	require.NoError(t, r.Handle(ctx, router.Event{Direction: router.FromAdmin, Inbound: adminMessage(99, model.Text{Body: "a"})}))
	require.NoError(t, r.Handle(ctx, router.Event{Direction: router.FromUser, Inbound: userMessage(7, "u", model.Text{Body: "b"})}))
	assert.Error(t, r.Handle(ctx, router.Event{}))

	_, sent := platform.calls()
	assert.Len(t, sent, 2)
}

func TestWorkers_DrainShards(t *testing.T) {
	r, platform, _ := newTestRelay(t, routes.Entry{UserID: 7, TopicID: 99})

	shards := []*router.GrowableBuffer[router.Event]{
		router.NewGrowableBuffer[router.Event](4),
		router.NewGrowableBuffer[router.Event](4),
	}
	require.NoError(t, r.Start(context.Background(), shards))

	for i := 0; i < 5; i++ {
		shards[0].Send(router.Event{Direction: router.FromUser, Inbound: userMessage(7, "u", model.Text{Body: "u"})})
		shards[1].Send(router.Event{Direction: router.FromAdmin, Inbound: adminMessage(99, model.Text{Body: "a"})})
	}
	for _, s := range shards {
		s.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))

	_, sent := platform.calls()
	assert.Len(t, sent, 10)
}

func TestWorkers_ContinueAfterFailure(t *testing.T) {
	r, platform, _ := newTestRelay(t)
	platform.sendErr = errors.New("Too Many Requests")

	shard := router.NewGrowableBuffer[router.Event](4)
	require.NoError(t, r.Start(context.Background(), []*router.GrowableBuffer[router.Event]{shard}))

	shard.Send(router.Event{Direction: router.FromUser, Inbound: userMessage(1, "a", model.Text{Body: "x"})})
	shard.Send(router.Event{Direction: router.FromUser, Inbound: userMessage(2, "b", model.Text{Body: "y"})})
	shard.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))

	stats := r.Stats()
	assert.Equal(t, int64(2), stats.UserMessages)
	assert.Equal(t, int64(2), stats.Failures)
}

func TestWorkers_StopTimeoutDropsQueued(t *testing.T) {
	r, platform, _ := newTestRelay(t)
	platform.delay = 300 * time.Millisecond

	shard := router.NewGrowableBuffer[router.Event](8)
	t.Cleanup(shard.Close)
	require.NoError(t, r.Start(context.Background(), []*router.GrowableBuffer[router.Event]{shard}))

	// The first event blocks its worker in topic creation; the rest stay queued.
	for i := int64(1); i <= 4; i++ {
		shard.Send(router.Event{Direction: router.FromUser, Inbound: userMessage(i, "u", model.Text{Body: "x"})})
	}
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, r.Stop(ctx), context.DeadlineExceeded)

	assert.Equal(t, int64(3), r.Stats().Dropped)
	assert.Equal(t, 0, shard.Len())
}

func TestTopicName(t *testing.T) {
	assert.Equal(t, "ann", topicName("  ann  ", 1))
	assert.Equal(t, "user 111111", topicName("", 111111))
	assert.Equal(t, "user 5", topicName("   ", 5))

	long := strings.Repeat("я", 200)
	got := topicName(long, 1)
	assert.Equal(t, 128, len([]rune(got)))
}
