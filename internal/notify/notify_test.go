package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/p-blackswan/allocation-timeline/internal/errors"
)

type mockBot struct {
	channel string
	opts    int
	err     error
}

func (m *mockBot) PostMessageContext(_ context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	m.channel = channelID
	m.opts = len(options)
	return channelID, "1700000000.000100", m.err
}

type recorder struct {
	notices []Notice
	err     error
}

func (r *recorder) Notify(_ context.Context, n Notice) error {
	r.notices = append(r.notices, n)
	return r.err
}

func remoteFailure() error {
	return perrors.NewRemoteError("save_allocation",
		map[string]string{"allocation_id": "a1", "start_date": "1710064800000"},
		perrors.NewAPIError("dataservice", 503, "unavailable"))
}

func TestFromError_RemoteError(t *testing.T) {
	n := FromError("view-1", remoteFailure())
	assert.Equal(t, LevelError, n.Level)
	assert.Equal(t, "Data service save_allocation failed", n.Title)
	assert.Equal(t, "a1", n.Context["allocation_id"])
	assert.Equal(t, "view-1", n.Source)
}

func TestFromError_InvalidInput(t *testing.T) {
	n := FromError("view-1", perrors.Invalid("bad date"))
	assert.Equal(t, LevelWarning, n.Level)
	assert.Equal(t, "Request failed", n.Title)
	assert.Nil(t, n.Context)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogNotifier(zerolog.New(&buf))
	require.NoError(t, l.Notify(context.Background(), FromError("view-1", remoteFailure())))

	out := buf.String()
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, `"ctx_allocation_id":"a1"`)
	assert.Contains(t, out, `"component":"notify"`)
}

func TestSlackNotifier(t *testing.T) {
	bot := &mockBot{}
	s := NewSlackNotifierWithAPI(bot, "#timeline", zerolog.Nop())
	require.NoError(t, s.Notify(context.Background(), FromError("view-1", remoteFailure())))
	assert.Equal(t, "#timeline", bot.channel)
	assert.Equal(t, 2, bot.opts)

	bot.err = errors.New("channel_not_found")
	assert.Error(t, s.Notify(context.Background(), Notice{Title: "x"}))
}

func TestBuildNoticeBlocks(t *testing.T) {
	blocks := BuildNoticeBlocks(FromError("view-1", remoteFailure()))
	require.Len(t, blocks, 3)
	assert.Equal(t, slack.MBTSection, blocks[0].BlockType())
	assert.Equal(t, slack.MBTContext, blocks[2].BlockType())

	blocks = BuildNoticeBlocks(Notice{Level: LevelInfo, Title: "hello"})
	assert.Len(t, blocks, 1)
}

func TestMultiNotifier(t *testing.T) {
	a := &recorder{}
	b := &recorder{err: errors.New("boom")}
	m := NewMultiNotifier(a, nil, b)

	err := m.Notify(context.Background(), Notice{Title: "t"})
	assert.Error(t, err)
	assert.Len(t, a.notices, 1)
	assert.Len(t, b.notices, 1)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 2))
}
