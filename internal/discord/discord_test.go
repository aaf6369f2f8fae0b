package discord

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hunterjsb/mtbot/internal/admin"
	"github.com/hunterjsb/mtbot/internal/config"
	"github.com/hunterjsb/mtbot/internal/i18n"
	"github.com/hunterjsb/mtbot/internal/motortown"
	"github.com/hunterjsb/mtbot/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// payload is the subset of interaction callback and edit bodies the tests read.
type payload struct {
	Type int `json:"type"`
	Data *struct {
		Content string `json:"content"`
		Flags   int    `json:"flags"`
	} `json:"data"`
	Content *string                   `json:"content"`
	Embeds  []*discordgo.MessageEmbed `json:"embeds"`
}

type call struct {
	Method string
	Path   string
	Body   payload
}

// recorder stands in for the Discord REST API.
type recorder struct {
	mu    sync.Mutex
	calls []call
}

func (r *recorder) RoundTrip(req *http.Request) (*http.Response, error) {
	var body payload
	if req.Body != nil {
		_ = json.NewDecoder(req.Body).Decode(&body)
	}
	r.mu.Lock()
	r.calls = append(r.calls, call{Method: req.Method, Path: req.URL.Path, Body: body})
	r.mu.Unlock()

	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(`{"id":"m1","channel_id":"c1"}`)),
		Request:    req,
	}, nil
}

func (r *recorder) recorded() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

type fakeDispatcher struct {
	authErr error
	res     *admin.Result
	err     error
	got     []admin.Request
}

func (d *fakeDispatcher) Authorize(admin.Invoker) error { return d.authErr }

func (d *fakeDispatcher) Dispatch(ctx context.Context, req admin.Request) (*admin.Result, error) {
	d.got = append(d.got, req)
	return d.res, d.err
}

type fakeRefresher struct {
	targets map[string]storage.RefreshTarget
	saveErr error
}

func (f *fakeRefresher) Start(context.Context) error { return nil }
func (f *fakeRefresher) Stop()                       {}

func (f *fakeRefresher) Register(ctx context.Context, rec storage.RefreshTarget) (bool, error) {
	if _, ok := f.targets[rec.ChannelID]; ok {
		return false, nil
	}
	if f.saveErr != nil {
		return false, f.saveErr
	}
	f.targets[rec.ChannelID] = rec
	return true, nil
}

func (f *fakeRefresher) Deregister(ctx context.Context, channelID string) (bool, error) {
	_, ok := f.targets[channelID]
	delete(f.targets, channelID)
	return ok, nil
}

func newTestBot(t *testing.T, d *fakeDispatcher) (*DiscordBot, *recorder, *fakeRefresher) {
	t.Helper()
	bot, err := NewDiscordBot(&config.Config{DiscordToken: "test"}, i18n.MustLoad("en"))
	require.NoError(t, err)

	rec := &recorder{}
	bot.Session.Client = &http.Client{Transport: rec}
	refresher := &fakeRefresher{targets: make(map[string]storage.RefreshTarget)}
	bot.Dispatcher = d
	bot.Refresher = refresher
	return bot, rec, refresher
}

func command(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        "i1",
		AppID:     "app",
		Token:     "tok",
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "g1",
		ChannelID: "c1",
		Member: &discordgo.Member{
			User:  &discordgo.User{ID: "u1", Username: "mod"},
			Roles: []string{"r-admin"},
		},
		Data: discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
	}}
}

func strOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func TestCommandsHaveHandlers(t *testing.T) {
	bot, _, _ := newTestBot(t, &fakeDispatcher{})

	require.Len(t, bot.CommandHandlers, len(commands))
	for _, cmd := range commands {
		assert.Contains(t, bot.CommandHandlers, cmd.Name)
		require.NotNil(t, cmd.DefaultMemberPermissions, cmd.Name)
	}
}

func TestInvokerFromInteraction(t *testing.T) {
	guild := command("mtkick")
	guild.Member.Permissions = discordgo.PermissionAdministrator | discordgo.PermissionSendMessages

	inv := invokerFromInteraction(guild)
	assert.Equal(t, admin.Invoker{ID: "u1", Name: "mod", InGuild: true, RoleIDs: []string{"r-admin"}, IsAdmin: true}, inv)

	dm := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		User: &discordgo.User{ID: "u2", Username: "someone"},
	}}
	assert.Equal(t, admin.Invoker{ID: "u2", Name: "someone"}, invokerFromInteraction(dm))
}

func TestBuildRequest(t *testing.T) {
	i := command("mtban", strOpt(optPlayer, "  Alice "), strOpt(optReason, "ramming"))

	req := buildRequest(admin.KindBan, i)
	assert.Equal(t, admin.KindBan, req.Kind)
	assert.Equal(t, "Alice", req.Target)
	assert.Equal(t, "ramming", req.Reason)
	assert.Empty(t, req.Text)
	assert.Equal(t, "u1", req.Invoker.ID)
}

func TestFormatBanListEmbed(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	empty := formatBanListEmbed(i18n.MustLoad("en"), nil, now)
	require.Len(t, empty.Fields, 1)
	assert.Equal(t, "Banned Players", empty.Title)
	assert.Equal(t, "No banned players", empty.Fields[0].Value)
	assert.Equal(t, "Banned Players (0)", empty.Fields[0].Name)

	bans := []motortown.BanRecord{
		{PlayerID: "7656", Name: "Mallory", Reason: "ramming"},
		{PlayerID: "7657", Name: "Trudy"},
	}
	embed := formatBanListEmbed(i18n.MustLoad("en"), bans, now)
	assert.Equal(t, "Mallory (`7656`): ramming\nTrudy (`7657`)", embed.Fields[0].Value)
	assert.Equal(t, "2024-06-01T12:00:00Z", embed.Timestamp)
}

func TestFormatBanListEmbed_Truncates(t *testing.T) {
	bans := make([]motortown.BanRecord, 200)
	for idx := range bans {
		bans[idx] = motortown.BanRecord{PlayerID: "76561198000000000", Name: "griefer"}
	}
	embed := formatBanListEmbed(i18n.MustLoad("en"), bans, time.Now())
	assert.LessOrEqual(t, len(embed.Fields[0].Value), maxEmbedFieldValue)
	assert.Contains(t, embed.Fields[0].Value, "more")
}

func TestAdminHandler_PermissionDenied(t *testing.T) {
	d := &fakeDispatcher{authErr: &admin.PermissionError{Reason: "requires the admin role"}}
	bot, rec, _ := newTestBot(t, d)

	bot.interactionHandler(bot.Session, command("mtkick", strOpt(optPlayer, "Alice")))

	assert.Empty(t, d.got)
	calls := rec.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.True(t, strings.HasSuffix(calls[0].Path, "/callback"))
	require.NotNil(t, calls[0].Body.Data)
	assert.Equal(t, "You do not have permission to use this command.", calls[0].Body.Data.Content)
	assert.Equal(t, int(discordgo.MessageFlagsEphemeral), calls[0].Body.Data.Flags)
}

func TestAdminHandler_Success(t *testing.T) {
	d := &fakeDispatcher{res: &admin.Result{Message: "Player `Alice` kicked from server."}}
	bot, rec, _ := newTestBot(t, d)

	bot.interactionHandler(bot.Session, command("mtkick", strOpt(optPlayer, "Alice")))

	require.Len(t, d.got, 1)
	assert.Equal(t, admin.KindKick, d.got[0].Kind)
	assert.Equal(t, "Alice", d.got[0].Target)

	calls := rec.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, int(discordgo.InteractionResponseDeferredChannelMessageWithSource), calls[0].Body.Type)
	assert.Equal(t, http.MethodPatch, calls[1].Method)
	require.NotNil(t, calls[1].Body.Content)
	assert.Equal(t, "Player `Alice` kicked from server.", *calls[1].Body.Content)
}

func TestAdminHandler_TransportError(t *testing.T) {
	d := &fakeDispatcher{err: &motortown.TransportError{Op: "send chat message", Status: 502}}
	bot, rec, _ := newTestBot(t, d)

	bot.interactionHandler(bot.Session, command("mtmsg", strOpt(optMessage, "hello")))

	require.Len(t, d.got, 1)
	assert.Equal(t, "hello", d.got[0].Text)

	calls := rec.recorded()
	require.Len(t, calls, 2)
	require.Len(t, calls[1].Body.Embeds, 1)
	assert.Equal(t, "Server Unreachable", calls[1].Body.Embeds[0].Title)
	assert.NotContains(t, calls[1].Body.Embeds[0].Description, "502")
}

func TestAdminHandler_ShowBanned(t *testing.T) {
	d := &fakeDispatcher{res: &admin.Result{Banned: []motortown.BanRecord{{PlayerID: "1", Name: "Mallory"}}}}
	bot, rec, _ := newTestBot(t, d)

	bot.interactionHandler(bot.Session, command("mtshowbanned"))

	calls := rec.recorded()
	require.Len(t, calls, 2)
	require.Len(t, calls[1].Body.Embeds, 1)
	assert.Equal(t, "Banned Players", calls[1].Body.Embeds[0].Title)
	assert.Contains(t, calls[1].Body.Embeds[0].Fields[0].Value, "Mallory")
}

func TestStatsHandlers(t *testing.T) {
	bot, rec, refresher := newTestBot(t, &fakeDispatcher{})

	bot.interactionHandler(bot.Session, command("showmtstats"))
	bot.interactionHandler(bot.Session, command("showmtstats"))
	require.Contains(t, refresher.targets, "c1")
	assert.Equal(t, "u1", refresher.targets["c1"].RegisteredBy)
	assert.Equal(t, "g1", refresher.targets["c1"].GuildID)

	bot.interactionHandler(bot.Session, command("removemtstats"))
	bot.interactionHandler(bot.Session, command("removemtstats"))
	assert.Empty(t, refresher.targets)

	var replies []string
	for _, c := range rec.recorded() {
		require.NotNil(t, c.Body.Data)
		assert.Equal(t, int(discordgo.MessageFlagsEphemeral), c.Body.Data.Flags)
		replies = append(replies, c.Body.Data.Content)
	}
	assert.Equal(t, []string{
		"Player statistics updates started in this channel.",
		"Player statistics updates already running in this channel.",
		"Player statistics updates stopped in this channel.",
		"Player statistics updates are not running in this channel.",
	}, replies)
}

func TestStatsHandlers_PermissionDenied(t *testing.T) {
	bot, _, refresher := newTestBot(t, &fakeDispatcher{authErr: &admin.PermissionError{Reason: "no"}})

	bot.interactionHandler(bot.Session, command("showmtstats"))
	assert.Empty(t, refresher.targets)
}

func TestShowStats_StoreFailure(t *testing.T) {
	bot, rec, refresher := newTestBot(t, &fakeDispatcher{})
	refresher.saveErr = assert.AnError

	bot.interactionHandler(bot.Session, command("showmtstats"))

	assert.Empty(t, refresher.targets)
	calls := rec.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "Could not start statistics updates. Please try again.", calls[0].Body.Data.Content)
}
