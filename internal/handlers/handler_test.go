package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saree-studio/internal/design"
	"saree-studio/internal/mediagroup"
	"saree-studio/internal/refimage"
	"saree-studio/internal/render"
	"saree-studio/internal/session"
	"saree-studio/internal/studio"
	"saree-studio/internal/telegram"
)

type sentPhoto struct {
	image   string
	caption string
	kb      *telegram.Keyboard
}

type fakeMessenger struct {
	mu        sync.Mutex
	texts     []string
	photos    []sentPhoto
	answers   []string
	edits     int
	downloads map[string]refimage.Inline
}

func (f *fakeMessenger) SendText(_ int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeMessenger) SendTextWithKeyboard(_ int64, text string, _ telegram.Keyboard) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return len(f.texts), nil
}

func (f *fakeMessenger) EditTextWithKeyboard(int64, int, string, telegram.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits++
	return nil
}

func (f *fakeMessenger) AnswerCallback(_ string, text string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeMessenger) SendPhoto(_ int64, image, caption string, kb *telegram.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos = append(f.photos, sentPhoto{image: image, caption: caption, kb: kb})
	return nil
}

func (f *fakeMessenger) SendTyping(int64) {}

func (f *fakeMessenger) DownloadPhoto(_ context.Context, fileID string) (refimage.Inline, error) {
	in, ok := f.downloads[fileID]
	if !ok {
		return refimage.Inline{}, errors.New("file not found")
	}
	return in, nil
}

func (f *fakeMessenger) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

type stubRenderer struct {
	mu        sync.Mutex
	generated []render.Request
	failSlot  int
}

func (s *stubRenderer) Generate(_ context.Context, req render.Request) render.Artifact {
	s.mu.Lock()
	s.generated = append(s.generated, req)
	n := len(s.generated)
	s.mu.Unlock()
	return render.Artifact{ID: fmt.Sprintf("a%d", n), Image: "data:image/png;base64,QQ==", State: req.State, Stage: req.Stage}
}

func (s *stubRenderer) Discover(_ context.Context, req render.MotifRequest) render.MotifResult {
	res := render.MotifResult{Region: req.Brief.Region, Keyword: req.Brief.Keyword}
	for i := 1; i <= req.Count; i++ {
		img := fmt.Sprintf("data:image/png;base64,M%d", i)
		if i == s.failSlot {
			img = render.MotifPlaceholder(req.Brief.Region, "Design", i)
		}
		res.Images = append(res.Images, img)
		res.Messages = append(res.Messages, "")
	}
	return res
}

func (s *stubRenderer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.generated)
}

const (
	testChat = int64(100)
	testUser = int64(7)
)

func newTestHandler(t *testing.T, r *stubRenderer) (*Handler, *fakeMessenger, *session.Store) {
	t.Helper()
	svc, err := studio.New(studio.Options{Renderer: r})
	require.NoError(t, err)

	msg := &fakeMessenger{downloads: map[string]refimage.Inline{
		"f1": {MediaType: "image/png", Data: "AAA="},
		"f2": {MediaType: "image/jpeg", Data: "BBB="},
		"f3": {MediaType: "image/webp", Data: "CCC="},
	}}
	store := session.NewStore(session.Options{})
	h := New(Options{Telegram: msg, Studio: svc, Sessions: store})
	return h, msg, store
}

func command(text string) telegram.Update {
	name, _, _ := strings.Cut(text, " ")
	return telegram.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: testChat},
		From:     &tgbotapi.User{ID: testUser},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func photo(fileID, caption, album string) telegram.Update {
	return telegram.Update{Message: &tgbotapi.Message{
		Caption:      caption,
		MediaGroupID: album,
		Chat:         &tgbotapi.Chat{ID: testChat},
		From:         &tgbotapi.User{ID: testUser},
		Photo:        []tgbotapi.PhotoSize{{FileID: "thumb"}, {FileID: fileID}},
	}}
}

func callback(from int64, data string) telegram.Update {
	return telegram.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: from},
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 9, Chat: &tgbotapi.Chat{ID: testChat}},
	}}
}

func sessionState(store *session.Store) design.State {
	return store.GetOrCreate(fmt.Sprintf("tg:%d:%d", testChat, testUser)).State()
}

func TestColorsCommandSendsPreview(t *testing.T) {
	r := &stubRenderer{}
	h, msg, store := newTestHandler(t, r)

	require.NoError(t, h.HandleUpdate(context.Background(), command("/colors #8B0000 #D4AF37 #4A0404")))

	assert.Equal(t, 1, r.calls())
	require.Len(t, msg.photos, 1)
	assert.Contains(t, msg.photos[0].caption, "Classic Maroon")
	assert.Equal(t, "#D4AF37", sessionState(store).Border.Color)
}

func TestColorsCommandUsage(t *testing.T) {
	r := &stubRenderer{}
	h, msg, _ := newTestHandler(t, r)

	require.NoError(t, h.HandleUpdate(context.Background(), command("/colors #8B0000")))
	assert.Contains(t, msg.lastText(), "Usage: /colors")
	assert.Zero(t, r.calls())
}

func TestPhotoUploadDefersWithoutColors(t *testing.T) {
	r := &stubRenderer{}
	h, msg, store := newTestHandler(t, r)

	require.NoError(t, h.HandleUpdate(context.Background(), photo("f1", "border Temple Spires", "")))

	assert.Zero(t, r.calls())
	assert.Contains(t, msg.lastText(), studio.MessageDeferred)
	st := sessionState(store)
	assert.Equal(t, "data:image/png;base64,AAA=", st.Border.MotifRef)
	assert.Equal(t, "Temple Spires", st.Border.Pattern)
}

func TestPhotoWithoutRegionCaption(t *testing.T) {
	r := &stubRenderer{}
	h, msg, store := newTestHandler(t, r)

	require.NoError(t, h.HandleUpdate(context.Background(), photo("f1", "", "")))
	assert.Contains(t, msg.lastText(), "caption naming the region")
	assert.False(t, sessionState(store).Border.HasDesign())
}

func TestAlbumAssignsRegionsInCaptionOrder(t *testing.T) {
	r := &stubRenderer{}
	h, _, store := newTestHandler(t, r)

	h.HandleMediaGroup(context.Background(), mediagroup.Group{
		ChatID:  testChat,
		UserID:  testUser,
		Caption: "pallu body",
		FileIDs: []string{"f1", "f2", "f3"},
	})

	st := sessionState(store)
	assert.Equal(t, "data:image/png;base64,AAA=", st.Pallu.MotifRef)
	assert.Equal(t, "data:image/jpeg;base64,BBB=", st.Body.MotifRef)
	assert.Equal(t, "data:image/webp;base64,CCC=", st.Border.MotifRef)
	assert.Zero(t, r.calls())
}

func TestSearchSendsUseButtons(t *testing.T) {
	r := &stubRenderer{failSlot: 2}
	h, msg, store := newTestHandler(t, r)

	require.NoError(t, h.HandleUpdate(context.Background(), command("/search border peacock feathers")))

	require.Len(t, msg.photos, 3)
	for _, p := range msg.photos {
		require.NotNil(t, p.kb)
	}
	data := msg.photos[1].kb.InlineKeyboard[0][0].CallbackData
	require.NotNil(t, data)
	assert.Equal(t, cb(testUser, "use", "border", "2"), *data)
	assert.Contains(t, msg.lastText(), "Designs 2 could not be generated")

	require.NoError(t, h.HandleUpdate(context.Background(), callback(testUser, *data)))
	st := sessionState(store)
	assert.Equal(t, "data:image/png;base64,M3", st.Border.MotifRef)
	assert.Equal(t, "Peacock Feathers", st.Border.Pattern)
}

func TestSearchRequiresKeyword(t *testing.T) {
	r := &stubRenderer{}
	h, msg, _ := newTestHandler(t, r)

	require.NoError(t, h.HandleUpdate(context.Background(), command("/search body")))
	assert.Contains(t, msg.lastText(), "keyword is empty")
	assert.Empty(t, msg.photos)
}

func TestCallbackOwnerCheck(t *testing.T) {
	r := &stubRenderer{}
	h, msg, store := newTestHandler(t, r)

	require.NoError(t, h.HandleUpdate(context.Background(), callback(999, cb(testUser, "zari", "Silver"))))
	require.Len(t, msg.answers, 1)
	assert.Contains(t, msg.answers[0], "someone else")
	assert.Equal(t, design.ZariGold, sessionState(store).Zari)

	require.NoError(t, h.HandleUpdate(context.Background(), callback(testUser, cb(testUser, "zari", "Silver"))))
	assert.Equal(t, design.ZariSilver, sessionState(store).Zari)
	assert.Equal(t, 1, msg.edits)
}

func TestColorCallbackAndFinalize(t *testing.T) {
	r := &stubRenderer{}
	h, msg, store := newTestHandler(t, r)
	ctx := context.Background()

	require.NoError(t, h.HandleUpdate(ctx, command("/finalize")))
	assert.Contains(t, msg.lastText(), "Use /colors")
	assert.Zero(t, r.calls())

	for _, region := range []string{"body", "border", "pallu"} {
		require.NoError(t, h.HandleUpdate(ctx, callback(testUser, cb(testUser, "color", region, "8B0000"))))
	}
	assert.True(t, sessionState(store).ReadyToRender())

	require.NoError(t, h.HandleUpdate(ctx, command("/finalize temple wedding")))
	require.Equal(t, 1, r.calls())
	assert.Equal(t, design.StageFinal, r.generated[0].Stage)
	assert.Equal(t, "temple wedding", r.generated[0].Custom)
	require.Len(t, msg.photos, 1)
	assert.Contains(t, msg.photos[0].caption, "Final design")
}

func TestRegionCommands(t *testing.T) {
	r := &stubRenderer{}
	h, msg, store := newTestHandler(t, r)
	ctx := context.Background()

	require.NoError(t, h.HandleUpdate(ctx, command("/category pallu mythical")))
	require.NoError(t, h.HandleUpdate(ctx, command("/size XLarge")))
	require.NoError(t, h.HandleUpdate(ctx, command("/level body heavy")))
	require.NoError(t, h.HandleUpdate(ctx, command("/pattern body Mango Buttas")))

	st := sessionState(store)
	assert.Equal(t, "Mythical", st.Pallu.Category)
	assert.Equal(t, 4, st.Border.SizeInches)
	assert.Equal(t, "Heavy", st.Body.ZariLevel)
	assert.Equal(t, "Mango Buttas", st.Body.Pattern)

	require.NoError(t, h.HandleUpdate(ctx, command("/level border heavy")))
	assert.Contains(t, msg.lastText(), "does not apply")

	require.NoError(t, h.HandleUpdate(ctx, command("/reset")))
	assert.Equal(t, design.DefaultState(), sessionState(store))
}
