package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"saree-studio/internal/design"
	"saree-studio/internal/mediagroup"
	"saree-studio/internal/refimage"
	"saree-studio/internal/render"
	"saree-studio/internal/session"
	"saree-studio/internal/studio"
	"saree-studio/internal/telegram"
)

// Messenger is the part of the Telegram client the handler uses.
type Messenger interface {
	SendText(chatID int64, text string) error
	SendTextWithKeyboard(chatID int64, text string, kb telegram.Keyboard) (int, error)
	EditTextWithKeyboard(chatID int64, messageID int, text string, kb telegram.Keyboard) error
	AnswerCallback(callbackID, text string, alert bool) error
	SendPhoto(chatID int64, image, caption string, kb *telegram.Keyboard) error
	SendTyping(chatID int64)
	DownloadPhoto(ctx context.Context, fileID string) (refimage.Inline, error)
}

type Options struct {
	Telegram Messenger
	Studio   *studio.Service
	Sessions *session.Store
	Logger   *slog.Logger
}

type Handler struct {
	tg         Messenger
	studio     *studio.Service
	sessions   *session.Store
	logger     *slog.Logger
	aggregator *mediagroup.Aggregator
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Handler{
		tg:       opts.Telegram,
		studio:   opts.Studio,
		sessions: opts.Sessions,
		logger:   logger,
	}
}

func (h *Handler) SetMediaGroupAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, userID, msg)
	}

	if len(msg.Photo) > 0 {
		return h.handlePhoto(ctx, chatID, userID, msg)
	}

	if strings.TrimSpace(msg.Text) != "" {
		return h.tg.SendText(chatID, "Use /state to see your design or /help for commands.")
	}

	return nil
}

// HandleMediaGroup applies an album of motif uploads as one design change.
func (h *Handler) HandleMediaGroup(ctx context.Context, group mediagroup.Group) {
	regions := albumRegions(group.Caption, len(group.FileIDs))
	fileIDs := group.FileIDs[:len(regions)]
	if err := h.processUploads(ctx, group.ChatID, group.UserID, regions, fileIDs, ""); err != nil {
		h.logger.Error("media group processing failed", "err", err)
	}
	if skipped := len(group.FileIDs) - len(regions) + group.Dropped; skipped > 0 {
		_ = h.tg.SendText(group.ChatID, fmt.Sprintf("ℹ️ Only one photo per region is used; %d extra photo(s) ignored.", skipped))
	}
}

func (h *Handler) sessionFor(chatID, userID int64) *session.Session {
	return h.sessions.GetOrCreate(fmt.Sprintf("tg:%d:%d", chatID, userID))
}

func (h *Handler) handleCommand(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	sess := h.sessionFor(chatID, userID)
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		if err := h.tg.SendText(chatID, helpText); err != nil {
			return err
		}
		return h.sendMenu(chatID, userID, sess)
	case "state":
		return h.sendMenu(chatID, userID, sess)
	case "zari":
		if _, err := h.studio.SetZari(sess, args); err != nil {
			return h.replyError(chatID, err, "/zari <Gold|Silver|Copper>")
		}
		return h.sendMenu(chatID, userID, sess)
	case "colors":
		colors, err := parseColors(args)
		if err != nil {
			return h.replyError(chatID, err, "/colors <body> <border> <pallu>, e.g. /colors #8B0000 #D4AF37 #4A0404")
		}
		h.tg.SendTyping(chatID)
		out, err := h.studio.ApplyColors(ctx, sess, colors, "")
		if err != nil {
			return h.replyError(chatID, err, "")
		}
		return h.sendOutcome(chatID, out)
	case "color":
		region, value, err := splitRegion(args)
		if err != nil || value == "" {
			return h.replyError(chatID, orUsage(err), "/color <body|border|pallu> <hex>")
		}
		if _, err := h.studio.SetColor(sess, region, value); err != nil {
			return h.replyError(chatID, err, "")
		}
		return h.sendMenu(chatID, userID, sess)
	case "category":
		region, value, err := splitRegion(args)
		if err != nil || value == "" {
			return h.replyError(chatID, orUsage(err), "/category <region> <name>")
		}
		if _, err := h.studio.ConfigureRegion(sess, region, studio.RegionParams{Category: value}); err != nil {
			return h.replyError(chatID, err, "Categories: "+strings.Join(design.Categories(region), ", "))
		}
		return h.sendMenu(chatID, userID, sess)
	case "size":
		if args == "" {
			return h.replyError(chatID, errUsage, "/size <Small|Medium|Large|XLarge>")
		}
		if _, err := h.studio.ConfigureRegion(sess, design.RegionBorder, studio.RegionParams{Size: args}); err != nil {
			return h.replyError(chatID, err, "/size <Small|Medium|Large|XLarge>")
		}
		return h.sendMenu(chatID, userID, sess)
	case "level":
		region, value, err := splitRegion(args)
		if err != nil || value == "" {
			return h.replyError(chatID, orUsage(err), "/level <body|pallu> <Light|Medium|Heavy>")
		}
		if _, err := h.studio.ConfigureRegion(sess, region, studio.RegionParams{ZariLevel: value}); err != nil {
			return h.replyError(chatID, err, "")
		}
		return h.sendMenu(chatID, userID, sess)
	case "pattern":
		region, value, err := splitRegion(args)
		if err != nil || value == "" {
			return h.replyError(chatID, orUsage(err), "/pattern <region> <name>")
		}
		if _, err := h.studio.ConfigureRegion(sess, region, studio.RegionParams{Pattern: value}); err != nil {
			return h.replyError(chatID, err, "")
		}
		return h.sendMenu(chatID, userID, sess)
	case "search":
		region, keyword, err := splitRegion(args)
		if err != nil {
			return h.replyError(chatID, err, "/search <body|border|pallu> <keyword>")
		}
		return h.search(ctx, chatID, userID, sess, region, keyword)
	case "preview":
		h.tg.SendTyping(chatID)
		out, err := h.studio.InitialPreview(ctx, sess)
		if err != nil {
			return h.replyError(chatID, err, "")
		}
		return h.sendOutcome(chatID, out)
	case "finalize":
		return h.finalize(ctx, chatID, sess, args)
	case "reset":
		sess.Reset()
		_ = h.tg.SendText(chatID, "✅ Design reset.")
		return h.sendMenu(chatID, userID, sess)
	default:
		return h.tg.SendText(chatID, "❌ Unknown command. Use /help.")
	}
}

func (h *Handler) handlePhoto(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	photo := msg.Photo[len(msg.Photo)-1]

	if msg.MediaGroupID != "" && h.aggregator != nil {
		h.aggregator.Add(mediagroup.Item{
			ChatID:       chatID,
			UserID:       userID,
			MediaGroupID: msg.MediaGroupID,
			Caption:      msg.Caption,
			FileID:       photo.FileID,
		})
		return nil
	}

	region, pattern, ok := parseCaption(msg.Caption)
	if !ok {
		return h.tg.SendText(chatID, "📷 Add a caption naming the region, e.g. \"border Temple Spires\".")
	}

	return h.processUploads(ctx, chatID, userID, []design.Region{region}, []string{photo.FileID}, pattern)
}

// processUploads downloads the photos in parallel and commits them as motifs
// of the given regions. pattern names the design when a single photo is
// uploaded.
func (h *Handler) processUploads(ctx context.Context, chatID, userID int64, regions []design.Region, fileIDs []string, pattern string) error {
	if len(fileIDs) == 0 {
		return nil
	}
	h.tg.SendTyping(chatID)

	images := make([]refimage.Inline, len(fileIDs))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, fileID := range fileIDs {
		i, fileID := i, fileID
		eg.Go(func() error {
			in, err := h.tg.DownloadPhoto(egCtx, fileID)
			if err != nil {
				return err
			}
			images[i] = in
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		h.logger.Error("photo download failed", "err", err)
		return h.tg.SendText(chatID, "❌ Could not download the photo. Please send it again.")
	}

	choices := make([]studio.DesignChoice, len(images))
	for i, in := range images {
		name := pattern
		if name == "" || len(images) > 1 {
			name = "Custom " + regions[i].Title() + " motif"
		}
		choices[i] = studio.DesignChoice{Region: regions[i], Motif: in.DataURL(), Pattern: name}
	}

	sess := h.sessionFor(chatID, userID)
	out, err := h.studio.ApplyDesigns(ctx, sess, choices, "")
	if err != nil {
		return h.replyError(chatID, err, "")
	}
	return h.sendOutcome(chatID, out)
}

func (h *Handler) search(ctx context.Context, chatID, userID int64, sess *session.Session, region design.Region, keyword string) error {
	if strings.TrimSpace(keyword) == "" {
		return h.replyError(chatID, studio.ErrEmptyKeyword, "/search <body|border|pallu> <keyword>")
	}

	h.tg.SendTyping(chatID)
	_ = h.tg.SendText(chatID, fmt.Sprintf("🔎 Generating %d %s designs for %q, please wait...", h.studio.MotifCount(), region, keyword))

	res, err := h.studio.SearchMotifs(ctx, sess, studio.SearchParams{Region: region, Keyword: keyword})
	if err != nil && len(res.Images) == 0 {
		return h.replyError(chatID, err, "")
	}
	if res.Err != nil {
		return h.tg.SendText(chatID, "❌ Motif search is unavailable: "+res.Err.Error())
	}

	var failed []string
	for i, img := range res.Images {
		if render.IsPlaceholder(img) {
			failed = append(failed, strconv.Itoa(i+1))
			continue
		}
		kb := motifKeyboard(userID, region, i)
		caption := fmt.Sprintf("%s design #%d: %s", region.Title(), i+1, keyword)
		if err := h.tg.SendPhoto(chatID, img, caption, &kb); err != nil {
			h.logger.Warn("send motif failed", "slot", i+1, "err", err)
			failed = append(failed, strconv.Itoa(i+1))
		}
	}

	if len(failed) == len(res.Images) {
		return h.tg.SendText(chatID, "❌ No designs could be generated. Please try again.")
	}
	if len(failed) > 0 {
		return h.tg.SendText(chatID, fmt.Sprintf("⚠️ Designs %s could not be generated.", strings.Join(failed, ", ")))
	}
	return nil
}

func (h *Handler) finalize(ctx context.Context, chatID int64, sess *session.Session, note string) error {
	h.tg.SendTyping(chatID)
	_ = h.tg.SendText(chatID, "✨ Creating the final design, this can take a minute...")
	out, err := h.studio.FinalizeDesign(ctx, sess, note)
	if err != nil {
		return h.replyError(chatID, err, "")
	}
	return h.sendOutcome(chatID, out)
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil || q.From == nil {
		return nil
	}

	ownerID, action, args, ok := parseCallback(q.Data)
	if !ok {
		return nil
	}
	if ownerID != q.From.ID {
		_ = h.tg.AnswerCallback(q.ID, "This menu belongs to someone else.", true)
		return nil
	}

	chatID := q.Message.Chat.ID
	msgID := q.Message.MessageID
	sess := h.sessionFor(chatID, ownerID)

	menu, menuRegion := "main", design.Region("")
	var err error

	switch action {
	case "menu":
		if len(args) >= 1 {
			menu = args[0]
		}
		if len(args) >= 2 {
			menuRegion, err = design.ParseRegion(args[1])
			if err != nil {
				menu = "main"
			}
		}
		_ = h.tg.AnswerCallback(q.ID, "", false)
	case "zari":
		if len(args) >= 1 {
			_, err = h.studio.SetZari(sess, args[0])
		}
		_ = h.tg.AnswerCallback(q.ID, callbackNotice(err, "Zari updated"), err != nil)
	case "color":
		if len(args) >= 2 {
			var region design.Region
			if region, err = design.ParseRegion(args[0]); err == nil {
				_, err = h.studio.SetColor(sess, region, args[1])
			}
		}
		_ = h.tg.AnswerCallback(q.ID, callbackNotice(err, "Color saved"), err != nil)
	case "use":
		if len(args) < 2 {
			return nil
		}
		_ = h.tg.AnswerCallback(q.ID, "Applying design…", false)
		region, perr := design.ParseRegion(args[0])
		idx, ierr := strconv.Atoi(args[1])
		if perr != nil || ierr != nil {
			return nil
		}
		h.tg.SendTyping(chatID)
		out, err := h.studio.UseMotif(ctx, sess, region, idx, "")
		if err != nil {
			return h.replyError(chatID, err, "")
		}
		return h.sendOutcome(chatID, out)
	case "preview":
		_ = h.tg.AnswerCallback(q.ID, "Generating preview…", false)
		h.tg.SendTyping(chatID)
		out, err := h.studio.ApplyColors(ctx, sess, colorsOf(sess.State()), "")
		if err != nil {
			return h.replyError(chatID, err, "")
		}
		return h.sendOutcome(chatID, out)
	case "finalize":
		_ = h.tg.AnswerCallback(q.ID, "Finalizing…", false)
		return h.finalize(ctx, chatID, sess, "")
	case "reset":
		sess.Reset()
		_ = h.tg.AnswerCallback(q.ID, "Design reset", false)
	default:
		_ = h.tg.AnswerCallback(q.ID, "OK", false)
	}

	return h.renderMenu(chatID, ownerID, msgID, sess, menu, menuRegion)
}

func (h *Handler) sendMenu(chatID, userID int64, sess *session.Session) error {
	return h.renderMenu(chatID, userID, 0, sess, "main", "")
}

func (h *Handler) renderMenu(chatID, userID int64, messageID int, sess *session.Session, menu string, region design.Region) error {
	st := sess.State()
	_, hasPreview := sess.Preview()
	_, hasFinal := sess.Final()

	text := stateText(st, hasPreview, hasFinal)
	kb := menuKeyboard(userID, st, menu, region)

	if messageID != 0 {
		if err := h.tg.EditTextWithKeyboard(chatID, messageID, text, kb); err == nil {
			return nil
		}
	}
	_, err := h.tg.SendTextWithKeyboard(chatID, text, kb)
	return err
}

func (h *Handler) sendOutcome(chatID int64, out studio.Outcome) error {
	switch out.Status {
	case studio.StatusPreviewed, studio.StatusFinalized:
		art := out.Artifact
		if err := h.tg.SendPhoto(chatID, art.Image, artifactCaption(*art), nil); err != nil {
			h.logger.Error("send artifact failed", "artifact", art.ID, "err", err)
			return h.tg.SendText(chatID, "❌ The image was generated but could not be sent. Please try again.")
		}
		return nil
	case studio.StatusDeferred:
		return h.tg.SendText(chatID, "💾 "+out.Message)
	case studio.StatusStale:
		return nil
	default:
		return h.tg.SendText(chatID, "❌ "+out.Message)
	}
}

func (h *Handler) replyError(chatID int64, err error, usage string) error {
	var text string
	switch {
	case errors.Is(err, errUsage):
		text = "Usage: " + usage
	case errors.Is(err, studio.ErrBusy):
		text = "⏳ Still working on your previous request."
	case errors.Is(err, studio.ErrIncompleteColors):
		text = "🎨 " + capitalize(err.Error()) + ". Use /colors or the color buttons in /state."
	default:
		text = "⚠️ " + capitalize(err.Error())
		if usage != "" {
			text += "\n" + usage
		}
	}
	return h.tg.SendText(chatID, text)
}

func callbackNotice(err error, ok string) string {
	if err != nil {
		return capitalize(err.Error())
	}
	return ok
}

func colorsOf(st design.State) studio.Colors {
	return studio.Colors{Body: st.Body.Color, Border: st.Border.Color, Pallu: st.Pallu.Color}
}

func orUsage(err error) error {
	if err != nil {
		return err
	}
	return errUsage
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
