// Package studio exposes the configurator operations to front-ends. Input is
// validated before any generation call, and only the latest preview request
// of a session may publish its result.
package studio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"saree-studio/internal/design"
	"saree-studio/internal/render"
	"saree-studio/internal/session"
)

// Renderer produces images. *render.Client satisfies it.
type Renderer interface {
	Generate(ctx context.Context, req render.Request) render.Artifact
	Discover(ctx context.Context, req render.MotifRequest) render.MotifResult
}

type readiness interface {
	Ready() error
}

type Status string

const (
	StatusPreviewed Status = "previewed"
	StatusFinalized Status = "finalized"
	StatusDeferred  Status = "deferred"
	StatusStale     Status = "stale"
	StatusFailed    Status = "failed"
)

const (
	MessageDeferred = "Design saved. Select all colors to preview."
	MessageStale    = "A newer preview was requested; this result was discarded."
)

// Outcome is what a front-end shows after an operation. Artifact is nil when
// no generation call was issued.
type Outcome struct {
	Status   Status
	State    design.State
	Artifact *render.Artifact
	Message  string
}

type Colors struct {
	Body   string
	Border string
	Pallu  string
}

func (c Colors) get(r design.Region) string {
	switch r {
	case design.RegionBody:
		return c.Body
	case design.RegionBorder:
		return c.Border
	case design.RegionPallu:
		return c.Pallu
	}
	return ""
}

// DesignChoice commits a motif to a region.
type DesignChoice struct {
	Region  design.Region
	Motif   string
	Pattern string
}

// RegionParams are the auxiliary attributes of a region. Empty fields are
// left unchanged.
type RegionParams struct {
	Category  string
	Size      string
	ZariLevel string
	Pattern   string
}

type SearchParams struct {
	Region  design.Region
	Keyword string
	RegionParams
	Count int
}

// DefaultMaxMotifCount bounds the calls one search may issue.
const DefaultMaxMotifCount = 8

type Options struct {
	Renderer      Renderer
	Logger        *slog.Logger
	MotifCount    int
	MaxMotifCount int
}

type Service struct {
	renderer      Renderer
	logger        *slog.Logger
	motifCount    int
	maxMotifCount int
}

// New fails with ErrMissingCredential when the renderer reports that no call
// can succeed.
func New(opts Options) (*Service, error) {
	if opts.Renderer == nil {
		return nil, errors.New("studio: renderer is required")
	}
	if r, ok := opts.Renderer.(readiness); ok {
		if err := r.Ready(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingCredential, err)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	maxCount := opts.MaxMotifCount
	if maxCount <= 0 {
		maxCount = DefaultMaxMotifCount
	}
	count := opts.MotifCount
	if count <= 0 {
		count = render.DefaultMotifCount
	}
	if count > maxCount {
		count = maxCount
	}

	return &Service{
		renderer:      opts.Renderer,
		logger:        logger,
		motifCount:    count,
		maxMotifCount: maxCount,
	}, nil
}

func (s *Service) MotifCount() int {
	return s.motifCount
}

// SetZari changes the global zari style without generating.
func (s *Service) SetZari(sess *session.Session, zari string) (design.State, error) {
	return sess.Update(func(st *design.State) error {
		return st.SetZari(zari)
	})
}

// ConfigureRegion updates a region's auxiliary attributes without generating.
func (s *Service) ConfigureRegion(sess *session.Session, r design.Region, p RegionParams) (design.State, error) {
	return sess.Update(func(st *design.State) error {
		return applyRegionParams(st, r, p)
	})
}

// SetColor changes one region color without generating.
func (s *Service) SetColor(sess *session.Session, r design.Region, color string) (design.State, error) {
	return sess.Update(func(st *design.State) error {
		return st.SetColor(r, color)
	})
}

// ApplyColors sets all three region colors and renders a preview. An
// incomplete or invalid set is rejected without touching the state.
func (s *Service) ApplyColors(ctx context.Context, sess *session.Session, colors Colors, note string) (Outcome, error) {
	var missing []string
	for _, r := range design.Regions() {
		if strings.TrimSpace(colors.get(r)) == "" {
			missing = append(missing, string(r))
		}
	}
	if len(missing) > 0 {
		return Outcome{State: sess.State()}, fmt.Errorf("%w: missing %s", ErrIncompleteColors, strings.Join(missing, ", "))
	}

	release, err := acquire(sess, "colors")
	if err != nil {
		return Outcome{State: sess.State()}, err
	}
	defer release()

	st, seq, err := sess.UpdateAndBeginPreview(func(st *design.State) error {
		for _, r := range design.Regions() {
			if err := st.SetColor(r, colors.get(r)); err != nil {
				return fmt.Errorf("%s color: %w", r, err)
			}
		}
		return nil
	})
	if err != nil {
		return Outcome{State: st}, err
	}

	return s.preview(ctx, sess, st, seq, design.StagePreview, note), nil
}

// InitialPreview renders the simplified first impression of the current
// colors.
func (s *Service) InitialPreview(ctx context.Context, sess *session.Session) (Outcome, error) {
	st := sess.State()
	if !st.ReadyToRender() {
		return Outcome{State: st}, incomplete(st)
	}

	release, err := acquire(sess, "colors")
	if err != nil {
		return Outcome{State: st}, err
	}
	defer release()

	st, seq := sess.SnapshotPreview()
	return s.preview(ctx, sess, st, seq, design.StageInitial, ""), nil
}

// ApplyDesign commits a motif to its region and re-renders the preview when
// every color is set. Otherwise the design is saved and the outcome is
// deferred with no generation call.
func (s *Service) ApplyDesign(ctx context.Context, sess *session.Session, choice DesignChoice, note string) (Outcome, error) {
	return s.ApplyDesigns(ctx, sess, []DesignChoice{choice}, note)
}

// ApplyDesigns commits several motifs at once and renders at most one
// preview.
func (s *Service) ApplyDesigns(ctx context.Context, sess *session.Session, choices []DesignChoice, note string) (Outcome, error) {
	if len(choices) == 0 {
		return Outcome{State: sess.State()}, ErrEmptyMotif
	}
	for _, c := range choices {
		if _, err := design.ParseRegion(string(c.Region)); err != nil {
			return Outcome{State: sess.State()}, err
		}
		if strings.TrimSpace(c.Motif) == "" {
			return Outcome{State: sess.State()}, fmt.Errorf("%w for %s", ErrEmptyMotif, c.Region)
		}
	}

	release, err := acquire(sess, "design")
	if err != nil {
		return Outcome{State: sess.State()}, err
	}
	defer release()

	st, seq, err := sess.UpdateAndBeginPreview(func(st *design.State) error {
		for _, c := range choices {
			if err := st.SetMotif(c.Region, c.Motif, c.Pattern); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Outcome{State: st}, err
	}

	if !st.ReadyToRender() {
		s.logger.Info("design deferred", "session", sess.ID, "missing", st.MissingColors())
		return Outcome{Status: StatusDeferred, State: st, Message: MessageDeferred}, nil
	}

	return s.preview(ctx, sess, st, seq, design.StagePreview, note), nil
}

// UseMotif applies slot index (0-based) of the region's last search result.
func (s *Service) UseMotif(ctx context.Context, sess *session.Session, r design.Region, index int, note string) (Outcome, error) {
	res, ok := sess.Motifs(r)
	if !ok || index < 0 || index >= len(res.Images) || render.IsPlaceholder(res.Images[index]) {
		return Outcome{State: sess.State()}, fmt.Errorf("%w: %s #%d", ErrNoSuchMotif, r, index+1)
	}
	return s.ApplyDesign(ctx, sess, DesignChoice{
		Region:  r,
		Motif:   res.Images[index],
		Pattern: motifPatternName(res.Keyword),
	}, note)
}

// SearchMotifs runs motif discovery for one region. Region params override
// the session's region attributes for this search only.
func (s *Service) SearchMotifs(ctx context.Context, sess *session.Session, p SearchParams) (render.MotifResult, error) {
	keyword := strings.TrimSpace(p.Keyword)
	if keyword == "" {
		return render.MotifResult{}, ErrEmptyKeyword
	}
	if _, err := design.ParseRegion(string(p.Region)); err != nil {
		return render.MotifResult{}, err
	}
	if p.Count < 0 || p.Count > s.maxMotifCount {
		return render.MotifResult{}, fmt.Errorf("%w: %d, allowed 1 to %d", ErrMotifCount, p.Count, s.maxMotifCount)
	}

	st := sess.State()
	if err := applyRegionParams(&st, p.Region, p.RegionParams); err != nil {
		return render.MotifResult{}, err
	}

	release, err := acquire(sess, "search:"+string(p.Region))
	if err != nil {
		return render.MotifResult{}, err
	}
	defer release()

	count := p.Count
	if count <= 0 {
		count = s.motifCount
	}

	cfg := st.Region(p.Region)
	res := s.renderer.Discover(ctx, render.MotifRequest{
		Brief: design.MotifBrief{
			Region:     p.Region,
			Keyword:    keyword,
			Category:   cfg.Category,
			Size:       cfg.Size,
			SizeInches: cfg.SizeInches,
			Zari:       st.Zari,
			ZariLevel:  cfg.ZariLevel,
		},
		Count: count,
	})
	sess.SetMotifs(res)

	s.logger.Info("motif search done",
		"session", sess.ID,
		"region", p.Region,
		"count", count,
		"failed", res.Failed(),
	)

	if res.Err != nil {
		return res, res.Err
	}
	return res, nil
}

// FinalizeDesign renders the full current state with the quality tier.
func (s *Service) FinalizeDesign(ctx context.Context, sess *session.Session, note string) (Outcome, error) {
	st := sess.State()
	if !st.ReadyToRender() {
		return Outcome{State: st}, incomplete(st)
	}

	release, err := acquire(sess, "finalize")
	if err != nil {
		return Outcome{State: st}, err
	}
	defer release()

	st, seq := sess.SnapshotFinal()
	art := s.renderer.Generate(ctx, render.Request{Stage: design.StageFinal, State: st, Custom: note})

	out := Outcome{State: st, Artifact: &art}
	if err := sess.PublishFinal(seq, art); errors.Is(err, render.ErrStale) {
		out.Status = StatusStale
		out.Message = MessageStale
		return out, nil
	}

	if art.Placeholder {
		s.logger.Warn("finalize failed", "session", sess.ID, "seq", seq, "reason", art.Message)
		out.Status = StatusFailed
		out.Message = "Finalize failed: " + art.Message + ". Please try again."
		return out, nil
	}

	s.logger.Info("finalized", "session", sess.ID, "seq", seq, "artifact", art.ID)
	out.Status = StatusFinalized
	out.Message = "Final design ready."
	return out, nil
}

// preview renders st under tag seq. st and seq must come from one session
// snapshot so a newer tag never publishes an older state.
func (s *Service) preview(ctx context.Context, sess *session.Session, st design.State, seq uint64, stage design.Stage, note string) Outcome {
	art := s.renderer.Generate(ctx, render.Request{Stage: stage, State: st, Custom: note})

	out := Outcome{State: st, Artifact: &art}
	if err := sess.PublishPreview(seq, art); errors.Is(err, render.ErrStale) {
		s.logger.Info("preview discarded", "session", sess.ID, "seq", seq)
		out.Status = StatusStale
		out.Message = MessageStale
		return out
	}

	if art.Placeholder {
		s.logger.Warn("preview failed", "session", sess.ID, "seq", seq, "reason", art.Message)
		out.Status = StatusFailed
		out.Message = "Preview failed: " + art.Message + ". Please try again."
		return out
	}

	s.logger.Info("preview updated", "session", sess.ID, "seq", seq, "stage", stage, "artifact", art.ID)
	out.Status = StatusPreviewed
	out.Message = "Preview updated."
	return out
}

func applyRegionParams(st *design.State, r design.Region, p RegionParams) error {
	if v := strings.TrimSpace(p.Category); v != "" {
		if err := st.SetCategory(r, v); err != nil {
			return err
		}
	}
	if v := strings.TrimSpace(p.Size); v != "" {
		if r != design.RegionBorder {
			return fmt.Errorf("%w: size on %s", design.ErrNotApplicable, r)
		}
		if err := st.SetBorderSize(v); err != nil {
			return err
		}
	}
	if v := strings.TrimSpace(p.ZariLevel); v != "" {
		if err := st.SetZariLevel(r, v); err != nil {
			return err
		}
	}
	if v := strings.TrimSpace(p.Pattern); v != "" {
		if err := st.SetPattern(r, v); err != nil {
			return err
		}
	}
	return nil
}

func acquire(sess *session.Session, control string) (func(), error) {
	if !sess.Acquire(control) {
		return nil, fmt.Errorf("%w: %s", ErrBusy, control)
	}
	return func() { sess.Release(control) }, nil
}

func incomplete(st design.State) error {
	missing := make([]string, 0, 3)
	for _, r := range st.MissingColors() {
		missing = append(missing, string(r))
	}
	if st.Zari == "" {
		missing = append(missing, "zari")
	}
	return fmt.Errorf("%w: missing %s", ErrIncompleteColors, strings.Join(missing, ", "))
}

func motifPatternName(keyword string) string {
	return cases.Title(language.English).String(strings.Join(strings.Fields(keyword), " "))
}
