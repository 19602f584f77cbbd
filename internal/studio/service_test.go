package studio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saree-studio/internal/design"
	"saree-studio/internal/render"
	"saree-studio/internal/session"
)

type fakeRenderer struct {
	mu        sync.Mutex
	generated []render.Request
	searched  []render.MotifRequest
	ready     error
	onRender  func(req render.Request) render.Artifact
	onSearch  func(req render.MotifRequest) render.MotifResult
}

func (f *fakeRenderer) Generate(_ context.Context, req render.Request) render.Artifact {
	f.mu.Lock()
	f.generated = append(f.generated, req)
	n := len(f.generated)
	f.mu.Unlock()

	if f.onRender != nil {
		return f.onRender(req)
	}
	return render.Artifact{
		ID:    fmt.Sprintf("art-%d", n),
		Image: fmt.Sprintf("data:image/png;base64,IMG%d", n),
		State: req.State,
		Stage: req.Stage,
	}
}

func (f *fakeRenderer) Discover(_ context.Context, req render.MotifRequest) render.MotifResult {
	f.mu.Lock()
	f.searched = append(f.searched, req)
	f.mu.Unlock()

	if f.onSearch != nil {
		return f.onSearch(req)
	}
	res := render.MotifResult{Region: req.Brief.Region, Keyword: req.Brief.Keyword}
	for i := 0; i < req.Count; i++ {
		res.Images = append(res.Images, fmt.Sprintf("data:image/png;base64,M%d", i+1))
		res.Messages = append(res.Messages, "")
	}
	return res
}

func (f *fakeRenderer) Ready() error { return f.ready }

func (f *fakeRenderer) generateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.generated)
}

func newService(t *testing.T, r *fakeRenderer) (*Service, *session.Session) {
	t.Helper()
	svc, err := New(Options{Renderer: r})
	require.NoError(t, err)
	return svc, session.NewStore(session.Options{}).Create()
}

var allColors = Colors{Body: "#8B0000", Border: "#D4AF37", Pallu: "#4A0404"}

func TestNewRequiresCredential(t *testing.T) {
	_, err := New(Options{Renderer: &fakeRenderer{ready: errors.New("api key is missing")}})
	assert.ErrorIs(t, err, ErrMissingCredential)

	_, err = New(Options{})
	assert.Error(t, err)
}

func TestApplyColorsRendersPreview(t *testing.T) {
	r := &fakeRenderer{}
	svc, sess := newService(t, r)

	out, err := svc.ApplyColors(context.Background(), sess, allColors, "")
	require.NoError(t, err)

	assert.Equal(t, StatusPreviewed, out.Status)
	require.NotNil(t, out.Artifact)
	require.Equal(t, 1, r.generateCalls())
	assert.Equal(t, design.StagePreview, r.generated[0].Stage)
	assert.Equal(t, "#D4AF37", r.generated[0].State.Border.Color)

	preview, ok := sess.Preview()
	require.True(t, ok)
	assert.Equal(t, out.Artifact.ID, preview.ID)
}

func TestApplyColorsRejectsIncompleteSet(t *testing.T) {
	r := &fakeRenderer{}
	svc, sess := newService(t, r)

	tests := []struct {
		name   string
		colors Colors
		want   error
	}{
		{"missing body", Colors{Border: "#D4AF37", Pallu: "#4A0404"}, ErrIncompleteColors},
		{"blank pallu", Colors{Body: "#8B0000", Border: "#D4AF37", Pallu: "  "}, ErrIncompleteColors},
		{"invalid border", Colors{Body: "#8B0000", Border: "gold", Pallu: "#4A0404"}, design.ErrInvalidColor},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ApplyColors(context.Background(), sess, tc.colors, "")
			assert.ErrorIs(t, err, tc.want)
			assert.Len(t, sess.State().MissingColors(), 3)
		})
	}
	assert.Zero(t, r.generateCalls())
}

func TestApplyDesignDefersWithoutColors(t *testing.T) {
	r := &fakeRenderer{}
	svc, sess := newService(t, r)

	_, err := svc.SetColor(sess, design.RegionBorder, "#D4AF37")
	require.NoError(t, err)

	out, err := svc.ApplyDesign(context.Background(), sess, DesignChoice{
		Region:  design.RegionBorder,
		Motif:   "https://cdn.example.com/temple.png",
		Pattern: "Temple Spires",
	}, "")
	require.NoError(t, err)

	assert.Equal(t, StatusDeferred, out.Status)
	assert.Equal(t, MessageDeferred, out.Message)
	assert.Nil(t, out.Artifact)
	assert.Zero(t, r.generateCalls())

	st := sess.State()
	assert.Equal(t, "https://cdn.example.com/temple.png", st.Border.MotifRef)
	assert.Equal(t, "Temple Spires", st.Border.Pattern)
	_, ok := sess.Preview()
	assert.False(t, ok)
}

func TestApplyDesignRendersWhenColorsSet(t *testing.T) {
	r := &fakeRenderer{}
	svc, sess := newService(t, r)

	_, err := svc.ApplyColors(context.Background(), sess, allColors, "")
	require.NoError(t, err)

	out, err := svc.ApplyDesign(context.Background(), sess, DesignChoice{
		Region: design.RegionPallu,
		Motif:  "data:image/png;base64,AAAA",
	}, "more peacocks")
	require.NoError(t, err)

	assert.Equal(t, StatusPreviewed, out.Status)
	require.Equal(t, 2, r.generateCalls())
	last := r.generated[1]
	assert.Equal(t, "data:image/png;base64,AAAA", last.State.Pallu.MotifRef)
	assert.Equal(t, "more peacocks", last.Custom)
}

func TestApplyDesignValidation(t *testing.T) {
	r := &fakeRenderer{}
	svc, sess := newService(t, r)

	_, err := svc.ApplyDesign(context.Background(), sess, DesignChoice{Region: "sleeve", Motif: "x"}, "")
	assert.ErrorIs(t, err, design.ErrUnknownRegion)

	_, err = svc.ApplyDesign(context.Background(), sess, DesignChoice{Region: design.RegionBody}, "")
	assert.ErrorIs(t, err, ErrEmptyMotif)

	assert.Equal(t, design.DefaultState(), sess.State())
}

func TestFailedPreviewKeepsPrevious(t *testing.T) {
	r := &fakeRenderer{}
	svc, sess := newService(t, r)

	first, err := svc.ApplyColors(context.Background(), sess, allColors, "")
	require.NoError(t, err)

	r.onRender = func(req render.Request) render.Artifact {
		return render.Artifact{ID: "ph", Image: render.StagePlaceholder(req.Stage, "x"), Placeholder: true, Message: "quota exceeded"}
	}
	out, err := svc.ApplyColors(context.Background(), sess, Colors{Body: "#000", Border: "#FFF", Pallu: "#123"}, "")
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, out.Status)
	assert.Contains(t, out.Message, "quota exceeded")
	preview, ok := sess.Preview()
	require.True(t, ok)
	assert.Equal(t, first.Artifact.ID, preview.ID)
}

func TestStalePreviewIsDiscarded(t *testing.T) {
	r := &fakeRenderer{}
	svc, sess := newService(t, r)

	r.onRender = func(req render.Request) render.Artifact {
		sess.BeginPreview()
		return render.Artifact{ID: "late", Image: "data:image/png;base64,L"}
	}

	out, err := svc.ApplyColors(context.Background(), sess, allColors, "")
	require.NoError(t, err)
	assert.Equal(t, StatusStale, out.Status)
	assert.Equal(t, MessageStale, out.Message)

	_, ok := sess.Preview()
	assert.False(t, ok)
}

func TestPreviewOverlappingUpdateLosesToNewerState(t *testing.T) {
	r := &fakeRenderer{}
	svc, sess := newService(t, r)

	var newer design.State
	r.onRender = func(req render.Request) render.Artifact {
		st, _, err := sess.UpdateAndBeginPreview(func(s *design.State) error {
			return s.SetColor(design.RegionBody, "#000080")
		})
		require.NoError(t, err)
		newer = st
		return render.Artifact{ID: "old", State: req.State, Image: "data:image/png;base64,O"}
	}

	out, err := svc.ApplyColors(context.Background(), sess, allColors, "")
	require.NoError(t, err)
	assert.Equal(t, StatusStale, out.Status)
	assert.NotEqual(t, newer.Body.Color, out.State.Body.Color)
	assert.Equal(t, "#000080", sess.State().Body.Color)

	_, ok := sess.Preview()
	assert.False(t, ok)
}

func TestSearchMotifs(t *testing.T) {
	r := &fakeRenderer{}
	svc, sess := newService(t, r)

	res, err := svc.SearchMotifs(context.Background(), sess, SearchParams{
		Region:       design.RegionBorder,
		Keyword:      " peacock feathers ",
		RegionParams: RegionParams{Category: "animal", Size: "Large"},
	})
	require.NoError(t, err)
	require.Len(t, res.Images, render.DefaultMotifCount)

	require.Len(t, r.searched, 1)
	brief := r.searched[0].Brief
	assert.Equal(t, "peacock feathers", brief.Keyword)
	assert.Equal(t, "Animal", brief.Category)
	assert.Equal(t, 3, brief.SizeInches)
	assert.Equal(t, design.ZariGold, brief.Zari)

	assert.Equal(t, "Temple", sess.State().Border.Category)

	stored, ok := sess.Motifs(design.RegionBorder)
	require.True(t, ok)
	assert.Equal(t, res.Images, stored.Images)
}

func TestSearchMotifsValidation(t *testing.T) {
	r := &fakeRenderer{}
	svc, sess := newService(t, r)

	_, err := svc.SearchMotifs(context.Background(), sess, SearchParams{Region: design.RegionBody, Keyword: "   "})
	assert.ErrorIs(t, err, ErrEmptyKeyword)

	_, err = svc.SearchMotifs(context.Background(), sess, SearchParams{Region: design.RegionBody, Keyword: "mango", RegionParams: RegionParams{Size: "Large"}})
	assert.ErrorIs(t, err, design.ErrNotApplicable)

	_, err = svc.SearchMotifs(context.Background(), sess, SearchParams{Region: design.RegionPallu, Keyword: "lotus", RegionParams: RegionParams{ZariLevel: "Blinding"}})
	assert.ErrorIs(t, err, design.ErrUnknownLevel)

	assert.Empty(t, r.searched)
}

func TestSearchMotifsSurfacesFailFast(t *testing.T) {
	cause := errors.New("no credential")
	r := &fakeRenderer{onSearch: func(req render.MotifRequest) render.MotifResult {
		return render.MotifResult{Region: req.Brief.Region, Images: make([]string, req.Count), Messages: make([]string, req.Count), Err: cause}
	}}
	svc, sess := newService(t, r)

	res, err := svc.SearchMotifs(context.Background(), sess, SearchParams{Region: design.RegionBody, Keyword: "mango", Count: 2})
	assert.ErrorIs(t, err, cause)
	assert.Len(t, res.Images, 2)
}

func TestUseMotif(t *testing.T) {
	r := &fakeRenderer{onSearch: func(req render.MotifRequest) render.MotifResult {
		return render.MotifResult{
			Region:   req.Brief.Region,
			Keyword:  req.Brief.Keyword,
			Images:   []string{"data:image/png;base64,M1", render.MotifPlaceholder(req.Brief.Region, "Body Design", 2)},
			Messages: []string{"", "failed"},
		}
	}}
	svc, sess := newService(t, r)

	_, err := svc.SearchMotifs(context.Background(), sess, SearchParams{Region: design.RegionBody, Keyword: "mango buttas", Count: 2})
	require.NoError(t, err)

	_, err = svc.UseMotif(context.Background(), sess, design.RegionBody, 1, "")
	assert.ErrorIs(t, err, ErrNoSuchMotif)
	_, err = svc.UseMotif(context.Background(), sess, design.RegionPallu, 0, "")
	assert.ErrorIs(t, err, ErrNoSuchMotif)

	out, err := svc.UseMotif(context.Background(), sess, design.RegionBody, 0, "")
	require.NoError(t, err)
	assert.Equal(t, StatusDeferred, out.Status)
	assert.Equal(t, "data:image/png;base64,M1", out.State.Body.MotifRef)
	assert.Equal(t, "Mango Buttas", out.State.Body.Pattern)
}

func TestFinalizeDesign(t *testing.T) {
	r := &fakeRenderer{}
	svc, sess := newService(t, r)

	_, err := svc.FinalizeDesign(context.Background(), sess, "")
	assert.ErrorIs(t, err, ErrIncompleteColors)
	assert.Zero(t, r.generateCalls())

	_, err = svc.ApplyColors(context.Background(), sess, allColors, "")
	require.NoError(t, err)

	out, err := svc.FinalizeDesign(context.Background(), sess, "wedding edition")
	require.NoError(t, err)
	assert.Equal(t, StatusFinalized, out.Status)

	last := r.generated[len(r.generated)-1]
	assert.Equal(t, design.StageFinal, last.Stage)
	assert.Equal(t, "wedding edition", last.Custom)

	final, ok := sess.Final()
	require.True(t, ok)
	assert.Equal(t, out.Artifact.ID, final.ID)
}

func TestBusyControlRejectsSecondRequest(t *testing.T) {
	r := &fakeRenderer{}
	svc, sess := newService(t, r)
	_, err := svc.ApplyColors(context.Background(), sess, allColors, "")
	require.NoError(t, err)

	var inner error
	r.onRender = func(req render.Request) render.Artifact {
		_, inner = svc.FinalizeDesign(context.Background(), sess, "")
		return render.Artifact{ID: "f", Image: "data:image/png;base64,F"}
	}

	_, err = svc.FinalizeDesign(context.Background(), sess, "")
	require.NoError(t, err)
	assert.ErrorIs(t, inner, ErrBusy)

	r.onRender = nil
	_, err = svc.FinalizeDesign(context.Background(), sess, "")
	assert.NoError(t, err)
}

func TestInitialPreviewUsesInitialStage(t *testing.T) {
	r := &fakeRenderer{}
	svc, sess := newService(t, r)

	_, err := svc.InitialPreview(context.Background(), sess)
	assert.ErrorIs(t, err, ErrIncompleteColors)

	for _, reg := range design.Regions() {
		_, err := svc.SetColor(sess, reg, "#8B0000")
		require.NoError(t, err)
	}
	out, err := svc.InitialPreview(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, StatusPreviewed, out.Status)
	assert.Equal(t, design.StageInitial, r.generated[0].Stage)
}

func TestMotifPatternName(t *testing.T) {
	assert.Equal(t, "Peacock Feathers", motifPatternName("  peacock   FEATHERS "))
	assert.Equal(t, "Temple Gopuram", motifPatternName("temple gopuram"))
	assert.Empty(t, motifPatternName("   "))
}

func TestSearchMotifsBoundsCount(t *testing.T) {
	r := &fakeRenderer{}
	svc, err := New(Options{Renderer: r, MotifCount: 20, MaxMotifCount: 6})
	require.NoError(t, err)
	assert.Equal(t, 6, svc.MotifCount())
	sess := session.NewStore(session.Options{}).Create()

	for _, count := range []int{-1, 7, 500, 1 << 30} {
		_, err := svc.SearchMotifs(context.Background(), sess, SearchParams{Region: design.RegionBorder, Keyword: "peacock", Count: count})
		assert.ErrorIs(t, err, ErrMotifCount, "count %d", count)
	}
	assert.Empty(t, r.searched)
	_, ok := sess.Motifs(design.RegionBorder)
	assert.False(t, ok)

	res, err := svc.SearchMotifs(context.Background(), sess, SearchParams{Region: design.RegionBorder, Keyword: "peacock", Count: 6})
	require.NoError(t, err)
	assert.Len(t, res.Images, 6)

	res, err = svc.SearchMotifs(context.Background(), sess, SearchParams{Region: design.RegionBorder, Keyword: "peacock"})
	require.NoError(t, err)
	assert.Len(t, res.Images, 6)
}

func TestDefaultMaxMotifCount(t *testing.T) {
	svc, err := New(Options{Renderer: &fakeRenderer{}})
	require.NoError(t, err)

	sess := session.NewStore(session.Options{}).Create()
	_, err = svc.SearchMotifs(context.Background(), sess, SearchParams{Region: design.RegionPallu, Keyword: "lotus", Count: DefaultMaxMotifCount + 1})
	assert.ErrorIs(t, err, ErrMotifCount)
}
