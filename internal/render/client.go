// Package render turns design state into images through an external
// image-generation service. Every failure below this package resolves to a
// placeholder artifact; callers never need a network error branch.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"saree-studio/internal/design"
	"saree-studio/internal/gemini"
	"saree-studio/internal/refimage"
)

// ImageService is the external generator. *gemini.Client satisfies it.
type ImageService interface {
	GenerateImage(ctx context.Context, req gemini.ImageRequest) (gemini.Response, error)
}

// Encoder normalizes a motif reference; nil means "no reference available".
type Encoder interface {
	Encode(ctx context.Context, ref string) *refimage.Inline
}

// readiness is implemented by services that can tell, before any request,
// that no call can succeed (e.g. a missing credential).
type readiness interface {
	Ready() error
}

// Artifact is the immutable result of one generation call.
type Artifact struct {
	ID          string
	Image       string
	State       design.State
	Stage       design.Stage
	Model       string
	Message     string
	Placeholder bool
	CreatedAt   time.Time
}

type Request struct {
	Stage  design.Stage
	State  design.State
	Custom string
}

type Options struct {
	Service ImageService
	Encoder Encoder
	Tiers   Tiers
	// Pacer, when set, is waited on between motif discovery calls.
	Pacer  Pacer
	Logger *slog.Logger
}

type Client struct {
	service ImageService
	encoder Encoder
	tiers   Tiers
	pacer   Pacer
	logger  *slog.Logger
	now     func() time.Time
}

func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	encoder := opts.Encoder
	if encoder == nil {
		encoder = refimage.New(refimage.Options{Logger: logger})
	}

	return &Client{
		service: opts.Service,
		encoder: encoder,
		tiers:   opts.Tiers,
		pacer:   opts.Pacer,
		logger:  logger,
		now:     time.Now,
	}
}

// Ready reports a configuration problem that would make every call fail.
func (c *Client) Ready() error {
	if c == nil || c.service == nil {
		return errors.New("image service is not configured")
	}
	if r, ok := c.service.(readiness); ok {
		return r.Ready()
	}
	return nil
}

// Generate issues exactly one generation request for req and always returns
// an artifact. On failure the artifact is a placeholder whose Message holds
// the reason.
func (c *Client) Generate(ctx context.Context, req Request) Artifact {
	stage := req.Stage
	if stage == "" || stage == design.StageMotif {
		stage = design.StagePreview
	}

	art := Artifact{
		ID:        uuid.NewString(),
		State:     req.State,
		Stage:     stage,
		Model:     c.tiers.ModelFor(stage),
		CreatedAt: c.now(),
	}

	if err := c.Ready(); err != nil {
		return c.degrade(art, fmt.Sprintf("generation unavailable: %v", err))
	}

	parts, attached := c.referenceParts(ctx, stage, req.State)
	prompt := design.BuildPrompt(req.State, design.PromptOptions{
		Stage:    stage,
		Attached: attached,
		Custom:   req.Custom,
	})
	parts = append(parts, gemini.TextPart(prompt))

	c.logger.Info("generation request",
		"id", art.ID,
		"stage", stage,
		"model", art.Model,
		"parts", len(parts),
		"prompt_len", len(prompt),
	)

	resp, err := c.service.GenerateImage(ctx, gemini.ImageRequest{
		Model:       art.Model,
		Parts:       parts,
		AspectRatio: sareeAspect,
	})
	if err != nil {
		c.logger.Warn("generation failed", "id", art.ID, "stage", stage, "err", err)
		return c.degrade(art, fmt.Sprintf("generation failed: %v", err))
	}

	image := resp.DataURL()
	if image == "" {
		msg := strings.TrimSpace(resp.Text)
		if msg == "" {
			msg = "no image returned"
		}
		c.logger.Warn("generation returned no image", "id", art.ID, "stage", stage, "text", truncate(msg, 200))
		return c.degrade(art, msg)
	}

	art.Image = image
	art.Message = strings.TrimSpace(resp.Text)
	return art
}

// referenceParts encodes every region's motif concurrently and emits the
// label/image pairs in the fixed border, body, pallu order. Regions whose
// reference cannot be encoded are left out.
func (c *Client) referenceParts(ctx context.Context, stage design.Stage, st design.State) ([]gemini.Part, design.References) {
	order := design.ReferenceOrder()
	inlines := make([]*refimage.Inline, len(order))

	g, gctx := errgroup.WithContext(ctx)
	for i, region := range order {
		ref := strings.TrimSpace(st.Region(region).MotifRef)
		if ref == "" {
			continue
		}
		i, ref := i, ref
		g.Go(func() error {
			inlines[i] = c.encoder.Encode(gctx, ref)
			return nil
		})
	}
	_ = g.Wait()

	var (
		parts    []gemini.Part
		attached design.References
	)
	for i, region := range order {
		in := inlines[i]
		if in == nil {
			if st.Region(region).HasDesign() {
				c.logger.Warn("reference skipped", "region", region)
			}
			continue
		}
		parts = append(parts,
			gemini.TextPart(referenceLabel(stage, region)),
			gemini.ImagePart(in.MediaType, in.Data),
		)
		attached.Set(region)
	}
	return parts, attached
}

func (c *Client) degrade(art Artifact, msg string) Artifact {
	label := "Saree Preview"
	if art.Stage == design.StageFinal {
		label = "Final Saree"
	}
	art.Image = StagePlaceholder(art.Stage, label)
	art.Placeholder = true
	art.Message = msg
	return art
}

// truncate cuts s to at most max bytes on a rune boundary.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "…"
}
