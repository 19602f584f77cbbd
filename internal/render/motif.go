package render

import (
	"context"
	"fmt"
	"strings"

	"saree-studio/internal/design"
	"saree-studio/internal/gemini"
)

const DefaultMotifCount = 4

// Pacer spaces out sequential calls. *rate.Limiter satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
}

type MotifRequest struct {
	Brief design.MotifBrief
	Count int
}

// MotifResult always holds exactly Count images in request order. Messages
// is parallel to Images and is empty for slots that succeeded. Err is set
// only when no request could be attempted at all.
type MotifResult struct {
	Region   design.Region
	Keyword  string
	Images   []string
	Messages []string
	Err      error
}

// Failed counts placeholder slots.
func (r MotifResult) Failed() int {
	n := 0
	for _, img := range r.Images {
		if IsPlaceholder(img) {
			n++
		}
	}
	return n
}

// Discover issues Count independent single-motif requests one at a time. A
// failed slot becomes a placeholder and never aborts the slots after it.
func (c *Client) Discover(ctx context.Context, req MotifRequest) MotifResult {
	count := req.Count
	if count <= 0 {
		count = DefaultMotifCount
	}

	brief := req.Brief
	res := MotifResult{
		Region:   brief.Region,
		Keyword:  strings.TrimSpace(brief.Keyword),
		Images:   make([]string, count),
		Messages: make([]string, count),
	}
	label := brief.Region.Title() + " Design"

	if err := c.Ready(); err != nil {
		for i := range res.Images {
			res.Images[i] = MotifPlaceholder(brief.Region, label, i+1)
			res.Messages[i] = err.Error()
		}
		res.Err = fmt.Errorf("motif discovery: %w", err)
		return res
	}

	prompt := design.BuildMotifPrompt(brief)
	model := c.tiers.ModelFor(design.StageMotif)

	c.logger.Info("motif discovery",
		"region", brief.Region,
		"keyword", res.Keyword,
		"count", count,
		"model", model,
	)

	for i := 0; i < count; i++ {
		slot := i + 1
		if i > 0 && c.pacer != nil {
			if err := c.pacer.Wait(ctx); err != nil {
				res.Images[i] = MotifPlaceholder(brief.Region, label, slot)
				res.Messages[i] = err.Error()
				continue
			}
		}

		resp, err := c.service.GenerateImage(ctx, gemini.ImageRequest{
			Model:       model,
			Parts:       []gemini.Part{gemini.TextPart(prompt)},
			AspectRatio: motifAspect(brief.Region),
		})
		if err != nil {
			c.logger.Warn("motif slot failed", "region", brief.Region, "slot", slot, "err", err)
			res.Images[i] = MotifPlaceholder(brief.Region, label, slot)
			res.Messages[i] = err.Error()
			continue
		}

		image := resp.DataURL()
		if image == "" {
			msg := strings.TrimSpace(resp.Text)
			if msg == "" {
				msg = "no image returned"
			}
			c.logger.Warn("motif slot returned no image", "region", brief.Region, "slot", slot)
			res.Images[i] = MotifPlaceholder(brief.Region, label, slot)
			res.Messages[i] = msg
			continue
		}
		res.Images[i] = image
	}

	return res
}
