package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"saree-studio/internal/design"
	"saree-studio/internal/refimage"
	"saree-studio/internal/render"
)

type discoverer interface {
	Discover(ctx context.Context, req render.MotifRequest) render.MotifResult
}

type generator struct {
	renderer discoverer
	logger   *slog.Logger
	out      string
	zari     design.Zari
	dryRun   bool
	stdout   io.Writer
}

type summary struct {
	Saved  []string
	Failed []string
}

// run renders every preset of the given regions, one image per preset.
// Failed presets are reported and never stop the batch.
func (g *generator) run(ctx context.Context, regions []design.Region) (summary, error) {
	var sum summary
	for _, r := range regions {
		dir := filepath.Join(g.out, string(r))
		if !g.dryRun {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return sum, err
			}
		}

		for _, p := range design.PresetDesigns(r) {
			if err := ctx.Err(); err != nil {
				return sum, err
			}

			brief := briefFor(r, p, g.zari)
			if g.dryRun {
				fmt.Fprintf(g.stdout, "%s/%s\n%s\n\n", r, p.Name, design.BuildMotifPrompt(brief))
				continue
			}

			res := g.renderer.Discover(ctx, render.MotifRequest{Brief: brief, Count: 1})
			if res.Err != nil {
				return sum, res.Err
			}

			path, err := save(dir, p.Name, res)
			if err != nil {
				g.logger.Warn("preset failed", "region", r, "name", p.Name, "err", err)
				sum.Failed = append(sum.Failed, string(r)+"/"+p.Name)
				continue
			}
			g.logger.Info("preset saved", "region", r, "name", p.Name, "path", path)
			sum.Saved = append(sum.Saved, path)
		}
	}
	return sum, nil
}

func briefFor(r design.Region, p design.PresetDesign, zari design.Zari) design.MotifBrief {
	def := design.DefaultState().Region(r)
	return design.MotifBrief{
		Region:     r,
		Keyword:    p.Keyword,
		Category:   p.Category,
		Size:       def.Size,
		SizeInches: def.SizeInches,
		Zari:       zari,
		ZariLevel:  def.ZariLevel,
	}
}

func save(dir, name string, res render.MotifResult) (string, error) {
	if len(res.Images) == 0 || render.IsPlaceholder(res.Images[0]) {
		msg := "no image returned"
		if len(res.Messages) > 0 && res.Messages[0] != "" {
			msg = res.Messages[0]
		}
		return "", errors.New(msg)
	}

	in, ok := refimage.ParseDataURL(res.Images[0])
	if !ok {
		return "", errors.New("image is not a data url")
	}
	data, err := in.Bytes()
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	path := filepath.Join(dir, name+in.Extension())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
