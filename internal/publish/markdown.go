package publish

import (
	"context"
	"errors"
	"strings"

	"reblock-cli/internal/blocks"
	"reblock-cli/internal/editor"
	"reblock-cli/internal/model"
	"reblock-cli/internal/store"
)

// FragmentSource looks up reusable blocks by id.
type FragmentSource interface {
	GetReusableBlock(ctx context.Context, id string) (model.ReusableBlock, error)
}

type RenderOptions struct {
	// KeepReferences leaves core/block references in place instead of inlining the
	// referenced content.
	KeepReferences bool
}

// ResolveResult is a block tree with reusable references replaced by their content.
type ResolveResult struct {
	Blocks []model.Block
	// Missing lists referenced ids that could not be found, in document order.
	Missing []string
}

// ResolveReferences inlines every core/block reference, recursively. A reference
// that would include itself is left as a reference.
func ResolveReferences(ctx context.Context, src FragmentSource, bs []model.Block) (ResolveResult, error) {
	var res ResolveResult
	seenMissing := map[string]bool{}
	out, err := resolve(ctx, src, bs, map[string]bool{}, &res, seenMissing)
	if err != nil {
		return ResolveResult{}, err
	}
	res.Blocks = out
	return res, nil
}

func resolve(ctx context.Context, src FragmentSource, bs []model.Block, visiting map[string]bool, res *ResolveResult, seenMissing map[string]bool) ([]model.Block, error) {
	out := make([]model.Block, 0, len(bs))
	for _, b := range bs {
		ref, ok := editor.ReusableRef(b)
		if !ok {
			inner, err := resolve(ctx, src, b.InnerBlocks, visiting, res, seenMissing)
			if err != nil {
				return nil, err
			}
			b.InnerBlocks = inner
			out = append(out, b)
			continue
		}
		if visiting[ref] {
			out = append(out, b)
			continue
		}
		rb, err := src.GetReusableBlock(ctx, ref)
		if err != nil {
			var nf store.NotFoundError
			if !errors.As(err, &nf) {
				return nil, err
			}
			if !seenMissing[ref] {
				seenMissing[ref] = true
				res.Missing = append(res.Missing, ref)
			}
			out = append(out, b)
			continue
		}
		visiting[ref] = true
		inner, err := resolve(ctx, src, blocks.Parse(rb.Content), visiting, res, seenMissing)
		delete(visiting, ref)
		if err != nil {
			return nil, err
		}
		out = append(out, inner...)
	}
	return out, nil
}

// RenderDocumentMarkdown renders a stored document as Markdown.
func RenderDocumentMarkdown(ctx context.Context, st store.Store, docID string, opt RenderOptions) (string, []string, error) {
	doc, err := st.GetDocument(ctx, strings.TrimSpace(docID))
	if err != nil {
		return "", nil, err
	}
	return renderMarkdown(ctx, st, doc.Title, doc.Content, opt)
}

// RenderReusableMarkdown renders a stored reusable block as Markdown.
func RenderReusableMarkdown(ctx context.Context, st store.Store, id string, opt RenderOptions) (string, []string, error) {
	rb, err := st.GetReusableBlock(ctx, strings.TrimSpace(id))
	if err != nil {
		return "", nil, err
	}
	return renderMarkdown(ctx, st, rb.Title, rb.Content, opt)
}

func renderMarkdown(ctx context.Context, src FragmentSource, title, content string, opt RenderOptions) (string, []string, error) {
	bs := blocks.Parse(content)
	var missing []string
	if !opt.KeepReferences {
		res, err := ResolveReferences(ctx, src, bs)
		if err != nil {
			return "", nil, err
		}
		bs, missing = res.Blocks, res.Missing
	}

	var buf strings.Builder
	if t := strings.TrimSpace(title); t != "" {
		buf.WriteString("# " + t + "\n\n")
	}
	if body := blocks.Markdown(bs); body != "" {
		buf.WriteString(body)
		buf.WriteString("\n")
	}
	return buf.String(), missing, nil
}
