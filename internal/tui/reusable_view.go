package tui

import (
	"strings"

	"reblock-cli/internal/blocks"
	"reblock-cli/internal/docstore"
	"reblock-cli/internal/model"
	"reblock-cli/internal/reusable"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
)

// reusableView renders one core/block reference in the document and owns its
// controller.
type reusableView struct {
	clientID string
	ctrl     *reusable.Controller
	svc      *docstore.Service

	title textinput.Model
}

func newReusableView(clientID, ref string, svc *docstore.Service) *reusableView {
	ti := textinput.New()
	ti.Placeholder = "Title"
	ti.CharLimit = 200
	ti.Prompt = ""
	return &reusableView{
		clientID: clientID,
		ctrl:     reusable.New(ref, svc, blocks.Serializer{}),
		svc:      svc,
		title:    ti,
	}
}

func (v *reusableView) ref() string { return v.ctrl.ID() }

// beginEditing seeds the title input from the controller.
func (v *reusableView) beginEditing() {
	v.title.SetValue(v.ctrl.DisplayTitle())
	v.title.CursorEnd()
	v.title.Focus()
}

func (v *reusableView) endEditing() {
	v.title.Blur()
}

// previewBlocks is what the panel shows: the controller's blocks once loaded, else
// the fragment as stored.
func (v *reusableView) previewBlocks() []model.Block {
	if v.ctrl.Phase() != reusable.PhaseUnloaded {
		return v.ctrl.Blocks()
	}
	if frag, ok := v.svc.GetFragment(v.ref()); ok {
		return blocks.Parse(frag.Content)
	}
	return nil
}

func (v *reusableView) isTemporary() bool {
	frag, ok := v.svc.GetFragment(v.ref())
	return ok && frag.IsTemporary
}

func (v *reusableView) render(width int, selected bool, spin spinner.Model) string {
	if width < 20 {
		width = 20
	}
	inner := width - 4
	content := inner - 2

	if !v.ctrl.HasFragment() {
		var body string
		switch {
		case v.ctrl.IsFetching():
			body = spin.View() + " Loading" + glyphEllipsis()
		default:
			body = styleError().Render("Block has been deleted or is unavailable.")
		}
		return stylePanel().Width(inner).Render(body)
	}

	var header []string
	header = append(header, styleAccent().Render(glyphReusable()))
	if v.ctrl.IsEditing() {
		header = append(header, renderInputLine(content-2, v.title.View()))
	} else {
		header = append(header, lipgloss.NewStyle().Bold(true).Render(v.ctrl.DisplayTitle()))
	}
	head := strings.Join(header, " ")

	var controls []string
	switch {
	case v.ctrl.IsEditing():
		controls = append(controls,
			styleButton(true, selected).Render("Save"),
			styleButton(true, false).Render("Cancel"),
		)
	default:
		controls = append(controls, styleButton(v.ctrl.CanPersist(), selected).Render("Edit"))
		if v.ctrl.IsSaving() && !v.isTemporary() {
			controls = append(controls, styleMuted().Render("Saving"+glyphEllipsis()))
		}
	}

	preview := renderMarkdown(blocks.Markdown(v.previewBlocks()), content)
	if preview == "" {
		preview = styleMuted().Render("(empty)")
	}
	if !v.ctrl.IsEditing() {
		preview = styleMuted().Render("Disabled") + "\n" + preview
	}

	body := strings.Join([]string{
		head,
		lipgloss.JoinHorizontal(lipgloss.Top, controls...),
		styleMuted().Render(strings.Repeat(glyphHRule(), content)),
		preview,
	}, "\n")
	return stylePanel().Width(inner).Render(body)
}
