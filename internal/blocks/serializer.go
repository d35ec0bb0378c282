package blocks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"reblock-cli/internal/model"
)

const (
	defaultNamespace = "core/"
	freeformName     = "core/freeform"
)

// delimiterRE matches block comment delimiters:
//
//	<!-- wp:name {"a":1} -->   opener
//	<!-- wp:name {"a":1} /-->  void
//	<!-- /wp:name -->          closer
var delimiterRE = regexp.MustCompile(`<!--\s+(/)?wp:([a-z][a-z0-9_-]*(?:/[a-z][a-z0-9_-]*)?)\s+(?:(\{(?:[^-]|-[^-])*?\})\s+)?(/)?-->`)

// ParseError describes markup that the lenient parser had to repair.
type ParseError struct {
	Offset int
	Msg    string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("block markup: %s (offset %d)", e.Msg, e.Offset)
}

// Serializer is the content serializer used by editors and reusable block controllers.
type Serializer struct{}

func (Serializer) Parse(content string) []model.Block { return Parse(content) }

func (Serializer) Serialize(blocks []model.Block) string { return Serialize(blocks) }

// Parse turns serialized content into a block tree. It never fails: unknown or
// broken markup degrades to freeform text, unclosed blocks are closed at the end of input.
func Parse(content string) []model.Block {
	out, _ := parse(content)
	return out
}

// ParseStrict is Parse, but reports the first repair the parser had to make.
func ParseStrict(content string) ([]model.Block, error) {
	out, errs := parse(content)
	if len(errs) > 0 {
		return out, errs[0]
	}
	return out, nil
}

type frame struct {
	block     model.Block
	fragments []string
}

func (f *frame) finish() model.Block {
	b := f.block
	b.InnerHTML = joinFragments(f.fragments)
	return b
}

func parse(content string) ([]model.Block, []ParseError) {
	var (
		top     []model.Block
		topText []string
		stack   []*frame
		errs    []ParseError
	)

	flushTopText := func() {
		if txt := joinFragments(topText); txt != "" {
			top = append(top, model.Block{Name: freeformName, InnerHTML: txt})
		}
		topText = nil
	}
	addText := func(s string) {
		if len(stack) == 0 {
			topText = append(topText, s)
			return
		}
		cur := stack[len(stack)-1]
		cur.fragments = append(cur.fragments, s)
	}
	addBlock := func(b model.Block) {
		if len(stack) == 0 {
			flushTopText()
			top = append(top, b)
			return
		}
		cur := stack[len(stack)-1]
		cur.block.InnerBlocks = append(cur.block.InnerBlocks, b)
	}

	pos := 0
	for _, m := range delimiterRE.FindAllStringSubmatchIndex(content, -1) {
		start, end := m[0], m[1]
		if start > pos {
			addText(content[pos:start])
		}
		pos = end

		raw := content[start:end]
		isCloser := m[2] >= 0
		name := normalizeName(content[m[4]:m[5]])
		isVoid := m[8] >= 0

		var attrs map[string]any
		if m[6] >= 0 {
			a, err := decodeAttributes(content[m[6]:m[7]])
			if err != nil {
				errs = append(errs, ParseError{Offset: start, Msg: "invalid attributes for " + name})
				addText(raw)
				continue
			}
			attrs = a
		}

		switch {
		case isCloser:
			idx := -1
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].block.Name == name {
					idx = i
					break
				}
			}
			if idx < 0 {
				errs = append(errs, ParseError{Offset: start, Msg: "unexpected closer for " + name})
				addText(raw)
				continue
			}
			for len(stack)-1 > idx {
				errs = append(errs, ParseError{Offset: start, Msg: "unclosed block " + stack[len(stack)-1].block.Name})
				closed := stack[len(stack)-1].finish()
				stack = stack[:len(stack)-1]
				addBlock(closed)
			}
			closed := stack[len(stack)-1].finish()
			stack = stack[:len(stack)-1]
			addBlock(closed)
		case isVoid:
			addBlock(model.Block{Name: name, Attributes: attrs})
		default:
			stack = append(stack, &frame{block: model.Block{Name: name, Attributes: attrs}})
		}
	}
	if pos < len(content) {
		addText(content[pos:])
	}
	for len(stack) > 0 {
		errs = append(errs, ParseError{Offset: len(content), Msg: "unclosed block " + stack[len(stack)-1].block.Name})
		closed := stack[len(stack)-1].finish()
		stack = stack[:len(stack)-1]
		addBlock(closed)
	}
	flushTopText()

	if top == nil {
		top = []model.Block{}
	}
	return top, errs
}

func joinFragments(fragments []string) string {
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, "\n")
}

func decodeAttributes(s string) (map[string]any, error) {
	var attrs map[string]any
	if err := json.Unmarshal([]byte(s), &attrs); err != nil {
		return nil, err
	}
	if len(attrs) == 0 {
		return nil, nil
	}
	return attrs, nil
}

func normalizeName(name string) string {
	if !strings.Contains(name, "/") {
		return defaultNamespace + name
	}
	return name
}

func serializedName(name string) string {
	return strings.TrimPrefix(name, defaultNamespace)
}

// Serialize renders a block tree in canonical delimiter form.
func Serialize(blocks []model.Block) string {
	parts := make([]string, 0, len(blocks))
	for i, b := range blocks {
		if bareFreeform(blocks, i) {
			parts = append(parts, strings.TrimSpace(b.InnerHTML))
			continue
		}
		parts = append(parts, serializeBlock(b))
	}
	return strings.Join(parts, "\n\n")
}

// bareFreeform reports whether blocks[i] can be written as plain text and
// still parse back to the same block. Nested freeform, freeform carrying
// attributes or children, and freeform next to another freeform (which
// would merge on parse) keep their delimiters.
func bareFreeform(blocks []model.Block, i int) bool {
	b := blocks[i]
	if b.Name != freeformName || len(b.Attributes) > 0 || len(b.InnerBlocks) > 0 {
		return false
	}
	if strings.TrimSpace(b.InnerHTML) == "" {
		return false
	}
	if i > 0 && blocks[i-1].Name == freeformName {
		return false
	}
	if i+1 < len(blocks) && blocks[i+1].Name == freeformName {
		return false
	}
	return true
}

func serializeBlock(b model.Block) string {
	var sb strings.Builder
	sb.WriteString("<!-- wp:")
	sb.WriteString(serializedName(b.Name))
	sb.WriteString(" ")
	if len(b.Attributes) > 0 {
		sb.WriteString(encodeAttributes(b.Attributes))
		sb.WriteString(" ")
	}

	inner := strings.TrimSpace(b.InnerHTML)
	if inner == "" && len(b.InnerBlocks) == 0 {
		sb.WriteString("/-->")
		return sb.String()
	}
	sb.WriteString("-->\n")
	if inner != "" {
		sb.WriteString(inner)
		sb.WriteString("\n")
	}
	for _, child := range b.InnerBlocks {
		sb.WriteString(serializeBlock(child))
		sb.WriteString("\n")
	}
	sb.WriteString("<!-- /wp:")
	sb.WriteString(serializedName(b.Name))
	sb.WriteString(" -->")
	return sb.String()
}

func encodeAttributes(attrs map[string]any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(attrs); err != nil {
		return "{}"
	}
	s := strings.TrimSpace(buf.String())
	// "--" would end the HTML comment early.
	return strings.ReplaceAll(s, "--", `\u002d\u002d`)
}

// Equivalent reports whether two trees are structurally equal, ignoring client ids.
func Equivalent(a, b []model.Block) bool {
	return reflect.DeepEqual(StripClientIDs(a), StripClientIDs(b))
}

// StripClientIDs returns a deep copy of blocks with every ClientID cleared.
func StripClientIDs(blocks []model.Block) []model.Block {
	if blocks == nil {
		return nil
	}
	out := make([]model.Block, len(blocks))
	for i, b := range blocks {
		b.ClientID = ""
		b.InnerBlocks = StripClientIDs(b.InnerBlocks)
		out[i] = b
	}
	return out
}
