// Package genview decodes the structured UI description produced by the
// generative collaborator from a snapshot and a cognitive mode. The producer
// is a language model, so the decoder is deliberately tolerant: markdown
// fences are stripped, and malformed or unknown component entries are
// flagged rather than failing the whole document.
package genview

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Mode is a cognitive simplification mode selected by the user.
type Mode string

const (
	ModeZen  Mode = "zen"
	ModeFlow Mode = "flow"
	ModeADHD Mode = "adhd"
)

// ValidMode reports whether m is one of the supported modes.
func ValidMode(m Mode) bool {
	return m == ModeZen || m == ModeFlow || m == ModeADHD
}

// Known component types. "action" is a legacy alias for "button" still
// emitted by older prompts.
const (
	TypeContainer = "container"
	TypeCard      = "card"
	TypeText      = "text"
	TypeButton    = "button"
	TypeHeader    = "header"
	TypeList      = "list"
)

var knownTypes = map[string]bool{
	TypeContainer: true,
	TypeCard:      true,
	TypeText:      true,
	TypeButton:    true,
	TypeHeader:    true,
	TypeList:      true,
}

// Component is one node of the dynamic view tree. Fields are type-specific;
// unused ones stay zero. Invalid marks entries the renderer must visibly
// flag instead of drawing.
type Component struct {
	Type        string      `json:"type"`
	Title       string      `json:"title,omitempty"`
	Body        string      `json:"body,omitempty"`
	Content     string      `json:"content,omitempty"`
	Label       string      `json:"label,omitempty"`
	ActionToken string      `json:"actionToken,omitempty"`
	Icon        string      `json:"icon,omitempty"`
	Variant     string      `json:"variant,omitempty"`
	Items       []string    `json:"items,omitempty"`
	Children    []Component `json:"children,omitempty"`

	Invalid bool   `json:"-"`
	Problem string `json:"-"`
}

// View is the decoded document: {layout, components:[...]}.
type View struct {
	Layout     string      `json:"layout"`
	Components []Component `json:"components"`

	// Problems collects per-entry decode issues. A non-empty slice does not
	// make the view unusable; flagged components render as placeholders.
	Problems []string `json:"-"`
}

// Parse decodes raw collaborator output. It returns an error only when the
// document as a whole is unusable (not a JSON object, or no components);
// individual bad entries are flagged and kept in place.
func Parse(raw []byte) (*View, error) {
	cleaned := stripFences(string(raw))

	var doc struct {
		Layout     string            `json:"layout"`
		Components []json.RawMessage `json:"components"`
	}
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, fmt.Errorf("view description is not valid JSON: %w", err)
	}
	if len(doc.Components) == 0 {
		return nil, fmt.Errorf("view description has no components")
	}

	view := &View{Layout: doc.Layout}
	for i, entry := range doc.Components {
		comp := decodeComponent(entry)
		if comp.Invalid {
			view.Problems = append(view.Problems, fmt.Sprintf("component %d: %s", i, comp.Problem))
		}
		view.Components = append(view.Components, comp)
	}
	return view, nil
}

func decodeComponent(raw json.RawMessage) Component {
	var comp Component
	if err := json.Unmarshal(raw, &comp); err != nil {
		return Component{Invalid: true, Problem: err.Error()}
	}

	return revalidate(comp)
}

// revalidate normalizes the legacy "action" alias and flags unknown types,
// recursing through children (which arrive already typed via the Component
// decode).
func revalidate(comp Component) Component {
	if comp.Type == "action" {
		comp.Type = TypeButton
	} else if !knownTypes[comp.Type] {
		comp.Invalid = true
		comp.Problem = fmt.Sprintf("unknown component type %q", comp.Type)
	}
	for i := range comp.Children {
		comp.Children[i] = revalidate(comp.Children[i])
	}
	return comp
}

// stripFences removes a surrounding markdown code fence, which the model
// frequently wraps its JSON in despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
