// Package locator finds the exportable assets of a Figma page.
//
// A page is a top-level child of the file document. Inside it, every node in
// scope that has children contributes those children, and every childless node
// contributes itself. Scope is the page's children, or the children of a named
// frame when that frame exists on the page.
package locator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hellenic-development/figma-assets/pkg/figma"

	"github.com/sahilm/fuzzy"
)

// ErrPageNotFound is returned when no top-level child of the document carries the page name.
var ErrPageNotFound = errors.New("page not found")

// Asset is a reference to one exportable node.
type Asset struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Status classifies the outcome of a lookup.
type Status int

const (
	// StatusOK means at least one asset was found.
	StatusOK Status = iota
	// StatusEmpty means the page (and frame) resolved but nothing was in scope.
	StatusEmpty
	// StatusError means the lookup failed; Err says why.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Component describes a located asset that is a component of the file.
type Component struct {
	Name        string
	Description string
	Set         string // component set name; empty for standalone components
}

// Lookup is the result of locating assets. Assets is never nil. Components holds
// the located assets that are components, keyed by asset ID.
type Lookup struct {
	Status     Status
	Assets     []Asset
	Components map[string]Component
	Err        error
}

// Succeeded builds a Lookup from a list of assets, classifying an empty list as StatusEmpty.
func Succeeded(assets []Asset) Lookup {
	if len(assets) == 0 {
		return Lookup{Status: StatusEmpty, Assets: []Asset{}}
	}
	return Lookup{Status: StatusOK, Assets: assets}
}

// Failed builds a Lookup for a failed lookup.
func Failed(err error) Lookup {
	return Lookup{Status: StatusError, Assets: []Asset{}, Err: err}
}

// PageNotFoundError carries the page that was asked for and the pages the file has.
type PageNotFoundError struct {
	Page        string
	Available   []string
	Suggestions []string
}

func (e *PageNotFoundError) Error() string {
	msg := fmt.Sprintf("cannot find page %q", e.Page)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", quoteJoin(e.Suggestions))
	} else if len(e.Available) > 0 {
		msg += fmt.Sprintf(" (pages: %s)", quoteJoin(e.Available))
	}
	return msg
}

func (e *PageNotFoundError) Unwrap() error {
	return ErrPageNotFound
}

// Locate walks the document of file and returns the assets of pageName,
// optionally narrowed to frameName.
func Locate(file *figma.FileResponse, pageName, frameName string) Lookup {
	page, ok := FindPage(&file.Document, pageName)
	if !ok {
		names := PageNames(file)
		return Failed(&PageNotFoundError{
			Page:        pageName,
			Available:   names,
			Suggestions: SuggestPages(pageName, names),
		})
	}

	lookup := Succeeded(Flatten(Scope(page, frameName)))
	lookup.Components = Components(file, lookup.Assets)
	return lookup
}

// Components returns the entries of the file's components map that match assets,
// resolving each component set ID to its name. It returns nil when none match.
func Components(file *figma.FileResponse, assets []Asset) map[string]Component {
	var out map[string]Component
	for _, a := range assets {
		c, ok := file.Components[a.ID]
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[string]Component)
		}
		out[a.ID] = Component{
			Name:        c.Name,
			Description: c.Description,
			Set:         file.ComponentSets[c.ComponentSetID].Name,
		}
	}
	return out
}

// FindPage returns the first top-level child of document named pageName.
func FindPage(document *figma.Node, pageName string) (*figma.Node, bool) {
	return findChild(document, pageName)
}

// Scope returns the nodes of page to flatten. With a frameName that names one of
// the page's children, the frame's children are returned. The page's own children
// are returned when the frame is not found or has no children key at all, which is
// how the API sends leaf nodes. A frame sent with an empty children list stays empty.
func Scope(page *figma.Node, frameName string) []figma.Node {
	if frameName != "" {
		if frame, ok := findChild(page, frameName); ok && frame.Children != nil {
			return frame.Children
		}
	}
	return page.Children
}

// Flatten expands each node one level: nodes with children yield their children,
// the rest yield themselves. Document order is kept.
func Flatten(nodes []figma.Node) []Asset {
	assets := make([]Asset, 0, len(nodes))

	for _, node := range nodes {
		if len(node.Children) == 0 {
			assets = append(assets, Asset{ID: node.ID, Name: node.Name})
			continue
		}
		for _, child := range node.Children {
			assets = append(assets, Asset{ID: child.ID, Name: child.Name})
		}
	}

	return assets
}

// PageNames lists the names of the top-level children of the file document.
func PageNames(file *figma.FileResponse) []string {
	pages := file.Pages()
	names := make([]string, 0, len(pages))
	for _, p := range pages {
		names = append(names, p.Name)
	}
	return names
}

const maxSuggestions = 3

// SuggestPages returns up to three page names that fuzzily match name, best first.
func SuggestPages(name string, pages []string) []string {
	if name == "" || len(pages) == 0 {
		return nil
	}

	var suggestions []string
	seen := make(map[string]bool)
	for _, match := range fuzzy.Find(name, pages) {
		if seen[match.Str] {
			continue
		}
		seen[match.Str] = true
		suggestions = append(suggestions, match.Str)
		if len(suggestions) == maxSuggestions {
			break
		}
	}

	return suggestions
}

func findChild(parent *figma.Node, name string) (*figma.Node, bool) {
	for i := range parent.Children {
		if parent.Children[i].Name == name {
			return &parent.Children[i], true
		}
	}
	return nil, false
}

func quoteJoin(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}
