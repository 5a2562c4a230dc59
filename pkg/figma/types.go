package figma

// Version is the release of the figma-assets tool.
const Version = "0.3.0"

// FileResponse represents the complete response from the Figma file API endpoint.
// It contains the file metadata, the document tree and the component registries.
type FileResponse struct {
	Name          string                  `json:"name"`
	Role          string                  `json:"role"`
	LastModified  string                  `json:"lastModified"`
	EditorType    string                  `json:"editorType"`
	ThumbnailURL  string                  `json:"thumbnailUrl"`
	Version       string                  `json:"version"`
	Document      Node                    `json:"document"`
	SchemaVersion int                     `json:"schemaVersion"`
	MainFileKey   string                  `json:"mainFileKey,omitempty"`
	Components    map[string]Component    `json:"components,omitempty"`
	ComponentSets map[string]ComponentSet `json:"componentSets,omitempty"`
}

// Pages returns the top-level children of the document, which Figma calls pages (CANVAS nodes).
func (f *FileResponse) Pages() []Node {
	return f.Document.Children
}

// Node represents a single element in the Figma document tree hierarchy.
// Only the attributes needed to locate exportable assets are decoded.
type Node struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	Visible        *bool  `json:"visible,omitempty"`
	ScrollBehavior string `json:"scrollBehavior,omitempty"`
	BlendMode      string `json:"blendMode,omitempty"`
	Children       []Node `json:"children,omitempty"`
}

// Component is an entry of the file's components map, keyed by node ID.
type Component struct {
	Key            string `json:"key"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	ComponentSetID string `json:"componentSetId,omitempty"`
	Remote         bool   `json:"remote,omitempty"`
}

// ComponentSet groups the variants of a component.
type ComponentSet struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Remote      bool   `json:"remote,omitempty"`
}

// ImagesResponse represents the response from the Figma render (images) endpoint.
// Images maps node IDs to short-lived download URLs. A null URL (render still
// pending or failed) decodes to the empty string.
type ImagesResponse struct {
	Err    string            `json:"err,omitempty"`
	Status int               `json:"status,omitempty"`
	Images map[string]string `json:"images"`
}
