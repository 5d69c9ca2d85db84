package book

import "time"

// LayoutVersion is bumped whenever the persisted page document shape changes.
const LayoutVersion = 2

// PageKind tags the variant of a page.
type PageKind string

const (
	PageFrontCover PageKind = "front_cover"
	PageTitle      PageKind = "title"
	PageContent    PageKind = "content"
	PageBackCover  PageKind = "back_cover"
)

// ImagePosition says where a content page places its illustration.
type ImagePosition string

const (
	ImageTop    ImagePosition = "top"
	ImageBottom ImagePosition = "bottom"
)

// Page is one visual unit in the rendered book. Content pages carry
// paragraphs and scene provenance; cover/title/back pages are synthesized and
// carry no narrative text. Number is assigned to content pages only, starting
// at 1, strictly increasing with no gaps.
type Page struct {
	Kind          PageKind      `json:"kind"`
	Number        int           `json:"number,omitempty"`
	Paragraphs    []string      `json:"paragraphs,omitempty"`
	ShowImage     bool          `json:"show_image,omitempty"`
	ImageURL      string        `json:"image_url,omitempty"`
	ImagePosition ImagePosition `json:"image_position,omitempty"`
	SceneIndex    int           `json:"scene_index"`
	FirstOfScene  bool          `json:"first_of_scene,omitempty"`
	Continuation  bool          `json:"continuation,omitempty"`

	// Title page / back cover fields.
	Title       string `json:"title,omitempty"`
	EndingLabel string `json:"ending_label,omitempty"`
	Quote       string `json:"quote,omitempty"`
}

// Layout is the persisted, versioned page document for a finalized story.
// Once written it is the canonical rendering source; re-compiling the same
// finalized story must reproduce the same page list.
type Layout struct {
	Version       int       `json:"version"`
	StoryID       string    `json:"story_id"`
	Title         string    `json:"title"`
	Language      string    `json:"language"`
	Genre         string    `json:"genre"`
	CoverImageURL string    `json:"cover_image_url,omitempty"`
	EndingType    string    `json:"ending_type,omitempty"`
	TotalPages    int       `json:"total_pages"`
	Pages         []Page    `json:"pages"`
	CompiledAt    time.Time `json:"compiled_at"`
}
