package story

// Choice is one outgoing option from a scene. Choices drive the interactive
// reader only; pagination ignores them.
type Choice struct {
	Label string `json:"label"`
	Next  int    `json:"next,omitempty"`
}

// Scene is one unit of narrative progress. ImageURL empty means the scene has
// no illustration, which is a valid state, not an error.
type Scene struct {
	Index    int      `json:"index"`
	Text     string   `json:"text"`
	ImageURL string   `json:"image_url,omitempty"`
	Choices  []Choice `json:"choices,omitempty"`
}

// HasImage reports whether the scene carries an illustration reference.
func (s Scene) HasImage() bool { return s.ImageURL != "" }

// Story holds the metadata of one story. Once Finished is set the scene
// sequence is immutable and the layout compiler may run.
type Story struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Language      string `json:"language"`
	Genre         string `json:"genre"`
	Maturity      string `json:"maturity,omitempty"`
	CoverImageURL string `json:"cover_image_url,omitempty"`
	EndingType    string `json:"ending_type,omitempty"`
	Finished      bool   `json:"finished"`
}
