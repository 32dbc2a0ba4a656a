package provider

// Raw response model for the external provider. Every nested field is
// optional: the provider freely omits sections, and absent fields default to
// their zero value rather than failing the parse.

// Envelope is the outermost wire shape.
type Envelope struct {
	SearchResponse *Response `json:"SearchResponse"`
}

// Response groups per-vertical sections of one provider reply.
type Response struct {
	Web   *WebSection   `json:"Web,omitempty"`
	Image *ImageSection `json:"Image,omitempty"`
	Spell *SpellSection `json:"Spell,omitempty"`
}

// WebSection carries web vertical hits.
type WebSection struct {
	Total   int         `json:"Total"`
	Offset  int         `json:"Offset"`
	Results []WebResult `json:"Results"`
}

// WebResult is a single web hit. Title is the only field a usable result must
// carry; everything else is absent-tolerant.
type WebResult struct {
	Title       string     `json:"Title"`
	Description string     `json:"Description"`
	URL         string     `json:"Url"`
	DisplayURL  string     `json:"DisplayUrl"`
	CacheURL    string     `json:"CacheUrl"`
	DateTime    string     `json:"DateTime"`
	DeepLinks   []DeepLink `json:"DeepLinks"`
}

// DeepLink is a provider-supplied nested link under a web result.
type DeepLink struct {
	Title string `json:"Title"`
	URL   string `json:"Url"`
}

// ImageSection carries image vertical hits.
type ImageSection struct {
	Total   int           `json:"Total"`
	Offset  int           `json:"Offset"`
	Results []ImageResult `json:"Results"`
}

// ImageResult is a single image hit with its thumbnail descriptor.
type ImageResult struct {
	Title       string         `json:"Title"`
	MediaURL    string         `json:"MediaUrl"`
	URL         string         `json:"Url"`
	DisplayURL  string         `json:"DisplayUrl"`
	ContentType string         `json:"ContentType"`
	Width       int            `json:"Width"`
	Height      int            `json:"Height"`
	FileSize    int            `json:"FileSize"`
	Thumbnail   *ThumbnailInfo `json:"Thumbnail"`
}

// ThumbnailInfo describes an image result's preview asset.
type ThumbnailInfo struct {
	URL         string `json:"Url"`
	ContentType string `json:"ContentType"`
	Width       int    `json:"Width"`
	Height      int    `json:"Height"`
	FileSize    int    `json:"FileSize"`
}

// SpellSection carries spelling suggestion candidates.
type SpellSection struct {
	Results []SpellResult `json:"Results"`
}

// SpellResult is one suggestion candidate.
type SpellResult struct {
	Value string `json:"Value"`
}

// WebTotal returns the web hit count, zero when the section or its results
// are absent.
func (r *Response) WebTotal() int {
	if r == nil || r.Web == nil || len(r.Web.Results) == 0 {
		return 0
	}
	return r.Web.Total
}

// WebOffset returns the provider-reported offset, zero when absent.
func (r *Response) WebOffset() int {
	if r == nil || r.Web == nil || len(r.Web.Results) == 0 {
		return 0
	}
	return r.Web.Offset
}

// ImageTotal returns the image hit count, zero when absent.
func (r *Response) ImageTotal() int {
	if r == nil || r.Image == nil || len(r.Image.Results) == 0 {
		return 0
	}
	return r.Image.Total
}

// FirstSpellingCandidate returns the first spelling suggestion, or empty when
// none was offered.
func (r *Response) FirstSpellingCandidate() string {
	if r == nil || r.Spell == nil || len(r.Spell.Results) == 0 {
		return ""
	}
	return r.Spell.Results[0].Value
}
