package core

// Module tags identify which supplementary content types appeared on a
// finished result page. They feed the impression log and the firehose.
const (
	ModuleWeb        = "BWEB"
	ModuleImage      = "IMAG"
	ModuleNews       = "NEWS"
	ModuleVideoNews  = "VIDS"
	ModuleSpelling   = "BSPEL"
	ModuleOverride   = "OVER"
	ModuleRelated    = "SREL"
	ModuleIndexedDoc = "AIDOC"
	ModuleBoosted    = "BOOS"
	ModuleCollection = "FCOL"
	ModuleMedline    = "MEDL"
	ModuleAgency     = "AGEN"
)

// ResultPage is the assembled output of one search request. It is created
// fresh per request and never mutated after being returned.
type ResultPage struct {
	Vertical Vertical `json:"vertical"`
	Query    string   `json:"query"`
	Page     int      `json:"page"`
	PerPage  int      `json:"per_page"`

	Results []ResultRecord `json:"results"`

	// Total is the true hit count across all pages, which may exceed the
	// number of records on this page.
	Total int `json:"total"`

	// StartRecord and EndRecord are 1-based inclusive indices of the
	// records on this page. Both are zero when the page is empty.
	StartRecord int `json:"start_record"`
	EndRecord   int `json:"end_record"`

	// SpellingSuggestion is empty when the provider offered none or when
	// the cleaned suggestion matched the cleaned query.
	SpellingSuggestion string `json:"spelling_suggestion,omitempty"`

	RelatedSearches []string `json:"related_searches,omitempty"`

	// MatchingSiteLimits are the requested site-limit terms honored by the
	// composer; DroppedSiteLimits were outside the tenant's domain set and
	// silently narrowed out of the query.
	MatchingSiteLimits []string `json:"matching_site_limits,omitempty"`
	DroppedSiteLimits  []string `json:"dropped_site_limits,omitempty"`

	Boosted            []BoostedContent    `json:"boosted,omitempty"`
	FeaturedCollection *FeaturedCollection `json:"featured_collection,omitempty"`
	NewsItems          []NewsItem          `json:"news_items,omitempty"`
	VideoNewsItems     []NewsItem          `json:"video_news_items,omitempty"`
	MedTopic           *MedTopic           `json:"med_topic,omitempty"`
	Agency             *Agency             `json:"agency,omitempty"`
	IndexedDocuments   []ResultRecord      `json:"indexed_documents,omitempty"`

	// FromLocalIndex reports whether the primary results came from the
	// local document index rather than the external provider.
	FromLocalIndex bool `json:"from_local_index,omitempty"`

	// Error carries an operator-facing indicator when the provider failed
	// and the page is a degraded empty result. The page itself is still a
	// valid, zero-total page.
	Error string `json:"error,omitempty"`
}

// Paginate fills StartRecord and EndRecord from the request offset and the
// number of records on the page.
func (p *ResultPage) Paginate(offset int) {
	if len(p.Results) == 0 {
		p.StartRecord = 0
		p.EndRecord = 0
		return
	}
	p.StartRecord = offset + 1
	p.EndRecord = p.StartRecord + len(p.Results) - 1
}

// ModuleTags computes the analytics tags for the modules present on this
// page. Tag order is stable.
func (p *ResultPage) ModuleTags() []string {
	var tags []string
	if p.Total > 0 {
		switch p.Vertical {
		case VerticalImage:
			tags = append(tags, ModuleImage)
		case VerticalNews:
			tags = append(tags, ModuleNews)
		default:
			tags = append(tags, ModuleWeb)
		}
	}
	if p.SpellingSuggestion != "" {
		tags = append(tags, ModuleOverride, ModuleSpelling)
	}
	if len(p.RelatedSearches) > 0 {
		tags = append(tags, ModuleRelated)
	}
	if p.Vertical != VerticalNews && len(p.NewsItems) > 0 {
		tags = append(tags, ModuleNews)
	}
	if len(p.VideoNewsItems) > 0 {
		tags = append(tags, ModuleVideoNews)
	}
	if len(p.IndexedDocuments) > 0 {
		tags = append(tags, ModuleIndexedDoc)
	}
	if len(p.Boosted) > 0 {
		tags = append(tags, ModuleBoosted)
	}
	if p.FeaturedCollection != nil {
		tags = append(tags, ModuleCollection)
	}
	if p.MedTopic != nil {
		tags = append(tags, ModuleMedline)
	}
	if p.Agency != nil {
		tags = append(tags, ModuleAgency)
	}
	return tags
}
