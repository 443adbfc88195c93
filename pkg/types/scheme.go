package types

// Scheme is the project root: one livery design for one car make. Exactly one
// scheme is open per editing session.
type Scheme struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	UserID           int64     `json:"user_id"`
	CarMakeID        int64     `json:"carmake_id"`
	BaseColor        string    `json:"base_color"`
	FinishBase       string    `json:"finish_base"`
	GuideData        GuideData `json:"guide_data"`
	ThumbnailUpdated bool      `json:"thumbnail_updated"`
	RaceUpdated      bool      `json:"race_updated"`
	DateModified     int64     `json:"date_modified"`
	LastModifiedBy   int64     `json:"last_modified_by"`
}

// GuideData holds the scheme's shape and snap defaults. Like LayerData it is
// a dynamic record merged one level deep.
type GuideData map[string]any

// Clone returns a shallow copy of the guide data record.
func (g GuideData) Clone() GuideData {
	if g == nil {
		return nil
	}
	out := make(GuideData, len(g))
	for k, v := range g {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy of the scheme.
func (s Scheme) Clone() Scheme {
	out := s
	out.GuideData = s.GuideData.Clone()
	return out
}

// Project is the payload of a full project fetch: the scheme plus its entire
// layer collection, used for initial load and for forced reloads.
type Project struct {
	Scheme Scheme  `json:"scheme"`
	Layers []Layer `json:"layers"`
}
