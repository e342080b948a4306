package place

const (
	SectionOverview   = "overview"
	SectionHistory    = "history"
	SectionActivities = "activities"
	SectionHowToReach = "how_to_reach"
	SectionTips       = "tips"
)

// SectionTypes is the closed set of content section type tags.
var SectionTypes = []string{
	SectionOverview,
	SectionHistory,
	SectionActivities,
	SectionHowToReach,
	SectionTips,
}

func ValidSectionType(t string) bool {
	for _, s := range SectionTypes {
		if s == t {
			return true
		}
	}
	return false
}

type BilingualText struct {
	Ar string `json:"ar"`
	En string `json:"en"`
}

func (b BilingualText) Empty() bool {
	return b.Ar == "" && b.En == ""
}

type ContentSection struct {
	Type      string        `json:"type"`
	Title     BilingualText `json:"title"`
	Body      BilingualText `json:"body"`
	SortOrder int           `json:"sort_order"`
}

// FormDocument is the accumulating place draft. It has no server identity
// until the metadata API creates the place record.
type FormDocument struct {
	ParentCategoryID uint   `json:"parent_category_id"`
	CategoryIDs      []uint `json:"category_ids"` // child categories, set semantics

	Name        BilingualText `json:"name"`
	Subtitle    BilingualText `json:"subtitle"`
	Description BilingualText `json:"description"`

	GovernorateID uint     `json:"governorate_id"`
	WilayahID     uint     `json:"wilayah_id"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`

	ContentSections []ContentSection `json:"content_sections"`

	PropertyIDs []uint `json:"property_ids"`

	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Website string `json:"website"`
}

// Patch is a partial FormDocument. Nil fields are left untouched by Apply;
// slices replace the previous value wholesale.
type Patch struct {
	ParentCategoryID *uint   `json:"parent_category_id"`
	CategoryIDs      *[]uint `json:"category_ids"`

	Name        *BilingualText `json:"name"`
	Subtitle    *BilingualText `json:"subtitle"`
	Description *BilingualText `json:"description"`

	GovernorateID *uint    `json:"governorate_id"`
	WilayahID     *uint    `json:"wilayah_id"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`

	ContentSections *[]ContentSection `json:"content_sections"`

	PropertyIDs *[]uint `json:"property_ids"`

	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
	Website *string `json:"website"`
}

// Apply merges the patch into the document. Unrelated fields are never
// touched. Category and property id slices are deduplicated on the way in.
func (d *FormDocument) Apply(p Patch) {
	if p.ParentCategoryID != nil {
		d.ParentCategoryID = *p.ParentCategoryID
	}
	if p.CategoryIDs != nil {
		d.CategoryIDs = dedupe(*p.CategoryIDs)
	}
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Subtitle != nil {
		d.Subtitle = *p.Subtitle
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.GovernorateID != nil {
		d.GovernorateID = *p.GovernorateID
	}
	if p.WilayahID != nil {
		d.WilayahID = *p.WilayahID
	}
	if p.Latitude != nil {
		d.Latitude = p.Latitude
	}
	if p.Longitude != nil {
		d.Longitude = p.Longitude
	}
	if p.ContentSections != nil {
		sections := *p.ContentSections
		for i := range sections {
			sections[i].SortOrder = i
		}
		d.ContentSections = sections
	}
	if p.PropertyIDs != nil {
		d.PropertyIDs = dedupe(*p.PropertyIDs)
	}
	if p.Phone != nil {
		d.Phone = *p.Phone
	}
	if p.Email != nil {
		d.Email = *p.Email
	}
	if p.Website != nil {
		d.Website = *p.Website
	}
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
