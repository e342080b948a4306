package place

import (
	"strconv"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Fields maps a field path to a user-facing message. An empty map means the
// checked slice of the document is valid.
type Fields map[string]string

func (f Fields) Valid() bool { return len(f) == 0 }

func ValidateCategory(d *FormDocument) Fields {
	errs := Fields{}
	if d.ParentCategoryID == 0 {
		errs["parent_category_id"] = "primary category is required"
	}
	if len(d.CategoryIDs) == 0 {
		errs["category_ids"] = "select at least one category"
	}
	return errs
}

func ValidateBasicInfo(d *FormDocument) Fields {
	errs := Fields{}
	if d.Name.Ar == "" {
		errs["name.ar"] = "arabic name is required"
	}
	if d.Name.En == "" {
		errs["name.en"] = "english name is required"
	}
	return errs
}

func ValidateLocation(d *FormDocument) Fields {
	errs := Fields{}
	if d.GovernorateID == 0 {
		errs["governorate_id"] = "governorate is required"
	}
	if d.WilayahID == 0 {
		errs["wilayah_id"] = "wilayah is required"
	}
	if d.Latitude != nil && validate.Var(*d.Latitude, "latitude") != nil {
		errs["latitude"] = "latitude must be between -90 and 90"
	}
	if d.Longitude != nil && validate.Var(*d.Longitude, "longitude") != nil {
		errs["longitude"] = "longitude must be between -180 and 180"
	}
	if (d.Latitude == nil) != (d.Longitude == nil) {
		errs["coordinates"] = "latitude and longitude must be provided together"
	}
	return errs
}

func ValidateContent(d *FormDocument) Fields {
	errs := Fields{}
	if d.Description.Ar == "" {
		errs["description.ar"] = "arabic description is required"
	}
	if d.Description.En == "" {
		errs["description.en"] = "english description is required"
	}
	for i, s := range d.ContentSections {
		if !ValidSectionType(s.Type) {
			errs[sectionField(i, "type")] = "unknown section type"
		}
		if s.Title.Ar == "" {
			errs[sectionField(i, "title.ar")] = "arabic title is required"
		}
		if s.Title.En == "" {
			errs[sectionField(i, "title.en")] = "english title is required"
		}
	}
	return errs
}

func ValidateContact(d *FormDocument) Fields {
	errs := Fields{}
	if d.Email != "" && validate.Var(d.Email, "email") != nil {
		errs["email"] = "invalid email address"
	}
	if d.Website != "" && validate.Var(d.Website, "url") != nil {
		errs["website"] = "invalid website URL"
	}
	return errs
}

// ValidateFull is the cross-step schema run before submission.
func ValidateFull(d *FormDocument) Fields {
	errs := Fields{}
	for _, step := range []func(*FormDocument) Fields{
		ValidateCategory,
		ValidateBasicInfo,
		ValidateLocation,
		ValidateContent,
		ValidateContact,
	} {
		for k, v := range step(d) {
			errs[k] = v
		}
	}
	return errs
}

func sectionField(i int, name string) string {
	return "content_sections." + strconv.Itoa(i) + "." + name
}
