package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"submission-app/internal/domain/place"
	"submission-app/internal/logger"
)

// ErrUnauthorized marks a 401/403 from the metadata API. Callers classify it
// as a creation- or image-upload-class failure; it is never swallowed.
var ErrUnauthorized = errors.New("metadata api rejected credentials")

// APIError is a domain error carried in a success:false envelope, possibly
// alongside HTTP 200.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("metadata api error (status %d): %s", e.Status, e.Message)
}

// Entry is one row of cascade reference data (category, governorate,
// wilayah or property).
type Entry struct {
	ID     uint   `json:"id"`
	NameAr string `json:"name_ar"`
	NameEn string `json:"name_en"`
	Icon   string `json:"icon,omitempty"`
	Slug   string `json:"slug,omitempty"`
}

type CreatedSection struct {
	ID        uint   `json:"id"`
	Type      string `json:"type"`
	SortOrder int    `json:"sort_order"`
}

// CreatedPlace is the server-assigned identity returned by POST /places. It
// is required for every subsequent image-upload call.
type CreatedPlace struct {
	ID              uint             `json:"id"`
	ContentSections []CreatedSection `json:"content_sections"`
}

type sectionPayload struct {
	Type      string   `json:"type"`
	TitleAr   string   `json:"title_ar"`
	TitleEn   string   `json:"title_en"`
	BodyAr    string   `json:"body_ar,omitempty"`
	BodyEn    string   `json:"body_en,omitempty"`
	SortOrder int      `json:"sort_order"`
	Images    []string `json:"images"`
}

type createPlacePayload struct {
	CategoryIDs    []uint           `json:"category_ids"`
	NameAr         string           `json:"name_ar"`
	NameEn         string           `json:"name_en"`
	SubtitleAr     string           `json:"subtitle_ar,omitempty"`
	SubtitleEn     string           `json:"subtitle_en,omitempty"`
	DescriptionAr  string           `json:"description_ar"`
	DescriptionEn  string           `json:"description_en"`
	GovernorateID  uint             `json:"governate_id"`
	WilayahID      uint             `json:"wilayah_id"`
	Latitude       *float64         `json:"latitude,omitempty"`
	Longitude      *float64         `json:"longitude,omitempty"`
	PropertyIDs    []uint           `json:"property_ids"`
	Phone          string           `json:"phone,omitempty"`
	Email          string           `json:"email,omitempty"`
	Website        string           `json:"website,omitempty"`
	ContentSection []sectionPayload `json:"content_sections"`
}

// PlaceImage is one entry of the place-level batch registration call.
type PlaceImage struct {
	ImageURL     string `json:"image_url"`
	AltText      string `json:"alt_text"`
	IsPrimary    bool   `json:"is_primary"`
	DisplayOrder int    `json:"display_order"`
}

// SectionImage is one entry of a content-section batch registration call.
type SectionImage struct {
	ImageURL  string `json:"image_url"`
	AltTextAr string `json:"alt_text_ar"`
	AltTextEn string `json:"alt_text_en"`
	CaptionAr string `json:"caption_ar"`
	CaptionEn string `json:"caption_en"`
	SortOrder int    `json:"sort_order"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *logger.Logger
}

func NewClient(baseURL, token string, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log.With("service", "MetadataClient"),
	}
}

func (c *Client) PrimaryCategories(ctx context.Context) ([]Entry, error) {
	return c.getEntries(ctx, "/categories/primary")
}

func (c *Client) SecondaryCategories(ctx context.Context, parentID uint) ([]Entry, error) {
	return c.getEntries(ctx, fmt.Sprintf("/categories/secondary/%d", parentID))
}

func (c *Client) Governates(ctx context.Context) ([]Entry, error) {
	return c.getEntries(ctx, "/governates")
}

func (c *Client) Wilayahs(ctx context.Context, governorateID uint) ([]Entry, error) {
	return c.getEntries(ctx, fmt.Sprintf("/governates/%d/wilayahs", governorateID))
}

func (c *Client) PropertiesByCategory(ctx context.Context, categoryID uint) ([]Entry, error) {
	return c.getEntries(ctx, fmt.Sprintf("/properties/category/%d", categoryID))
}

// CreatePlace submits the metadata record: category ids (parent first),
// bilingual text, location, properties, contact and content-section text.
// Image arrays are empty at this point.
func (c *Client) CreatePlace(ctx context.Context, doc *place.FormDocument) (*CreatedPlace, error) {
	payload := createPlacePayload{
		CategoryIDs:   append([]uint{doc.ParentCategoryID}, doc.CategoryIDs...),
		NameAr:        doc.Name.Ar,
		NameEn:        doc.Name.En,
		SubtitleAr:    doc.Subtitle.Ar,
		SubtitleEn:    doc.Subtitle.En,
		DescriptionAr: doc.Description.Ar,
		DescriptionEn: doc.Description.En,
		GovernorateID: doc.GovernorateID,
		WilayahID:     doc.WilayahID,
		Latitude:      doc.Latitude,
		Longitude:     doc.Longitude,
		PropertyIDs:   doc.PropertyIDs,
		Phone:         doc.Phone,
		Email:         doc.Email,
		Website:       doc.Website,
	}
	for _, s := range doc.ContentSections {
		payload.ContentSection = append(payload.ContentSection, sectionPayload{
			Type:      s.Type,
			TitleAr:   s.Title.Ar,
			TitleEn:   s.Title.En,
			BodyAr:    s.Body.Ar,
			BodyEn:    s.Body.En,
			SortOrder: s.SortOrder,
			Images:    []string{},
		})
	}

	var created CreatedPlace
	if err := c.post(ctx, "/places", payload, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) RegisterPlaceImages(ctx context.Context, placeID uint, images []PlaceImage) error {
	body := map[string]interface{}{"images": images}
	return c.post(ctx, fmt.Sprintf("/places/%d/images", placeID), body, nil)
}

func (c *Client) RegisterSectionImages(ctx context.Context, sectionID uint, images []SectionImage) error {
	body := map[string]interface{}{"images": images}
	return c.post(ctx, fmt.Sprintf("/images/content-sections/%d/images", sectionID), body, nil)
}

func (c *Client) getEntries(ctx context.Context, path string) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := c.do(req, &entries); err != nil {
		return nil, err
	}
	// an empty dependent list is a valid result, not an error
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("metadata api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, ErrUnauthorized)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading metadata api response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decoding metadata api response: %w", err)
	}
	// success:false is a domain error even with HTTP 200
	if !env.Success || resp.StatusCode >= 400 {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decoding metadata api data: %w", err)
		}
	}
	return nil
}
