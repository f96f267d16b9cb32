package igsdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/mrbar76/ALPENSIMULATOR/internal/model"
)

// DefaultBaseURL is the public IGSDB API endpoint.
const DefaultBaseURL = "https://igsdb.lbl.gov/api/v1"

// Client resolves glass metadata against the IGSDB HTTP API. Resolution is
// two requests: the NFRC id is first mapped to a product id, then the
// product record is fetched and reduced to the fields the generator needs.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// NewClient returns a Client with a bounded request timeout.
func NewClient(apiKey string) *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

type productSummary struct {
	ProductID int `json:"product_id"`
}

type productRecord struct {
	Thickness    float64 `json:"thickness"` // inches in the top-level record
	Manufacturer any     `json:"manufacturer"`
	MfrName      string  `json:"manufacturer_name"`
	CoatedSide   string  `json:"coated_side"`
	CoatingName  string  `json:"coating_name"`
	MeasuredData struct {
		Thickness  *float64 `json:"thickness"` // mm when measured
		Emissivity *float64 `json:"emissivity_back"`
	} `json:"measured_data"`
	Layers []struct {
		Type     string `json:"type"`
		Location string `json:"location"`
	} `json:"layers"`
}

// Resolve implements Provider. An id absent from the catalog is a miss, not
// an error; transport and decode failures are errors.
func (c *Client) Resolve(ctx context.Context, id int) (Metadata, bool, error) {
	pid, ok, err := c.productID(ctx, id)
	if err != nil || !ok {
		return Metadata{}, false, err
	}

	var rec productRecord
	if err := c.getJSON(ctx, fmt.Sprintf("%s/products/%d/", c.BaseURL, pid), &rec); err != nil {
		return Metadata{}, false, err
	}

	meta := Metadata{
		ThicknessMM:  rec.Thickness * model.MMPerInch,
		Manufacturer: manufacturerName(rec),
		Emissivity:   rec.MeasuredData.Emissivity,
	}
	if rec.MeasuredData.Thickness != nil {
		meta.ThicknessMM = *rec.MeasuredData.Thickness
	}
	meta.ThicknessMM = math.Round(meta.ThicknessMM*100) / 100

	side, _ := model.ParseCoatingSide(rec.CoatedSide)
	if side == model.SideNone {
		// Some records omit coated_side and only list a coating layer.
		for _, layer := range rec.Layers {
			if layer.Type == "coating" {
				side, _ = model.ParseCoatingSide(layer.Location)
				break
			}
		}
	}
	if side != model.SideNone {
		name := rec.CoatingName
		if name == "" {
			name = "none"
		}
		meta.Coating = &model.Coating{Side: side, Name: name}
	}

	return meta, true, nil
}

func (c *Client) productID(ctx context.Context, nfrcID int) (int, bool, error) {
	u := fmt.Sprintf("%s/products?type=glazing&nfrc_id=%s", c.BaseURL, url.QueryEscape(fmt.Sprint(nfrcID)))
	var products []productSummary
	if err := c.getJSON(ctx, u, &products); err != nil {
		return 0, false, err
	}
	if len(products) == 0 {
		return 0, false, nil
	}
	return products[0].ProductID, true, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Token "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("igsdb request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("igsdb request %s: status %d", rawURL, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("igsdb decode %s: %w", rawURL, err)
	}
	return nil
}

func manufacturerName(rec productRecord) string {
	if rec.MfrName != "" {
		return rec.MfrName
	}
	if m, ok := rec.Manufacturer.(map[string]any); ok {
		if name, ok := m["name"].(string); ok && name != "" {
			return name
		}
	}
	if s, ok := rec.Manufacturer.(string); ok && s != "" {
		return s
	}
	return "Unknown"
}
