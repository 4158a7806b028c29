package dcuniverse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	metadataPathFmt = "/api/5/episode/%s/?trans=en"
	rightsPathFmt   = "/api/5/1/rights/episode/%s?trans=en"
	manifestPath    = "/api/5/1/video_manifest_from_jwt/"
)

// EpisodeMetadata holds the fields of the episode endpoint the client relies on.
// Numeric fields keep the number exactly as the API sent it.
type EpisodeMetadata struct {
	SeriesTitle    string      `json:"series_title"`
	Season         json.Number `json:"season"`
	SeasonPosition json.Number `json:"season_position"`
	Title          string      `json:"title"`
	Duration       json.Number `json:"duration"`
	Description    string      `json:"description"`
	AssetKey       string      `json:"asset_key"`
}

// ProductInfo combines episode metadata with the resolved manifest url.
type ProductInfo struct {
	Name         string      `json:"name"`
	Season       json.Number `json:"season"`
	Episode      json.Number `json:"episode"`
	EpisodeTitle string      `json:"episode_title"`
	Duration     json.Number `json:"duration"`
	Description  string      `json:"description"`
	// Synopsis is Description with markup removed.
	Synopsis string `json:"synopsis"`
	AssetKey string `json:"asset_key"`
	Manifest string `json:"manifest"`
}

type manifestResponse struct {
	StreamURL string `json:"stream_url"`
}

// ProductInfo fetches metadata and the manifest url for productID.
func (c *Client) ProductInfo(ctx context.Context, productID string) (ProductInfo, error) {
	session := c.Session()
	if session == nil {
		return ProductInfo{}, ErrNotAuthenticated
	}

	premium, err := session.UnverifiedPremium()
	switch {
	case err != nil:
		c.log.WarnObj("premium claim unreadable, continuing anyway", "error", err.Error())
	case premium:
		c.log.InfoObj("account is premium, continuing", "product_id", productID)
	default:
		c.log.InfoObj("account is not premium, continuing anyway", "product_id", productID)
	}

	meta, err := c.Metadata(ctx, productID)
	if err != nil {
		return ProductInfo{}, err
	}
	manifest, err := c.ManifestURL(ctx, productID)
	if err != nil {
		return ProductInfo{}, err
	}

	return ProductInfo{
		Name:         meta.SeriesTitle,
		Season:       meta.Season,
		Episode:      meta.SeasonPosition,
		EpisodeTitle: meta.Title,
		Duration:     meta.Duration,
		Description:  meta.Description,
		Synopsis:     plainText(meta.Description),
		AssetKey:     meta.AssetKey,
		Manifest:     manifest,
	}, nil
}

// Metadata returns the episode metadata for productID.
func (c *Client) Metadata(ctx context.Context, productID string) (EpisodeMetadata, error) {
	resp, err := c.get(ctx, fmt.Sprintf(metadataPathFmt, url.PathEscape(productID)))
	if err != nil {
		return EpisodeMetadata{}, fmt.Errorf("metadata request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		c.log.ErrorObj("metadata acquisition failed", "metadata_error", map[string]any{
			"product_id": productID,
			"status":     resp.StatusCode(),
			"body":       responseSnippet(resp.Body()),
		})
		return EpisodeMetadata{}, newStatusError("metadata", resp.StatusCode(), resp.Body(), nil)
	}

	var meta EpisodeMetadata
	if err := json.Unmarshal(resp.Body(), &meta); err != nil {
		return EpisodeMetadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	c.log.InfoObj("metadata acquired", "product_id", productID)
	return meta, nil
}

// ContentRights returns the rights token that proves the session may stream productID.
func (c *Client) ContentRights(ctx context.Context, productID string) (string, error) {
	resp, err := c.get(ctx, fmt.Sprintf(rightsPathFmt, url.PathEscape(productID)))
	if err != nil {
		return "", fmt.Errorf("rights request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		c.log.ErrorObj("you do not have rights to this content", "rights_error", map[string]any{
			"product_id": productID,
			"status":     resp.StatusCode(),
		})
		return "", newStatusError("rights", resp.StatusCode(), resp.Body(), ErrNoRights)
	}

	token, err := unquoteToken(string(resp.Body()))
	if err != nil {
		return "", err
	}
	c.log.InfoObj("rights acquired", "product_id", productID)
	return token, nil
}

// ManifestURL resolves the DASH stream url for productID.
func (c *Client) ManifestURL(ctx context.Context, productID string) (string, error) {
	rights, err := c.ContentRights(ctx, productID)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("cdn", "cloudfront")
	q.Set("drm", "widevine")
	q.Set("st", "dash")
	q.Set("subs", "en")
	q.Set("token", rights)
	q.Set("trans", "en")

	resp, err := c.get(ctx, manifestPath+"?"+q.Encode())
	if err != nil {
		return "", fmt.Errorf("manifest request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		c.log.ErrorObj("manifest resolution failed", "manifest_error", map[string]any{
			"product_id": productID,
			"status":     resp.StatusCode(),
			"body":       responseSnippet(resp.Body()),
		})
		return "", newStatusError("manifest", resp.StatusCode(), resp.Body(), nil)
	}

	var data manifestResponse
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return "", fmt.Errorf("decode manifest: %w", err)
	}
	c.log.DebugObj("manifest resolved", "manifest", data)
	if data.StreamURL == "" {
		return "", ErrManifestMissing
	}
	return data.StreamURL, nil
}

// unquoteToken drops the first and last character of the rights body.
func unquoteToken(body string) (string, error) {
	if len(body) < 2 {
		return "", fmt.Errorf("rights body too short: %q", body)
	}
	return body[1 : len(body)-1], nil
}

func plainText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
