package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/soundprint/soundprint/internal/errs"
	"github.com/soundprint/soundprint/internal/fingerprint"
)

const recommendationTimeout = 10 * time.Second

// RecommendationAdapter calls an external "recommend tracks near these
// audio features" endpoint, grounded on the original's
// search_spotify_by_features. The concrete transport is a generic REST
// call rather than a vendor SDK, since the example pack carries
// go-resty, not a Spotify client.
type RecommendationAdapter struct {
	client   *resty.Client
	clientID string
	secret   string
}

// NewRecommendationAdapter returns an adapter, or (nil, AuthError) if
// either credential is empty — the adapter is then silently skipped by
// the caller rather than treated as a hard failure (SPEC_FULL §7).
func NewRecommendationAdapter(baseURL, clientID, secret string) (*RecommendationAdapter, error) {
	if clientID == "" || secret == "" {
		return nil, errs.New(errs.KindAuth, "catalog.NewRecommendationAdapter",
			fmt.Errorf("missing recommendation adapter credentials"))
	}
	client := resty.New().SetBaseURL(baseURL).SetTimeout(recommendationTimeout)
	return &RecommendationAdapter{client: client, clientID: clientID, secret: secret}, nil
}

type recommendResponse struct {
	Tracks []struct {
		Name    string `json:"name"`
		Artists []struct {
			Name string `json:"name"`
		} `json:"artists"`
		Album struct {
			Name string `json:"name"`
		} `json:"album"`
		Features featureSet `json:"audio_features"`
	} `json:"tracks"`
}

// Recommend queries the adapter for tracks near fp's mapped audio
// features, ranked by featureSimilarity against the query mapping. Any
// transport or decode failure degrades to an empty result (CatalogError,
// logged by the caller) rather than propagating.
func (a *RecommendationAdapter) Recommend(ctx context.Context, fp fingerprint.Fingerprint, maxResults int) ([]Match, error) {
	query := toFeatureSet(fp)

	var result recommendResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"client_id":               a.clientID,
			"limit":                   fmt.Sprintf("%d", maxResults),
			"target_tempo":            fmt.Sprintf("%.2f", query.Tempo),
			"target_energy":           fmt.Sprintf("%.3f", query.Energy),
			"target_acousticness":     fmt.Sprintf("%.3f", query.Acousticness),
			"target_danceability":     fmt.Sprintf("%.3f", query.Danceability),
			"target_instrumentalness": fmt.Sprintf("%.3f", query.Instrumentalness),
			"target_liveness":         fmt.Sprintf("%.3f", query.Liveness),
			"target_loudness":         fmt.Sprintf("%.2f", query.Loudness),
			"target_speechiness":      fmt.Sprintf("%.3f", query.Speechiness),
			"target_valence":          fmt.Sprintf("%.3f", query.Valence),
		}).
		SetResult(&result).
		Get("/recommendations")
	if err != nil {
		return nil, errs.New(errs.KindCatalog, "catalog.Recommend", err)
	}
	if resp.IsError() {
		return nil, errs.New(errs.KindCatalog, "catalog.Recommend",
			fmt.Errorf("recommendation service returned %d", resp.StatusCode()))
	}

	matches := make([]Match, 0, len(result.Tracks))
	for _, track := range result.Tracks {
		artist := ""
		if len(track.Artists) > 0 {
			artist = track.Artists[0].Name
		}
		matches = append(matches, Match{
			Title:      track.Name,
			Artist:     artist,
			Album:      track.Album.Name,
			Similarity: featureSimilarity(query, track.Features),
			Source:     "recommendation",
		})
	}
	return matches, nil
}
