package catalog

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/soundprint/soundprint/internal/errs"
)

// AcousticAdapter identifies a raw audio sample against an acoustic-ID
// service, grounded line-for-line on the original's search_acrcloud HMAC
// signing scheme.
type AcousticAdapter struct {
	client      *resty.Client
	accessKey   string
	accessSecret string
}

// NewAcousticAdapter returns an adapter, or (nil, AuthError) if either
// credential is empty.
func NewAcousticAdapter(host, accessKey, accessSecret string) (*AcousticAdapter, error) {
	if accessKey == "" || accessSecret == "" {
		return nil, errs.New(errs.KindAuth, "catalog.NewAcousticAdapter",
			fmt.Errorf("missing acoustic adapter credentials"))
	}
	client := resty.New().SetBaseURL("http://" + host).SetTimeout(10 * time.Second)
	return &AcousticAdapter{client: client, accessKey: accessKey, accessSecret: accessSecret}, nil
}

type identifyResponse struct {
	Status struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	} `json:"status"`
	Metadata struct {
		Music []struct {
			Title   string `json:"title"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
			Album struct {
				Name string `json:"name"`
			} `json:"album"`
			Score int `json:"score"`
		} `json:"music"`
	} `json:"metadata"`
}

// Identify signs and submits audioSample for acoustic identification. A
// nonzero status code from the service, or any transport/parse error,
// degrades to an empty result (CatalogError).
func (a *AcousticAdapter) Identify(ctx context.Context, audioSample []byte) ([]Match, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature := a.sign(timestamp)

	var result identifyResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetFileReader("sample", "sample.raw", bytes.NewReader(audioSample)).
		SetFormData(map[string]string{
			"access_key":        a.accessKey,
			"sample_bytes":       strconv.Itoa(len(audioSample)),
			"timestamp":          timestamp,
			"signature":          signature,
			"data_type":          "audio",
			"signature_version":  "1",
		}).
		SetResult(&result).
		Post("/v1/identify")
	if err != nil {
		return nil, errs.New(errs.KindCatalog, "catalog.Identify", err)
	}
	if resp.IsError() {
		return nil, errs.New(errs.KindCatalog, "catalog.Identify",
			fmt.Errorf("acoustic service returned %d", resp.StatusCode()))
	}
	if result.Status.Code != 0 {
		return nil, errs.New(errs.KindCatalog, "catalog.Identify",
			fmt.Errorf("identification failed: %s", result.Status.Msg))
	}

	matches := make([]Match, 0, len(result.Metadata.Music))
	for _, track := range result.Metadata.Music {
		names := make([]string, 0, len(track.Artists))
		for _, artist := range track.Artists {
			names = append(names, artist.Name)
		}
		matches = append(matches, Match{
			Title:      track.Title,
			Artist:     strings.Join(names, ", "),
			Album:      track.Album.Name,
			Similarity: float64(track.Score) / 100.0,
			Source:     "acoustic-id",
		})
	}
	return matches, nil
}

// sign reproduces the original's string-to-sign layout exactly:
// "POST\n/v1/identify\n<access_key>\naudio\n1\n<timestamp>", HMAC-SHA1
// with the access secret, base64-encoded.
func (a *AcousticAdapter) sign(timestamp string) string {
	stringToSign := strings.Join([]string{
		"POST", "/v1/identify", a.accessKey, "audio", "1", timestamp,
	}, "\n")

	mac := hmac.New(sha1.New, []byte(a.accessSecret))
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
