package services

import (
	"context"
	"encoding/base64"

	vision "google.golang.org/api/vision/v1"
)

// likelihoodRank orders Vision likelihood values. Unknown values rank 0.
var likelihoodRank = map[string]int{
	"VERY_UNLIKELY": 1,
	"UNLIKELY":      2,
	"POSSIBLE":      3,
	"LIKELY":        4,
	"VERY_LIKELY":   5,
}

// rejectAt is the likelihood from which an upload is refused.
const rejectAt = "LIKELY"

type SafeSearchResult struct {
	Adult    string
	Violence string
	Racy     string
	Spoof    string
	Medical  string
}

// IsUnsafe reports whether adult, violence or racy content reaches rejectAt.
// Spoof and medical are recorded but never block an upload.
func (r *SafeSearchResult) IsUnsafe() bool {
	for _, l := range []string{r.Adult, r.Violence, r.Racy} {
		if likelihoodRank[l] >= likelihoodRank[rejectAt] {
			return true
		}
	}
	return false
}

func imageContent(data []byte) *vision.Image {
	return &vision.Image{Content: base64.StdEncoding.EncodeToString(data)}
}

// DetectSafeSearch annotates inline image bytes. A response without an
// annotation yields an empty (safe) result.
func DetectSafeSearch(ctx context.Context, svc *vision.Service, img *vision.Image) (*SafeSearchResult, error) {
	batch := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    img,
			Features: []*vision.Feature{{Type: "SAFE_SEARCH_DETECTION"}},
		}},
	}

	resp, err := svc.Images.Annotate(batch).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	result := &SafeSearchResult{}
	if len(resp.Responses) == 0 || resp.Responses[0].SafeSearchAnnotation == nil {
		return result, nil
	}
	ann := resp.Responses[0].SafeSearchAnnotation
	result.Adult = ann.Adult
	result.Violence = ann.Violence
	result.Racy = ann.Racy
	result.Spoof = ann.Spoof
	result.Medical = ann.Medical
	return result, nil
}
