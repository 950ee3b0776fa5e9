package backend

import (
	"context"
	"fmt"
)

// Box is a face bounding box in pixels.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Face is one detected face.
type Face struct {
	// Embedding is the face descriptor used for matching.
	Embedding []float64 `json:"embedding"`

	// Score is the detection confidence in [0, 1].
	Score float64 `json:"score"`

	Box Box `json:"box"`
}

type facesResponse struct {
	Faces []Face `json:"faces"`
}

// DetectFaces uploads the image at path and returns every face found,
// possibly none.
func (c *Client) DetectFaces(ctx context.Context, path string) ([]Face, error) {
	var resp facesResponse
	if err := c.http.uploadFile(ctx, "/v1/faces", path, &resp); err != nil {
		return nil, err
	}
	for i, f := range resp.Faces {
		if len(f.Embedding) == 0 {
			return nil, fmt.Errorf("backend: face %d has no embedding", i)
		}
	}
	return resp.Faces, nil
}
