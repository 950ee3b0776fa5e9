package backend

import (
	"context"
	"math"
	"time"

	"github.com/biovault/verify/pkg/diarize"
)

type segmentJSON struct {
	Start      float64 `json:"start"` // seconds
	End        float64 `json:"end"`
	Speaker    string  `json:"speaker"`
	Confidence float64 `json:"confidence"`
}

type diarizeResponse struct {
	Segments []segmentJSON `json:"segments"`
}

// Diarize uploads a canonical WAV file and returns its speaker segments.
// It implements diarize.Diarizer.
func (c *Client) Diarize(ctx context.Context, path string) ([]diarize.Segment, error) {
	var resp diarizeResponse
	if err := c.http.uploadFile(ctx, "/v1/diarize", path, &resp); err != nil {
		return nil, err
	}
	segs := make([]diarize.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segs = append(segs, diarize.Segment{
			Start:      seconds(s.Start),
			End:        seconds(s.End),
			Speaker:    s.Speaker,
			Confidence: s.Confidence,
		})
	}
	return segs, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

var _ diarize.Diarizer = (*Client)(nil)
