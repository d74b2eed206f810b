package pipeline

import (
	"sort"
	"strings"

	"athena/interview/internal/models"
)

// A segment at least this long whose speech rate falls below
// lowSpeechWordsPerMinute is flagged as low speech.
const (
	lowSpeechMinSeconds     = 5.0
	lowSpeechWordsPerMinute = 20.0
)

// SegmentTranscript splits a transcript into one segment per boundary.
// Each word belongs to the boundary containing its midpoint; words before
// the first boundary go to the first segment and words in a gap go to the
// preceding one.
func SegmentTranscript(t models.Transcript, boundaries []models.SegmentBoundary) []models.Segment {
	if len(boundaries) == 0 {
		return nil
	}

	starts := make([]float64, len(boundaries))
	for i, b := range boundaries {
		starts[i] = msToSeconds(b.StartTime)
	}

	words := make([][]string, len(boundaries))
	for _, w := range t.Words {
		mid := (w.Start + w.End) / 2
		idx := sort.Search(len(starts), func(i int) bool { return starts[i] > mid }) - 1
		if idx < 0 {
			idx = 0
		}
		words[idx] = append(words[idx], w.Text)
	}

	segments := make([]models.Segment, len(boundaries))
	for i, b := range boundaries {
		start, end := msToSeconds(b.StartTime), msToSeconds(b.EndTime)
		count := len(words[i])
		segments[i] = models.Segment{
			PromptID:         b.PromptID,
			TranscriptText:   strings.Join(words[i], " "),
			StartTimeSeconds: start,
			EndTimeSeconds:   end,
			WordCount:        count,
			LowSpeech:        isLowSpeech(count, end-start),
		}
	}
	return segments
}

func isLowSpeech(words int, seconds float64) bool {
	if seconds < lowSpeechMinSeconds {
		return words == 0
	}
	return float64(words)/(seconds/60) < lowSpeechWordsPerMinute
}

func msToSeconds(ms int64) float64 {
	return float64(ms) / 1000
}
